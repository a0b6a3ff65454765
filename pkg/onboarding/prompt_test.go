package onboarding

import (
	"strings"
	"testing"

	"ainastudio/pkg/domain"
)

func TestBuildPromptOptionalLines(t *testing.T) {
	d := Draft{BusinessName: "Le Petit Bistrot", BusinessType: domain.BusinessRestaurant}
	p := BuildPrompt("Nouveau plat du jour", d, StylePresets[0])
	if !strings.HasPrefix(p, "Nouveau plat du jour") {
		t.Fatalf("expected description first: %q", p)
	}
	if !strings.Contains(p, "Le Petit Bistrot (Restaurant)") || !strings.Contains(p, StylePresets[0].Instruction) {
		t.Fatalf("missing business or style block: %q", p)
	}
	if strings.Contains(p, "logo") || strings.Contains(p, "inspiration") || strings.Contains(p, "keywords") {
		t.Fatalf("unexpected optional lines: %q", p)
	}

	d.LogoURL = "https://cdn.example/logo.png"
	d.InspirationPhotos = []string{"a"}
	d.Keywords = []string{"terrasse", "fait maison"}
	p = BuildPrompt("Nouveau plat du jour", d, StylePresets[1])
	if !strings.Contains(p, "logo") {
		t.Fatalf("expected logo line: %q", p)
	}
	if !strings.Contains(p, "inspiration photos") || !strings.Contains(p, "terrasse, fait maison") {
		t.Fatalf("expected mood line: %q", p)
	}
}

func TestSuggestedPromptsFallback(t *testing.T) {
	if got := SuggestedPromptsFor(domain.BusinessRestaurant); len(got) == 0 || got[0] == genericPrompts[0] {
		t.Fatalf("expected restaurant prompts, got %v", got)
	}
	got := SuggestedPromptsFor(domain.BusinessOther)
	if len(got) != len(genericPrompts) || got[0] != genericPrompts[0] {
		t.Fatalf("expected generic prompts, got %v", got)
	}
}
