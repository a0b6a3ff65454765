package onboarding

import (
	"context"
	"errors"
	"strings"
	"sync"

	"ainastudio/pkg/domain"
)

// fakeGenerator fails any prompt containing the instruction of a preset
// listed in failKeys.
type fakeGenerator struct {
	mu       sync.Mutex
	failKeys map[string]bool
	failAll  bool
	prompts  []string
}

func (g *fakeGenerator) GenerateImage(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.failAll {
		return "", errors.New("relay unreachable")
	}
	for _, p := range StylePresets {
		if g.failKeys[p.Key] && strings.Contains(prompt, p.Instruction) {
			return "", errors.New("provider error")
		}
	}
	return "data:image/png;base64,aW1n", nil
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// wizardAtCalibration returns a wizard that passed steps 1 to 3.
func wizardAtCalibration(t interface{ Fatalf(string, ...any) }) *Wizard {
	w := New()
	d, err := w.Edit(StepBasicInfo)
	if err != nil {
		t.Fatalf("edit step 1: %v", err)
	}
	if err := d.SetBasicInfo("Le Petit Bistrot", domain.BusinessRestaurant, ""); err != nil {
		t.Fatalf("set basic info: %v", err)
	}
	mustContinue(t, w)
	mustContinue(t, w)
	d, err = w.Edit(StepToneAndPlatforms)
	if err != nil {
		t.Fatalf("edit step 3: %v", err)
	}
	if err := d.SetTone(domain.ToneFamily); err != nil {
		t.Fatalf("set tone: %v", err)
	}
	if err := d.SetPlatforms([]domain.Platform{domain.PlatformInstagram, domain.PlatformFacebook}); err != nil {
		t.Fatalf("set platforms: %v", err)
	}
	mustContinue(t, w)
	return w
}

func mustContinue(t interface{ Fatalf(string, ...any) }, w *Wizard) {
	if err := w.Continue(func(domain.Business) error { return nil }); err != nil {
		t.Fatalf("continue from %s: %v", w.Step, err)
	}
}

func runRound(w *Wizard, gen ImageGenerator, parallel bool, description string) (int, error) {
	round, err := w.BeginRound(description)
	if err != nil {
		return 0, err
	}
	r := &Runner{Generator: gen, Parallel: parallel}
	var mu sync.Mutex
	n := r.Run(context.Background(), round, func(c Candidate) error {
		mu.Lock()
		defer mu.Unlock()
		return w.AddCandidate(round.Attempt, c)
	})
	return n, w.FinishRound(round.Attempt)
}
