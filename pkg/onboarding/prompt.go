package onboarding

import (
	"fmt"
	"strings"
)

// BuildPrompt assembles the image prompt for one style preset.
func BuildPrompt(description string, d Draft, preset StylePreset) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(description))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Business: %s", d.BusinessName)
	if d.BusinessType != "" {
		fmt.Fprintf(&b, " (%s)", d.BusinessType)
	}
	b.WriteString(".\n")
	b.WriteString(preset.Instruction)
	b.WriteString("\n")
	if d.LogoURL != "" {
		b.WriteString("Subtly integrate the business logo into the scene, for example on packaging, signage or tableware.\n")
	}
	switch {
	case len(d.InspirationPhotos) > 0 && len(d.Keywords) > 0:
		fmt.Fprintf(&b, "Let the uploaded inspiration photos and these keywords inform the mood: %s.\n", strings.Join(d.Keywords, ", "))
	case len(d.InspirationPhotos) > 0:
		b.WriteString("Let the uploaded inspiration photos inform the mood.\n")
	case len(d.Keywords) > 0:
		fmt.Fprintf(&b, "Let these keywords inform the mood: %s.\n", strings.Join(d.Keywords, ", "))
	}
	b.WriteString("Photorealistic, square format for social media, no text overlay.")
	return b.String()
}
