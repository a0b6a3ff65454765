package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ainastudio/internal/util"
	"ainastudio/pkg/domain"
	"ainastudio/pkg/onboarding"
)

// ContentRequest describes one post to generate.
type ContentRequest struct {
	Description string
	Platform    domain.Platform
	WithImage   bool
}

// ContentResult is the generated post. Image is empty when not requested or
// when image generation failed; ImageError then says why.
type ContentResult struct {
	Text       string          `json:"text"`
	Image      string          `json:"image,omitempty"`
	ImageError string          `json:"imageError,omitempty"`
	Platform   domain.Platform `json:"platform"`
}

var platformGuidance = map[domain.Platform]string{
	domain.PlatformInstagram: "Instagram caption: two or three short paragraphs, a few fitting emojis, end with 5 to 10 relevant hashtags.",
	domain.PlatformFacebook:  "Facebook post: conversational, slightly longer, end with a clear call to action and at most 3 hashtags.",
	domain.PlatformTikTok:    "TikTok caption: one punchy hook sentence and a short follow-up, 3 to 5 hashtags.",
	domain.PlatformLinkedIn:  "LinkedIn post: professional and informative, no emojis, at most 3 hashtags.",
}

var toneGuidance = map[domain.Tone]string{
	domain.ToneProfessional: "professional and reassuring",
	domain.ToneFamily:       "warm and family-friendly",
	domain.ToneYoung:        "young, casual and energetic",
	domain.ToneLuxury:       "refined and upscale",
	domain.ToneHumor:        "playful with light humour",
}

// GenerateContent writes a social media post for the user's business and,
// when asked, an illustration in the calibrated style. Text failure fails
// the call; image failure does not.
func (a *App) GenerateContent(ctx context.Context, userID string, req ContentRequest) (ContentResult, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return ContentResult{}, ErrDescriptionRequired
	}
	b, err := a.GetBusiness(ctx, userID)
	if err != nil {
		return ContentResult{}, err
	}
	platform := req.Platform
	if platform == "" && len(b.Platforms) > 0 {
		platform = b.Platforms[0]
	}
	if !platform.IsValid() {
		return ContentResult{}, fmt.Errorf("%w: %q", ErrInvalidPlatform, platform)
	}

	res := ContentResult{Platform: platform}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		text, err := a.text.GenerateText(gctx, BuildTextPrompt(desc, b, platform))
		if err != nil {
			a.metrics.ObserveGeneration("content_text", "failed", time.Since(start))
			return fmt.Errorf("%w: %w", ErrTextGeneration, err)
		}
		a.metrics.ObserveGeneration("content_text", "success", time.Since(start))
		res.Text = util.StripHTML(text)
		return nil
	})
	if req.WithImage {
		g.Go(func() error {
			start := time.Now()
			img, err := a.generateContentImage(gctx, userID, BuildImagePrompt(desc, b))
			if err != nil {
				a.metrics.ObserveGeneration("content_image", "failed", time.Since(start))
				a.logger.Warn("content image failed", "user_id", userID, "err", err)
				res.ImageError = "image generation failed"
				return nil
			}
			a.metrics.ObserveGeneration("content_image", "success", time.Since(start))
			res.Image = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ContentResult{}, err
	}
	return res, nil
}

func (a *App) generateContentImage(ctx context.Context, userID, prompt string) (string, error) {
	img, err := a.images.GenerateImage(ctx, prompt)
	if err != nil {
		return "", err
	}
	up, err := a.uploader.StoreDataURL(ctx, userID, "content", img)
	if err != nil {
		return "", err
	}
	return up.URL, nil
}

// BuildTextPrompt assembles the caption prompt from the business profile.
func BuildTextPrompt(description string, b domain.Business, platform domain.Platform) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a social media post in French for %s", b.Name)
	if b.Type != "" {
		fmt.Fprintf(&sb, " (%s)", b.Type)
	}
	if b.Address != "" {
		fmt.Fprintf(&sb, ", located at %s", b.Address)
	}
	sb.WriteString(".\n")
	fmt.Fprintf(&sb, "Subject: %s\n", description)
	if tone, ok := toneGuidance[b.Tone]; ok {
		fmt.Fprintf(&sb, "Tone: %s.\n", tone)
	}
	if len(b.Keywords) > 0 {
		fmt.Fprintf(&sb, "Work in these keywords where natural: %s.\n", strings.Join(b.Keywords, ", "))
	}
	sb.WriteString(platformGuidance[platform])
	sb.WriteString("\nReturn only the post text, without markup or commentary.")
	return sb.String()
}

// BuildImagePrompt assembles the illustration prompt, reusing the
// composition of the calibrated style when it matches a preset.
func BuildImagePrompt(description string, b domain.Business) string {
	var sb strings.Builder
	sb.WriteString(description)
	fmt.Fprintf(&sb, "\nBusiness: %s", b.Name)
	if b.Type != "" {
		fmt.Fprintf(&sb, " (%s)", b.Type)
	}
	sb.WriteString(".\n")
	if b.PreferredStyle != "" {
		fmt.Fprintf(&sb, "Preferred visual style: %s.\n", b.PreferredStyle)
		for _, p := range onboarding.StylePresets {
			if p.Label == b.PreferredStyle {
				sb.WriteString(p.Instruction)
				sb.WriteString("\n")
				break
			}
		}
	}
	if len(b.Keywords) > 0 {
		fmt.Fprintf(&sb, "Let these keywords inform the mood: %s.\n", strings.Join(b.Keywords, ", "))
	}
	sb.WriteString("Photorealistic, square format for social media, no text overlay.")
	return sb.String()
}
