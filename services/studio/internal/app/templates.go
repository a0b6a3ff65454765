package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"ainastudio/internal/util"
	"ainastudio/pkg/domain"
	"ainastudio/pkg/store"
)

// TemplateInput carries the fields of a new template.
type TemplateInput struct {
	Name        string
	Category    string
	ImageURL    string
	Text        string
	Description string
	Platform    domain.Platform
	Tone        domain.Tone
	Style       string
}

// TemplatePatch lists editable template fields. Nil fields are kept.
type TemplatePatch struct {
	Name        *string
	Category    *string
	ImageURL    *string
	Text        *string
	Description *string
	Platform    *domain.Platform
	Tone        *domain.Tone
	Style       *string
	Favorite    *bool
}

func (a *App) ListTemplates(_ context.Context, userID string, filter store.TemplateFilter) ([]domain.Template, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	return a.store.ListTemplatesByOwner(userID, filter)
}

// CreateTemplate saves generated content for reuse. Inline images are moved
// to object storage when it is available.
func (a *App) CreateTemplate(ctx context.Context, userID string, in TemplateInput) (domain.Template, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Template{}, ErrTemplateNameMissing
	}
	if err := validatePlatformTone(in.Platform, in.Tone); err != nil {
		return domain.Template{}, err
	}
	imageURL, err := a.storeTemplateImage(ctx, userID, in.ImageURL)
	if err != nil {
		return domain.Template{}, err
	}
	t := domain.Template{
		ID:          util.NewID(),
		OwnerID:     userID,
		Name:        name,
		Category:    strings.TrimSpace(in.Category),
		ImageURL:    imageURL,
		Text:        util.StripHTML(in.Text),
		Description: strings.TrimSpace(in.Description),
		Platform:    in.Platform,
		Tone:        in.Tone,
		Style:       strings.TrimSpace(in.Style),
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.store.CreateTemplate(t); err != nil {
		return domain.Template{}, err
	}
	return t, nil
}

// GetTemplate returns the template when userID owns it.
func (a *App) GetTemplate(_ context.Context, userID, id string) (domain.Template, error) {
	t, ok, err := a.store.GetTemplate(id)
	if err != nil {
		return domain.Template{}, err
	}
	if !ok || t.OwnerID != userID {
		return domain.Template{}, ErrTemplateNotFound
	}
	return t, nil
}

func (a *App) UpdateTemplate(ctx context.Context, userID, id string, patch TemplatePatch) (domain.Template, error) {
	t, err := a.GetTemplate(ctx, userID, id)
	if err != nil {
		return domain.Template{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.Template{}, ErrTemplateNameMissing
		}
		t.Name = name
	}
	if patch.Category != nil {
		t.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.ImageURL != nil {
		url, err := a.storeTemplateImage(ctx, userID, *patch.ImageURL)
		if err != nil {
			return domain.Template{}, err
		}
		t.ImageURL = url
	}
	if patch.Text != nil {
		t.Text = util.StripHTML(*patch.Text)
	}
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Platform != nil {
		t.Platform = *patch.Platform
	}
	if patch.Tone != nil {
		t.Tone = *patch.Tone
	}
	if err := validatePlatformTone(t.Platform, t.Tone); err != nil {
		return domain.Template{}, err
	}
	if patch.Style != nil {
		t.Style = strings.TrimSpace(*patch.Style)
	}
	if patch.Favorite != nil {
		t.Favorite = *patch.Favorite
	}
	if err := a.store.UpdateTemplate(t); err != nil {
		return domain.Template{}, mapTemplateErr(err)
	}
	return a.GetTemplate(ctx, userID, id)
}

func (a *App) DeleteTemplate(ctx context.Context, userID, id string) error {
	if _, err := a.GetTemplate(ctx, userID, id); err != nil {
		return err
	}
	return mapTemplateErr(a.store.DeleteTemplate(id))
}

// ToggleFavorite flips the favourite flag and returns the updated template.
func (a *App) ToggleFavorite(ctx context.Context, userID, id string) (domain.Template, error) {
	t, err := a.GetTemplate(ctx, userID, id)
	if err != nil {
		return domain.Template{}, err
	}
	fav := !t.Favorite
	return a.UpdateTemplate(ctx, userID, id, TemplatePatch{Favorite: &fav})
}

// UseTemplate records one reuse of the template.
func (a *App) UseTemplate(ctx context.Context, userID, id string) (domain.Template, error) {
	if _, err := a.GetTemplate(ctx, userID, id); err != nil {
		return domain.Template{}, err
	}
	if err := a.store.IncrementTemplateUse(id); err != nil {
		return domain.Template{}, mapTemplateErr(err)
	}
	return a.GetTemplate(ctx, userID, id)
}

func (a *App) storeTemplateImage(ctx context.Context, userID, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	up, err := a.uploader.StoreDataURL(ctx, userID, "templates", raw)
	if err != nil {
		return "", err
	}
	return up.URL, nil
}

func validatePlatformTone(p domain.Platform, t domain.Tone) error {
	if p != "" && !p.IsValid() {
		return ErrInvalidPlatform
	}
	if t != "" && !t.IsValid() {
		return ErrInvalidTone
	}
	return nil
}

func mapTemplateErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrTemplateNotFound
	}
	return err
}
