package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ainastudio/pkg/domain"
	"ainastudio/pkg/onboarding"
	"ainastudio/pkg/store"
)

// BusinessPatch lists the editable profile fields. Nil fields are kept.
// Name and type are fixed after onboarding.
type BusinessPatch struct {
	Address           *string
	LogoURL           *string
	InspirationPhotos *[]string
	Keywords          *[]string
	Tone              *domain.Tone
	Platforms         *[]domain.Platform
	PreferredStyle    *string
}

func (a *App) GetBusiness(_ context.Context, userID string) (domain.Business, error) {
	b, ok, err := a.store.GetBusinessByOwner(userID)
	if err != nil {
		return domain.Business{}, err
	}
	if !ok {
		return domain.Business{}, ErrBusinessNotFound
	}
	return b, nil
}

// UpdateBusiness applies patch with the same caps and validation as the
// onboarding wizard.
func (a *App) UpdateBusiness(ctx context.Context, userID string, patch BusinessPatch) (domain.Business, error) {
	b, err := a.GetBusiness(ctx, userID)
	if err != nil {
		return domain.Business{}, err
	}
	if patch.Address != nil {
		b.Address = strings.TrimSpace(*patch.Address)
	}
	if patch.LogoURL != nil {
		b.LogoURL = strings.TrimSpace(*patch.LogoURL)
	}
	if patch.InspirationPhotos != nil {
		var d onboarding.Draft
		d.AddPhotos(*patch.InspirationPhotos...)
		b.InspirationPhotos = nonNil(d.InspirationPhotos)
	}
	if patch.Keywords != nil {
		var d onboarding.Draft
		for _, k := range *patch.Keywords {
			d.AddKeyword(k)
		}
		b.Keywords = nonNil(d.Keywords)
	}
	if patch.Tone != nil {
		if !patch.Tone.IsValid() {
			return domain.Business{}, fmt.Errorf("%w: %q", ErrInvalidTone, *patch.Tone)
		}
		b.Tone = *patch.Tone
	}
	if patch.Platforms != nil {
		if len(*patch.Platforms) == 0 {
			return domain.Business{}, fmt.Errorf("%w: at least one platform is required", ErrInvalidPlatform)
		}
		var d onboarding.Draft
		if err := d.SetPlatforms(*patch.Platforms); err != nil {
			return domain.Business{}, err
		}
		b.Platforms = d.Platforms
	}
	if patch.PreferredStyle != nil {
		b.PreferredStyle = strings.TrimSpace(*patch.PreferredStyle)
	}
	b.UpdatedAt = time.Now().UTC()
	if err := a.store.UpdateBusiness(b); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Business{}, ErrBusinessNotFound
		}
		return domain.Business{}, err
	}
	return b, nil
}

// DeleteBusiness removes the profile. The user may onboard again afterwards.
func (a *App) DeleteBusiness(ctx context.Context, userID string) error {
	unlock := a.lock(userID)
	defer unlock()
	b, err := a.GetBusiness(ctx, userID)
	if err != nil {
		return err
	}
	if err := a.store.DeleteBusiness(b.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrBusinessNotFound
		}
		return err
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
