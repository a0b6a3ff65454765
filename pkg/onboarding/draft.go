package onboarding

import (
	"fmt"
	"strings"

	"ainastudio/pkg/domain"
)

const (
	MaxKeywords          = 10
	MaxKeywordLength     = 40
	MaxInspirationPhotos = 9
)

// Draft accumulates the business profile across wizard steps.
type Draft struct {
	BusinessName      string              `json:"businessName"`
	BusinessType      domain.BusinessType `json:"businessType,omitempty"`
	Address           string              `json:"address,omitempty"`
	LogoURL           string              `json:"logoUrl,omitempty"`
	InspirationPhotos []string            `json:"inspirationPhotos"`
	Keywords          []string            `json:"keywords"`
	Tone              domain.Tone         `json:"tone,omitempty"`
	Platforms         []domain.Platform   `json:"platforms"`
	PreferredStyle    string              `json:"preferredStyle,omitempty"`
}

// SetBasicInfo replaces the step 1 fields. An empty type clears the choice.
func (d *Draft) SetBasicInfo(name string, typ domain.BusinessType, address string) error {
	if typ != "" && !typ.IsValid() {
		return fmt.Errorf("%w: businessType %q", ErrInvalidField, typ)
	}
	d.BusinessName = strings.TrimSpace(name)
	d.BusinessType = typ
	d.Address = strings.TrimSpace(address)
	return nil
}

func (d *Draft) SetLogo(url string) { d.LogoURL = url }

func (d *Draft) ClearLogo() { d.LogoURL = "" }

// AddPhotos appends refs in order until the cap is reached and returns how
// many were accepted. The rest are dropped.
func (d *Draft) AddPhotos(refs ...string) int {
	added := 0
	for _, ref := range refs {
		if len(d.InspirationPhotos) >= MaxInspirationPhotos {
			break
		}
		if ref == "" {
			continue
		}
		d.InspirationPhotos = append(d.InspirationPhotos, ref)
		added++
	}
	return added
}

// RemovePhoto deletes the photo at index i.
func (d *Draft) RemovePhoto(i int) error {
	if i < 0 || i >= len(d.InspirationPhotos) {
		return fmt.Errorf("%w: photo index %d", ErrInvalidField, i)
	}
	d.InspirationPhotos = append(d.InspirationPhotos[:i], d.InspirationPhotos[i+1:]...)
	return nil
}

// AddKeyword adds k if it is new and the cap is not reached. Blank,
// duplicate (case-insensitive) and over-cap adds return false and change
// nothing.
func (d *Draft) AddKeyword(k string) bool {
	k = strings.TrimSpace(k)
	if k == "" || len(k) > MaxKeywordLength || len(d.Keywords) >= MaxKeywords {
		return false
	}
	if d.keywordIndex(k) >= 0 {
		return false
	}
	d.Keywords = append(d.Keywords, k)
	return true
}

// RemoveKeyword deletes k and reports whether it was present.
func (d *Draft) RemoveKeyword(k string) bool {
	i := d.keywordIndex(strings.TrimSpace(k))
	if i < 0 {
		return false
	}
	d.Keywords = append(d.Keywords[:i], d.Keywords[i+1:]...)
	return true
}

func (d *Draft) keywordIndex(k string) int {
	for i, existing := range d.Keywords {
		if strings.EqualFold(existing, k) {
			return i
		}
	}
	return -1
}

func (d *Draft) SetTone(t domain.Tone) error {
	if t != "" && !t.IsValid() {
		return fmt.Errorf("%w: tone %q", ErrInvalidField, t)
	}
	d.Tone = t
	return nil
}

// SetPlatforms replaces the platform selection, dropping duplicates.
func (d *Draft) SetPlatforms(ps []domain.Platform) error {
	out := make([]domain.Platform, 0, len(ps))
	seen := make(map[domain.Platform]bool, len(ps))
	for _, p := range ps {
		if !p.IsValid() {
			return fmt.Errorf("%w: platform %q", ErrInvalidField, p)
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	d.Platforms = out
	return nil
}

// TogglePlatform adds p when absent and removes it otherwise.
func (d *Draft) TogglePlatform(p domain.Platform) error {
	if !p.IsValid() {
		return fmt.Errorf("%w: platform %q", ErrInvalidField, p)
	}
	for i, existing := range d.Platforms {
		if existing == p {
			d.Platforms = append(d.Platforms[:i], d.Platforms[i+1:]...)
			return nil
		}
	}
	d.Platforms = append(d.Platforms, p)
	return nil
}

// Business converts the draft into a record ready for insertion.
func (d *Draft) Business() domain.Business {
	return domain.Business{
		Name:              d.BusinessName,
		Type:              d.BusinessType,
		Address:           d.Address,
		LogoURL:           d.LogoURL,
		InspirationPhotos: append([]string{}, d.InspirationPhotos...),
		Keywords:          append([]string{}, d.Keywords...),
		Tone:              d.Tone,
		Platforms:         append([]domain.Platform{}, d.Platforms...),
		PreferredStyle:    d.PreferredStyle,
	}
}
