package store

import (
	"encoding/json"
	"time"

	"ainastudio/pkg/domain"
	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null"`
	Status       string
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type BusinessModel struct {
	ID                string `gorm:"primaryKey"`
	OwnerID           string `gorm:"uniqueIndex;not null"`
	Name              string `gorm:"not null"`
	Type              string `gorm:"not null"`
	Address           string
	LogoURL           string         `gorm:"type:text"`
	InspirationPhotos datatypes.JSON `gorm:"type:jsonb"`
	Keywords          datatypes.JSON `gorm:"type:jsonb"`
	Tone              string         `gorm:"not null"`
	Platforms         datatypes.JSON `gorm:"type:jsonb"`
	PreferredStyle    string
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

type TemplateModel struct {
	ID          string `gorm:"primaryKey"`
	OwnerID     string `gorm:"not null;index"`
	Name        string `gorm:"not null"`
	Category    string `gorm:"index"`
	ImageURL    string `gorm:"type:text"`
	Text        string `gorm:"type:text"`
	Description string `gorm:"type:text"`
	Platform    string
	Tone        string
	Style       string
	UseCount    int       `gorm:"not null;default:0"`
	Favorite    bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

type SubscriptionModel struct {
	ID                 string `gorm:"primaryKey"`
	UserID             string `gorm:"not null;index"`
	Status             string `gorm:"not null"`
	Plan               string `gorm:"not null"`
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	ProviderRef        string `gorm:"index"`
	TestMode           bool   `gorm:"not null;default:false"`
	CreatedAt          time.Time `gorm:"not null;index"`
	UpdatedAt          time.Time `gorm:"not null"`
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Status:       string(u.Status),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		Status:       domain.UserStatus(m.Status),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func businessToModel(b domain.Business) (BusinessModel, error) {
	photos, err := encodeJSON(b.InspirationPhotos)
	if err != nil {
		return BusinessModel{}, err
	}
	keywords, err := encodeJSON(b.Keywords)
	if err != nil {
		return BusinessModel{}, err
	}
	platforms, err := encodeJSON(b.Platforms)
	if err != nil {
		return BusinessModel{}, err
	}
	return BusinessModel{
		ID:                b.ID,
		OwnerID:           b.OwnerID,
		Name:              b.Name,
		Type:              string(b.Type),
		Address:           b.Address,
		LogoURL:           b.LogoURL,
		InspirationPhotos: photos,
		Keywords:          keywords,
		Tone:              string(b.Tone),
		Platforms:         platforms,
		PreferredStyle:    b.PreferredStyle,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}, nil
}

func businessFromModel(m BusinessModel) domain.Business {
	b := domain.Business{
		ID:                m.ID,
		OwnerID:           m.OwnerID,
		Name:              m.Name,
		Type:              domain.BusinessType(m.Type),
		Address:           m.Address,
		LogoURL:           m.LogoURL,
		InspirationPhotos: []string{},
		Keywords:          []string{},
		Tone:              domain.Tone(m.Tone),
		Platforms:         []domain.Platform{},
		PreferredStyle:    m.PreferredStyle,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	// Malformed JSON columns decode to empty lists.
	_ = decodeJSON(m.InspirationPhotos, &b.InspirationPhotos)
	_ = decodeJSON(m.Keywords, &b.Keywords)
	_ = decodeJSON(m.Platforms, &b.Platforms)
	return b
}

func templateToModel(t domain.Template) TemplateModel {
	return TemplateModel{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Name:        t.Name,
		Category:    t.Category,
		ImageURL:    t.ImageURL,
		Text:        t.Text,
		Description: t.Description,
		Platform:    string(t.Platform),
		Tone:        string(t.Tone),
		Style:       t.Style,
		UseCount:    t.UseCount,
		Favorite:    t.Favorite,
		CreatedAt:   t.CreatedAt,
	}
}

func templateFromModel(m TemplateModel) domain.Template {
	return domain.Template{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Name:        m.Name,
		Category:    m.Category,
		ImageURL:    m.ImageURL,
		Text:        m.Text,
		Description: m.Description,
		Platform:    domain.Platform(m.Platform),
		Tone:        domain.Tone(m.Tone),
		Style:       m.Style,
		UseCount:    m.UseCount,
		Favorite:    m.Favorite,
		CreatedAt:   m.CreatedAt,
	}
}

func subscriptionToModel(s domain.Subscription) SubscriptionModel {
	return SubscriptionModel{
		ID:                 s.ID,
		UserID:             s.UserID,
		Status:             string(s.Status),
		Plan:               string(s.Plan),
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		ProviderRef:        s.ProviderRef,
		TestMode:           s.TestMode,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func subscriptionFromModel(m SubscriptionModel) domain.Subscription {
	return domain.Subscription{
		ID:                 m.ID,
		UserID:             m.UserID,
		Status:             domain.SubscriptionStatus(m.Status),
		Plan:               domain.Plan(m.Plan),
		CurrentPeriodStart: m.CurrentPeriodStart,
		CurrentPeriodEnd:   m.CurrentPeriodEnd,
		ProviderRef:        m.ProviderRef,
		TestMode:           m.TestMode,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func encodeJSON(v any) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func decodeJSON(raw datatypes.JSON, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}
