package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusDisabled UserStatus = "disabled"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// BusinessType is the category label chosen at onboarding step 1.
type BusinessType string

const (
	BusinessRestaurant  BusinessType = "Restaurant"
	BusinessBar         BusinessType = "Bar"
	BusinessBakery      BusinessType = "Boulangerie"
	BusinessHairdresser BusinessType = "Coiffeur"
	BusinessBoutique    BusinessType = "Boutique"
	BusinessOther       BusinessType = "Autre"
)

// BusinessTypes lists the selectable categories in display order.
var BusinessTypes = []BusinessType{
	BusinessRestaurant,
	BusinessBar,
	BusinessBakery,
	BusinessHairdresser,
	BusinessBoutique,
	BusinessOther,
}

func (t BusinessType) IsValid() bool {
	for _, v := range BusinessTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Tone is the voice used for generated captions.
type Tone string

const (
	ToneProfessional Tone = "Professionnel"
	ToneFamily       Tone = "Familial"
	ToneYoung        Tone = "Jeune"
	ToneLuxury       Tone = "Luxe"
	ToneHumor        Tone = "Humour"
)

var Tones = []Tone{ToneProfessional, ToneFamily, ToneYoung, ToneLuxury, ToneHumor}

func (t Tone) IsValid() bool {
	for _, v := range Tones {
		if v == t {
			return true
		}
	}
	return false
}

type Platform string

const (
	PlatformInstagram Platform = "Instagram"
	PlatformFacebook  Platform = "Facebook"
	PlatformTikTok    Platform = "TikTok"
	PlatformLinkedIn  Platform = "LinkedIn"
)

var Platforms = []Platform{PlatformInstagram, PlatformFacebook, PlatformTikTok, PlatformLinkedIn}

func (p Platform) IsValid() bool {
	for _, v := range Platforms {
		if v == p {
			return true
		}
	}
	return false
}

// Business is the persisted business profile. One per owner.
type Business struct {
	ID                string       `json:"id"`
	OwnerID           string       `json:"ownerId"`
	Name              string       `json:"businessName"`
	Type              BusinessType `json:"businessType"`
	Address           string       `json:"address,omitempty"`
	LogoURL           string       `json:"logoUrl,omitempty"`
	InspirationPhotos []string     `json:"inspirationPhotos"`
	Keywords          []string     `json:"keywords"`
	Tone              Tone         `json:"tone"`
	Platforms         []Platform   `json:"platforms"`
	PreferredStyle    string       `json:"preferredStyle"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

type Template struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Text        string    `json:"text"`
	Description string    `json:"description,omitempty"`
	Platform    Platform  `json:"platform,omitempty"`
	Tone        Tone      `json:"tone,omitempty"`
	Style       string    `json:"style,omitempty"`
	UseCount    int       `json:"useCount"`
	Favorite    bool      `json:"favorite"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

func (p Plan) IsValid() bool {
	return p == PlanMonthly || p == PlanYearly
}

// PeriodEnd returns the end of a billing period starting at start.
func (p Plan) PeriodEnd(start time.Time) time.Time {
	if p == PlanYearly {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPending  SubscriptionStatus = "pending"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

type Subscription struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"userId"`
	Status             SubscriptionStatus `json:"status"`
	Plan               Plan               `json:"plan"`
	CurrentPeriodStart time.Time          `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time          `json:"currentPeriodEnd"`
	ProviderRef        string             `json:"providerRef,omitempty"`
	TestMode           bool               `json:"testMode"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}
