package store

import (
	"errors"
	"time"

	"ainastudio/pkg/domain"
)

var (
	// ErrNotFound is returned by updates and deletes that match no record.
	ErrNotFound = errors.New("record not found")
	// ErrBusinessExists is returned when an owner already has a business.
	ErrBusinessExists = errors.New("business already exists for owner")
)

// UserStore persists accounts.
type UserStore interface {
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
}

// BusinessStore persists business profiles, one per owner.
type BusinessStore interface {
	CreateBusiness(domain.Business) error
	GetBusinessByOwner(ownerID string) (domain.Business, bool, error)
	UpdateBusiness(domain.Business) error
	DeleteBusiness(id string) error
}

// TemplateFilter narrows ListTemplatesByOwner.
type TemplateFilter struct {
	Category     string
	FavoriteOnly bool
}

// TemplateStore persists saved content templates.
type TemplateStore interface {
	CreateTemplate(domain.Template) error
	GetTemplate(id string) (domain.Template, bool, error)
	ListTemplatesByOwner(ownerID string, filter TemplateFilter) ([]domain.Template, error)
	UpdateTemplate(domain.Template) error
	IncrementTemplateUse(id string) error
	DeleteTemplate(id string) error
}

// SubscriptionStore persists billing subscriptions.
type SubscriptionStore interface {
	SaveSubscription(domain.Subscription) error
	GetSubscriptionByUser(userID string) (domain.Subscription, bool, error)
	GetSubscriptionByProviderRef(ref string) (domain.Subscription, bool, error)
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	BusinessStore
	TemplateStore
	SubscriptionStore
}

// SessionStore issues and resolves bearer tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

// UserSessionRevoker revokes every session issued to a user up to a cutoff.
type UserSessionRevoker interface {
	RevokeUserSessions(userID string, since time.Time) error
}
