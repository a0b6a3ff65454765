package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ainastudio/internal/util"
	"ainastudio/pkg/auth"
	"ainastudio/pkg/domain"
	"ainastudio/pkg/store"
)

// Config holds runtime configuration for the account service.
type Config struct {
	DatabaseURL string
	// Redis backs token revocation. Nil selects the in-process revoker.
	Redis       redis.UniversalClient
	SessionTTL  time.Duration
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTLeeway   time.Duration
	Store       store.UserStore
	Sessions    store.SessionStore
}

// Session is an issued access token and the account it belongs to.
type Session struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// App manages accounts and their access tokens.
type App struct {
	users      store.UserStore
	sessions   store.SessionStore
	sessionTTL time.Duration
}

// New builds the account service. A nil Store selects Postgres when a DSN is
// set and the in-memory store otherwise.
func New(cfg Config) (*App, error) {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	users := cfg.Store
	switch {
	case users != nil:
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		gs, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		users = gs
	default:
		slog.Warn("databaseURL empty: accounts are kept in memory")
		users = store.NewMemoryStore()
	}

	sessions := cfg.Sessions
	if sessions == nil {
		var revoker store.TokenRevoker = store.NewMemoryTokenRevoker()
		if cfg.Redis != nil {
			revoker = store.NewRedisTokenRevoker(cfg.Redis, "aina:auth")
		}
		js, err := store.NewJWTSessionStore(cfg.JWTSecret, ttl, revoker, store.JWTOptions{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   cfg.JWTLeeway,
		})
		if err != nil {
			return nil, fmt.Errorf("init jwt session store: %w", err)
		}
		sessions = js
	}
	return &App{users: users, sessions: sessions, sessionTTL: ttl}, nil
}

// SignUp creates an account and signs it in.
func (a *App) SignUp(email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrEmailAndPasswordRequired
	}
	if err := auth.ValidatePassword(password); err != nil {
		return Session{}, err
	}
	taken, err := a.users.HasUserEmail(email)
	if err != nil {
		return Session{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return Session{}, ErrEmailAlreadyExists
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.users.SaveUser(user); err != nil {
		return Session{}, fmt.Errorf("save user: %w", err)
	}
	return a.openSession(user)
}

// Login checks credentials. Unknown emails cost the same bcrypt work as a
// wrong password so response times do not reveal which accounts exist.
func (a *App) Login(email, password string) (Session, error) {
	user, ok, err := a.users.GetUserByEmail(normalizeEmail(email))
	if err != nil {
		return Session{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		auth.CheckPassword(password, placeholderHash())
		return Session{}, ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	if user.Status == domain.StatusDisabled {
		return Session{}, ErrUserDisabled
	}
	return a.openSession(user)
}

// UserFromToken resolves an active account from an access token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	userID, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, ok, err := a.users.GetUserByID(userID)
	if err != nil || !ok || user.Status == domain.StatusDisabled {
		return domain.User{}, false
	}
	return user, true
}

// Logout revokes one access token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// ChangePassword replaces the password and signs the account out everywhere.
func (a *App) ChangePassword(userID, current, next string) error {
	switch {
	case strings.TrimSpace(current) == "":
		return ErrCurrentPasswordRequired
	case strings.TrimSpace(next) == "":
		return ErrNewPasswordRequired
	}
	if err := auth.ValidatePassword(next); err != nil {
		return err
	}
	user, ok, err := a.users.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	if user.Status == domain.StatusDisabled {
		return ErrUserDisabled
	}
	if !auth.CheckPassword(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if current == next {
		return ErrPasswordUnchanged
	}
	revoker, ok := a.sessions.(store.UserSessionRevoker)
	if !ok {
		return errors.New("session store cannot revoke user sessions")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	cutoff := time.Now().UTC()
	user.PasswordHash = hash
	user.UpdatedAt = cutoff
	if err := a.users.SaveUser(user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := revoker.RevokeUserSessions(userID, cutoff); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	return nil
}

func (a *App) openSession(user domain.User) (Session, error) {
	issued := time.Now().UTC()
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue access token: %w", err)
	}
	return Session{User: user, Token: token, ExpiresAt: issued.Add(a.sessionTTL)}, nil
}

var (
	placeholderOnce sync.Once
	placeholder     string
)

// placeholderHash is compared against when the email is unknown.
func placeholderHash() string {
	placeholderOnce.Do(func() {
		placeholder, _ = auth.HashPassword("Placeholder#Pass1")
	})
	return placeholder
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
