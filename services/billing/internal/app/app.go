package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"ainastudio/internal/util"
	"ainastudio/pkg/domain"
	"ainastudio/pkg/pricing"
	"ainastudio/pkg/store"
)

// Config holds runtime configuration for the payment relay.
type Config struct {
	DatabaseURL   string
	Store         store.SubscriptionStore
	Provider      CheckoutProvider
	WebhookSecret string
	Prices        map[domain.Plan]string
	// Coupons maps upper-case promo codes to provider coupon ids.
	Coupons    map[string]string
	SuccessURL string
	CancelURL  string
}

// App opens checkouts and applies webhook events to subscriptions.
type App struct {
	store         store.SubscriptionStore
	provider      CheckoutProvider
	webhookSecret string
	prices        map[domain.Plan]string
	coupons       map[string]string
	successURL    string
	cancelURL     string
	now           func() time.Time
}

// New constructs the billing core.
func New(cfg Config) (*App, error) {
	if cfg.Provider == nil {
		return nil, errors.New("checkout provider required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("webhook secret required")
	}
	for _, plan := range []domain.Plan{domain.PlanMonthly, domain.PlanYearly} {
		if cfg.Prices[plan] == "" {
			return nil, fmt.Errorf("price id for plan %s required", plan)
		}
	}
	for _, code := range pricing.Codes() {
		if cfg.Coupons[code] == "" {
			slog.Warn("promo code has no coupon configured", "code", code)
		}
	}

	subs := cfg.Store
	if subs == nil {
		if cfg.DatabaseURL == "" {
			slog.Warn("databaseURL empty, using in-memory subscription store")
			subs = store.NewMemoryStore()
		} else {
			gormStore, err := store.NewGormStore(cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("init postgres store: %w", err)
			}
			subs = gormStore
		}
	}

	return &App{
		store:         subs,
		provider:      cfg.Provider,
		webhookSecret: cfg.WebhookSecret,
		prices:        cfg.Prices,
		coupons:       cfg.Coupons,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// CheckoutInput is the relay's request body.
type CheckoutInput struct {
	UserID    string
	Email     string
	PriceType string
	PromoCode string
}

// CreateCheckoutSession validates the plan and promo code and returns the
// hosted checkout URL.
func (a *App) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (string, error) {
	if strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.Email) == "" {
		return "", ErrUserRequired
	}
	plan := domain.Plan(strings.ToLower(strings.TrimSpace(in.PriceType)))
	if !plan.IsValid() {
		return "", ErrInvalidPlan
	}
	code := pricing.NormalizeCode(in.PromoCode)
	coupon := ""
	if code != "" {
		if _, ok := pricing.Lookup(code); !ok {
			return "", pricing.ErrInvalidPromoCode
		}
		coupon = a.coupons[code]
		if coupon == "" {
			return "", ErrPromoUnavailable
		}
	}
	sess, err := a.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		UserID:     in.UserID,
		Email:      strings.TrimSpace(in.Email),
		Plan:       string(plan),
		PriceID:    a.prices[plan],
		CouponID:   coupon,
		PromoCode:  code,
		SuccessURL: a.successURL,
		CancelURL:  a.cancelURL,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	if sess.URL == "" {
		return "", fmt.Errorf("%w: empty session url", ErrCheckoutFailed)
	}
	util.LoggerFromContext(ctx).Info("checkout session created",
		"user_id", in.UserID, "plan", plan, "promo_code", code, "session_id", sess.ID)
	return sess.URL, nil
}

// HandleWebhook verifies the signature and applies subscription events.
// Unhandled event types are acknowledged without effect.
func (a *App) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, a.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if event.Data == nil {
		return fmt.Errorf("%w: missing data", ErrInvalidEvent)
	}
	logger := util.LoggerFromContext(ctx).With("event_id", event.ID, "event_type", string(event.Type))
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		sub, err := a.activate(sess, time.Unix(event.Created, 0).UTC())
		if err != nil {
			return err
		}
		logger.Info("subscription activated", "user_id", sub.UserID, "plan", sub.Plan, "provider_ref", sub.ProviderRef)
	case "customer.subscription.deleted":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		found, err := a.cancel(ss)
		if err != nil {
			return err
		}
		if !found {
			logger.Warn("canceled subscription not found", "provider_ref", ss.ID)
			return nil
		}
		logger.Info("subscription canceled", "provider_ref", ss.ID)
	default:
		logger.Debug("webhook event ignored")
	}
	return nil
}

// activate upserts the user's subscription as active.
func (a *App) activate(sess stripe.CheckoutSession, start time.Time) (domain.Subscription, error) {
	userID := sess.ClientReferenceID
	if userID == "" {
		userID = sess.Metadata["user_id"]
	}
	if userID == "" {
		return domain.Subscription{}, fmt.Errorf("%w: session %s has no user reference", ErrInvalidEvent, sess.ID)
	}
	plan := domain.Plan(sess.Metadata["plan"])
	if !plan.IsValid() {
		return domain.Subscription{}, fmt.Errorf("%w: session %s has no plan", ErrInvalidEvent, sess.ID)
	}
	ref := sess.ID
	if sess.Subscription != nil && sess.Subscription.ID != "" {
		ref = sess.Subscription.ID
	}
	if start.IsZero() || start.Unix() == 0 {
		start = a.now()
	}

	now := a.now()
	sub, ok, err := a.store.GetSubscriptionByUser(userID)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("load subscription: %w", err)
	}
	if !ok {
		sub = domain.Subscription{ID: util.NewID(), UserID: userID, CreatedAt: now}
	}
	sub.Status = domain.SubscriptionActive
	sub.Plan = plan
	sub.CurrentPeriodStart = start
	sub.CurrentPeriodEnd = plan.PeriodEnd(start)
	sub.ProviderRef = ref
	sub.TestMode = false
	sub.UpdatedAt = now
	if err := a.store.SaveSubscription(sub); err != nil {
		return domain.Subscription{}, fmt.Errorf("save subscription: %w", err)
	}
	return sub, nil
}

func (a *App) cancel(ss stripe.Subscription) (bool, error) {
	sub, ok, err := a.store.GetSubscriptionByProviderRef(ss.ID)
	if err != nil {
		return false, fmt.Errorf("load subscription: %w", err)
	}
	if !ok {
		userID := ss.Metadata["user_id"]
		if userID == "" {
			return false, nil
		}
		sub, ok, err = a.store.GetSubscriptionByUser(userID)
		if err != nil {
			return false, fmt.Errorf("load subscription: %w", err)
		}
		if !ok {
			return false, nil
		}
	}
	sub.Status = domain.SubscriptionCanceled
	sub.UpdatedAt = a.now()
	if err := a.store.SaveSubscription(sub); err != nil {
		return false, fmt.Errorf("save subscription: %w", err)
	}
	return true, nil
}
