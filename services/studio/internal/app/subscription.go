package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ainastudio/internal/util"
	"ainastudio/pkg/domain"
	"ainastudio/pkg/pricing"
	"ainastudio/services/studio/internal/billingclient"
)

// SubscriptionStatus is the user's current subscription with its effective
// state at read time.
type SubscriptionStatus struct {
	Subscription domain.Subscription `json:"subscription"`
	Active       bool                `json:"active"`
}

// Quote prices plan with an optional promo code. An unknown code yields a
// quote marked invalid at the base price together with the error.
func (a *App) Quote(plan domain.Plan, code string) (pricing.Quote, error) {
	if !plan.IsValid() {
		return pricing.Quote{Plan: plan}, fmt.Errorf("%w: %q", ErrInvalidPlan, plan)
	}
	return pricing.QuotePlan(plan, code)
}

func (a *App) Subscription(_ context.Context, userID string) (SubscriptionStatus, error) {
	sub, ok, err := a.store.GetSubscriptionByUser(userID)
	if err != nil {
		return SubscriptionStatus{}, err
	}
	if !ok {
		return SubscriptionStatus{}, ErrNoSubscription
	}
	return SubscriptionStatus{Subscription: sub, Active: isActive(sub, time.Now())}, nil
}

// StartCheckout asks the payment relay for a hosted checkout URL.
func (a *App) StartCheckout(ctx context.Context, user domain.User, plan domain.Plan, promoCode string) (string, error) {
	if !plan.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlan, plan)
	}
	code := pricing.NormalizeCode(promoCode)
	if code != "" {
		if _, ok := pricing.Lookup(code); !ok {
			return "", pricing.ErrInvalidPromoCode
		}
	}
	if err := a.ensureNotSubscribed(user.ID); err != nil {
		return "", err
	}
	if a.checkout == nil {
		return "", ErrPaymentUnavailable
	}
	req := billingclient.CheckoutRequest{UserID: user.ID, Email: user.Email, PriceType: string(plan)}
	if code != "" {
		req.PromoCode = &code
	}
	url, err := a.checkout.CreateCheckoutSession(ctx, req)
	if err != nil {
		var apiErr *billingclient.APIError
		if errors.As(err, &apiErr) {
			return "", err
		}
		a.logger.Warn("payment relay unreachable", "user_id", user.ID, "err", err)
		return "", fmt.Errorf("%w: %w", ErrPaymentUnavailable, err)
	}
	a.logger.Info("checkout started", "user_id", user.ID, "plan", plan, "promo", code)
	return url, nil
}

// ActivateTestMode records an active subscription without payment. It is the
// explicit fallback a user opts into when the payment relay is down.
func (a *App) ActivateTestMode(_ context.Context, userID string, plan domain.Plan, confirm bool) (domain.Subscription, error) {
	if !a.allowTestMode {
		return domain.Subscription{}, ErrTestModeDisabled
	}
	if !confirm {
		return domain.Subscription{}, ErrConfirmRequired
	}
	if !plan.IsValid() {
		return domain.Subscription{}, fmt.Errorf("%w: %q", ErrInvalidPlan, plan)
	}
	if err := a.ensureNotSubscribed(userID); err != nil {
		return domain.Subscription{}, err
	}
	now := time.Now().UTC()
	sub := domain.Subscription{
		ID:                 util.NewID(),
		UserID:             userID,
		Status:             domain.SubscriptionActive,
		Plan:               plan,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   plan.PeriodEnd(now),
		TestMode:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := a.store.SaveSubscription(sub); err != nil {
		return domain.Subscription{}, err
	}
	a.logger.Warn("test mode subscription activated", "user_id", userID, "plan", plan)
	return sub, nil
}

func (a *App) ensureNotSubscribed(userID string) error {
	sub, ok, err := a.store.GetSubscriptionByUser(userID)
	if err != nil {
		return err
	}
	if ok && isActive(sub, time.Now()) {
		return ErrAlreadySubscribed
	}
	return nil
}

func isActive(sub domain.Subscription, now time.Time) bool {
	return sub.Status == domain.SubscriptionActive && now.Before(sub.CurrentPeriodEnd)
}

// ParsePlan normalises a plan name from a request.
func ParsePlan(raw string) domain.Plan {
	return domain.Plan(strings.ToLower(strings.TrimSpace(raw)))
}
