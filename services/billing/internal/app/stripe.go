package app

import (
	"context"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// CheckoutRequest is one hosted checkout to open.
type CheckoutRequest struct {
	UserID     string
	Email      string
	Plan       string
	PriceID    string
	CouponID   string
	PromoCode  string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the provider's answer.
type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutProvider opens hosted checkout sessions.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
}

// StripeProvider opens Stripe Checkout sessions in subscription mode.
type StripeProvider struct {
	api *client.API
}

func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{api: client.New(secretKey, nil)}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(req.PriceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		CustomerEmail:     stripe.String(req.Email),
		ClientReferenceID: stripe.String(req.UserID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": req.UserID, "plan": req.Plan},
		},
	}
	params.Context = ctx
	if req.CouponID != "" {
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{{Coupon: stripe.String(req.CouponID)}}
	}
	params.AddMetadata("user_id", req.UserID)
	params.AddMetadata("plan", req.Plan)
	if req.PromoCode != "" {
		params.AddMetadata("promo_code", req.PromoCode)
	}
	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, err
	}
	return CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}
