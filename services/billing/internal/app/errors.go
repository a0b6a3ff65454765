package app

import "errors"

var (
	ErrInvalidPlan      = errors.New("priceType must be monthly or yearly")
	ErrUserRequired     = errors.New("userId and email are required")
	ErrPromoUnavailable = errors.New("promo code not available")
	// ErrCheckoutFailed wraps payment provider errors.
	ErrCheckoutFailed   = errors.New("checkout session could not be created")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidEvent     = errors.New("invalid webhook event")
)
