package app

import "errors"

var (
	ErrAlreadyOnboarded    = errors.New("already onboarded")
	ErrBusinessNotFound    = errors.New("business not found")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrTemplateNameMissing = errors.New("template name is required")
	ErrDescriptionRequired = errors.New("description is required")
	ErrInvalidPlatform     = errors.New("invalid platform")
	ErrInvalidTone         = errors.New("invalid tone")
	ErrTextGeneration      = errors.New("text generation failed")
	ErrInvalidPlan         = errors.New("invalid plan")
	ErrPaymentUnavailable  = errors.New("payment service unavailable")
	ErrTestModeDisabled    = errors.New("test mode is disabled")
	ErrConfirmRequired     = errors.New("test mode requires explicit confirmation")
	ErrAlreadySubscribed   = errors.New("subscription already active")
	ErrNoSubscription      = errors.New("no subscription")
)
