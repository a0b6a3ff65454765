package onboarding

import "errors"

var (
	ErrGateClosed          = errors.New("step incomplete")
	ErrWrongStep           = errors.New("action not available at current step")
	ErrCompleted           = errors.New("onboarding already completed")
	ErrInvalidStep         = errors.New("invalid step")
	ErrInvalidField        = errors.New("invalid field value")
	ErrDescriptionRequired = errors.New("description is required")
	ErrRoundInProgress     = errors.New("generation already in progress")
	ErrStaleRound          = errors.New("stale calibration round")
	ErrGenerationFailed    = errors.New("no image could be generated")
	ErrNotSelecting        = errors.New("no candidates to select from")
	ErrInvalidSelection    = errors.New("invalid candidate index")
	ErrNoSelection         = errors.New("no candidate selected")
	ErrNothingToRegenerate = errors.New("nothing to regenerate")
	ErrPersistFailed       = errors.New("could not save business profile")
)
