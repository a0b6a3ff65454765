package onboarding

// Step is a wizard stage. Steps advance one at a time.
type Step int

const (
	StepBasicInfo Step = iota + 1
	StepVisualIdentity
	StepToneAndPlatforms
	StepCalibration
	StepConfirmation
	StepCompleted
)

func (s Step) String() string {
	switch s {
	case StepBasicInfo:
		return "basic_info"
	case StepVisualIdentity:
		return "visual_identity"
	case StepToneAndPlatforms:
		return "tone_and_platforms"
	case StepCalibration:
		return "calibration"
	case StepConfirmation:
		return "confirmation"
	case StepCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Valid reports whether s is a navigable step (Completed excluded).
func (s Step) Valid() bool {
	return s >= StepBasicInfo && s <= StepConfirmation
}
