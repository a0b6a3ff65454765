// Package onboarding implements the business onboarding wizard: step
// sequencing with per-step gates and the step 4 style calibration loop.
package onboarding

import (
	"fmt"
	"strings"
	"time"

	"ainastudio/pkg/domain"
)

// Wizard is one user's onboarding session.
type Wizard struct {
	Step        Step                `json:"step"`
	Profile     Draft               `json:"profile"`
	Calibration *CalibrationSession `json:"calibration,omitempty"`
}

// New returns a wizard positioned at step 1.
func New() *Wizard {
	return &Wizard{
		Step: StepBasicInfo,
		Profile: Draft{
			InspirationPhotos: []string{},
			Keywords:          []string{},
			Platforms:         []domain.Platform{},
		},
	}
}

// CanAdvance evaluates the gate of the current step.
func (w *Wizard) CanAdvance() bool {
	switch w.Step {
	case StepBasicInfo:
		return w.Profile.BusinessName != "" && w.Profile.BusinessType != ""
	case StepVisualIdentity:
		return true
	case StepToneAndPlatforms:
		return w.Profile.Tone != "" && len(w.Profile.Platforms) > 0
	case StepCalibration:
		c := w.Calibration
		return c != nil && c.IsCalibrated && c.SelectedIndex != nil
	case StepConfirmation:
		return true
	default:
		return false
	}
}

// Continue advances one step. From the confirmation step it hands the
// assembled profile to save exactly once; on failure the wizard keeps its
// step and data so the caller can retry.
func (w *Wizard) Continue(save func(domain.Business) error) error {
	if w.Step == StepCompleted {
		return ErrCompleted
	}
	if !w.CanAdvance() {
		return ErrGateClosed
	}
	if w.Step < StepConfirmation {
		w.Step++
		if w.Step == StepCalibration && w.Calibration == nil {
			w.Calibration = newCalibrationSession()
		}
		return nil
	}
	if err := save(w.Profile.Business()); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	w.Step = StepCompleted
	return nil
}

// Back moves to an earlier step without touching collected data.
func (w *Wizard) Back(to Step) error {
	if w.Step == StepCompleted {
		return ErrCompleted
	}
	if !to.Valid() || to >= w.Step {
		return fmt.Errorf("%w: %d", ErrInvalidStep, to)
	}
	w.Step = to
	return nil
}

// Edit returns the draft for mutation when the wizard is at step.
func (w *Wizard) Edit(step Step) (*Draft, error) {
	if w.Step == StepCompleted {
		return nil, ErrCompleted
	}
	if w.Step != step {
		return nil, fmt.Errorf("%w: at %s", ErrWrongStep, w.Step)
	}
	return &w.Profile, nil
}

// SuggestedPrompts returns starter descriptions for the current business type.
func (w *Wizard) SuggestedPrompts() []string {
	return SuggestedPromptsFor(w.Profile.BusinessType)
}

func (w *Wizard) calibration() (*CalibrationSession, error) {
	if w.Step != StepCalibration || w.Calibration == nil {
		return nil, fmt.Errorf("%w: at %s", ErrWrongStep, w.Step)
	}
	return w.Calibration, nil
}

// BeginRound starts a generation round for description. Any previous
// candidates, selection and confirmation are discarded first.
func (w *Wizard) BeginRound(description string) (Round, error) {
	c, err := w.calibration()
	if err != nil {
		return Round{}, err
	}
	if c.Phase == PhaseGenerating {
		return Round{}, ErrRoundInProgress
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return Round{}, ErrDescriptionRequired
	}
	c.clearSelection()
	w.Profile.PreferredStyle = ""
	c.Description = description
	c.Phase = PhaseGenerating
	c.LastError = ""
	c.Attempt++
	c.StartedAt = time.Now().UTC()

	round := Round{Attempt: c.Attempt, Number: c.Round, Requests: make([]Request, 0, len(StylePresets))}
	for _, preset := range StylePresets {
		round.Requests = append(round.Requests, Request{
			Preset: preset,
			Prompt: BuildPrompt(description, w.Profile, preset),
		})
	}
	return round, nil
}

// AddCandidate appends a generated image to the round identified by attempt.
func (w *Wizard) AddCandidate(attempt int, cand Candidate) error {
	c := w.Calibration
	if c == nil || c.Attempt != attempt || c.Phase != PhaseGenerating {
		return ErrStaleRound
	}
	if len(c.Candidates) >= len(StylePresets) {
		return ErrStaleRound
	}
	c.Candidates = append(c.Candidates, cand)
	return nil
}

// FinishRound settles the round. With no candidates it reports
// ErrGenerationFailed and returns to description input.
func (w *Wizard) FinishRound(attempt int) error {
	c := w.Calibration
	if c == nil || c.Attempt != attempt || c.Phase != PhaseGenerating {
		return ErrStaleRound
	}
	c.Generated = true
	if len(c.Candidates) == 0 {
		c.Phase = PhaseInput
		c.LastError = ErrGenerationFailed.Error()
		return ErrGenerationFailed
	}
	c.Phase = PhaseSelecting
	return nil
}

// ExpireRound settles a round that has been generating for longer than
// maxAge, as happens when the process running it went away. It reports
// whether the wizard changed.
func (w *Wizard) ExpireRound(maxAge time.Duration, now time.Time) bool {
	c := w.Calibration
	if c == nil || c.Phase != PhaseGenerating || now.Sub(c.StartedAt) <= maxAge {
		return false
	}
	_ = w.FinishRound(c.Attempt)
	return true
}

// Select marks candidate i as the favourite. Changing the selection after
// confirming withdraws the confirmation.
func (w *Wizard) Select(i int) error {
	c, err := w.calibration()
	if err != nil {
		return err
	}
	if c.Phase != PhaseSelecting {
		return ErrNotSelecting
	}
	if i < 0 || i >= len(c.Candidates) {
		return fmt.Errorf("%w: %d", ErrInvalidSelection, i)
	}
	if c.SelectedIndex != nil && *c.SelectedIndex != i {
		c.IsCalibrated = false
		w.Profile.PreferredStyle = ""
	}
	c.SelectedIndex = &i
	return nil
}

// Confirm locks in the selected candidate and records its style.
func (w *Wizard) Confirm() error {
	c, err := w.calibration()
	if err != nil {
		return err
	}
	if c.Phase != PhaseSelecting {
		return ErrNotSelecting
	}
	if c.SelectedIndex == nil {
		return ErrNoSelection
	}
	c.IsCalibrated = true
	w.Profile.PreferredStyle = c.Candidates[*c.SelectedIndex].Style
	return nil
}

// Regenerate discards the current round and returns to description input,
// keeping the description for editing.
func (w *Wizard) Regenerate() error {
	c, err := w.calibration()
	if err != nil {
		return err
	}
	if c.Phase == PhaseGenerating {
		return ErrRoundInProgress
	}
	if !c.Generated {
		return ErrNothingToRegenerate
	}
	c.clearSelection()
	w.Profile.PreferredStyle = ""
	c.Round++
	c.Phase = PhaseInput
	c.LastError = ""
	return nil
}
