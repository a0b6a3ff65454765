package onboarding

import (
	"errors"
	"testing"

	"ainastudio/pkg/domain"
)

func TestGatesBlockAdvance(t *testing.T) {
	w := New()
	for i := 0; i < 3; i++ {
		if err := w.Continue(nil); !errors.Is(err, ErrGateClosed) {
			t.Fatalf("expected gate closed at step 1, got %v", err)
		}
	}
	if w.Step != StepBasicInfo {
		t.Fatalf("expected step 1, got %s", w.Step)
	}

	d, _ := w.Edit(StepBasicInfo)
	_ = d.SetBasicInfo("Le Petit Bistrot", "", "")
	if w.CanAdvance() {
		t.Fatalf("expected gate closed without business type")
	}
	_ = d.SetBasicInfo("   ", domain.BusinessBar, "")
	if w.CanAdvance() {
		t.Fatalf("expected gate closed with blank name")
	}
	_ = d.SetBasicInfo("Chez Paul", domain.BusinessBar, "")
	mustContinue(t, w)
	if w.Step != StepVisualIdentity {
		t.Fatalf("expected step 2, got %s", w.Step)
	}

	// step 2 has no required fields
	mustContinue(t, w)

	d, _ = w.Edit(StepToneAndPlatforms)
	_ = d.SetTone(domain.ToneYoung)
	for i := 0; i < 3; i++ {
		if err := w.Continue(nil); !errors.Is(err, ErrGateClosed) {
			t.Fatalf("expected gate closed without platforms, got %v", err)
		}
	}
	_ = d.SetTone("")
	_ = d.SetPlatforms([]domain.Platform{domain.PlatformTikTok})
	if err := w.Continue(nil); !errors.Is(err, ErrGateClosed) {
		t.Fatalf("expected gate closed without tone, got %v", err)
	}
	_ = d.SetTone(domain.ToneYoung)
	mustContinue(t, w)

	if w.Step != StepCalibration || w.Calibration == nil {
		t.Fatalf("expected calibration session at step 4")
	}
	for i := 0; i < 3; i++ {
		if err := w.Continue(nil); !errors.Is(err, ErrGateClosed) {
			t.Fatalf("expected gate closed before calibration, got %v", err)
		}
	}
	if w.Step != StepCalibration {
		t.Fatalf("expected to stay on step 4, got %s", w.Step)
	}
}

func TestCalibrationGateNeedsSelectionAndConfirm(t *testing.T) {
	w := wizardAtCalibration(t)
	if _, err := runRound(w, &fakeGenerator{}, false, "Nouveau plat du jour"); err != nil {
		t.Fatalf("run round: %v", err)
	}
	if w.CanAdvance() {
		t.Fatalf("expected gate closed with nothing selected")
	}
	if err := w.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if w.CanAdvance() {
		t.Fatalf("expected gate closed before confirm")
	}
	if err := w.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !w.CanAdvance() {
		t.Fatalf("expected gate open after confirm")
	}
}

func TestBackKeepsData(t *testing.T) {
	w := wizardAtCalibration(t)
	if err := w.Back(StepBasicInfo); err != nil {
		t.Fatalf("back: %v", err)
	}
	if w.Profile.BusinessName != "Le Petit Bistrot" || w.Profile.Tone != domain.ToneFamily {
		t.Fatalf("expected data kept, got %+v", w.Profile)
	}
	if err := w.Back(StepCalibration); !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("expected forward jump rejected, got %v", err)
	}
	mustContinue(t, w)
	mustContinue(t, w)
	mustContinue(t, w)
	if w.Step != StepCalibration || w.Calibration == nil {
		t.Fatalf("expected to return to calibration")
	}
}

func TestEditRequiresCurrentStep(t *testing.T) {
	w := New()
	if _, err := w.Edit(StepToneAndPlatforms); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected wrong step, got %v", err)
	}
}

func TestEndToEndPersistsSelectedStyle(t *testing.T) {
	w := wizardAtCalibration(t)
	n, err := runRound(w, &fakeGenerator{}, false, "Nouveau plat du jour")
	if err != nil {
		t.Fatalf("run round: %v", err)
	}
	if n != 4 || len(w.Calibration.Candidates) != 4 {
		t.Fatalf("expected 4 candidates, got %d/%d", n, len(w.Calibration.Candidates))
	}
	if err := w.Select(2); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := w.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	mustContinue(t, w)
	if w.Step != StepConfirmation {
		t.Fatalf("expected step 5, got %s", w.Step)
	}

	var saved []domain.Business
	err = w.Continue(func(b domain.Business) error {
		saved = append(saved, b)
		return nil
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if w.Step != StepCompleted {
		t.Fatalf("expected completed, got %s", w.Step)
	}
	if len(saved) != 1 {
		t.Fatalf("expected exactly one write, got %d", len(saved))
	}
	b := saved[0]
	if b.PreferredStyle != StylePresets[2].Label {
		t.Fatalf("expected style %q, got %q", StylePresets[2].Label, b.PreferredStyle)
	}
	if b.Tone != "Familial" {
		t.Fatalf("expected tone Familial, got %q", b.Tone)
	}
	if len(b.Platforms) != 2 || b.Platforms[0] != "Instagram" || b.Platforms[1] != "Facebook" {
		t.Fatalf("unexpected platforms: %v", b.Platforms)
	}
	if b.Name != "Le Petit Bistrot" || b.Type != domain.BusinessRestaurant {
		t.Fatalf("unexpected identity: %+v", b)
	}
	if err := w.Continue(nil); !errors.Is(err, ErrCompleted) {
		t.Fatalf("expected completed error, got %v", err)
	}
}

func TestEndToEndAllGenerationsFail(t *testing.T) {
	w := wizardAtCalibration(t)
	gen := &fakeGenerator{failAll: true}
	n, err := runRound(w, gen, false, "Nouveau plat du jour")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected generation failure, got %v", err)
	}
	if n != 0 || gen.calls() != 4 {
		t.Fatalf("expected 4 attempts and no candidates, got calls=%d n=%d", gen.calls(), n)
	}
	c := w.Calibration
	if w.Step != StepCalibration || c.Phase != PhaseInput {
		t.Fatalf("expected step 4 input, got %s/%s", w.Step, c.Phase)
	}
	if c.Description != "Nouveau plat du jour" {
		t.Fatalf("expected description kept, got %q", c.Description)
	}
	writes := 0
	err = w.Continue(func(domain.Business) error {
		writes++
		return nil
	})
	if !errors.Is(err, ErrGateClosed) {
		t.Fatalf("expected gate closed, got %v", err)
	}
	if writes != 0 || w.Step != StepCalibration {
		t.Fatalf("expected no write and no navigation")
	}
}

func TestCompletionFailureKeepsState(t *testing.T) {
	w := wizardAtCalibration(t)
	if _, err := runRound(w, &fakeGenerator{}, false, "Menu du midi"); err != nil {
		t.Fatalf("run round: %v", err)
	}
	_ = w.Select(0)
	_ = w.Confirm()
	mustContinue(t, w)

	err := w.Continue(func(domain.Business) error { return errors.New("db down") })
	if !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("expected persist failure, got %v", err)
	}
	if w.Step != StepConfirmation {
		t.Fatalf("expected to stay on step 5, got %s", w.Step)
	}
	if w.Profile.PreferredStyle != StylePresets[0].Label || w.Profile.BusinessName == "" {
		t.Fatalf("expected profile kept, got %+v", w.Profile)
	}
	mustContinue(t, w)
	if w.Step != StepCompleted {
		t.Fatalf("expected retry to complete, got %s", w.Step)
	}
}
