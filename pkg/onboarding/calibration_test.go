package onboarding

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestPartialSuccessCountsCandidates(t *testing.T) {
	for k := 0; k <= len(StylePresets); k++ {
		t.Run(fmt.Sprintf("%d_successes", k), func(t *testing.T) {
			fail := map[string]bool{}
			for _, p := range StylePresets[k:] {
				fail[p.Key] = true
			}
			w := wizardAtCalibration(t)
			_, err := runRound(w, &fakeGenerator{failKeys: fail}, false, "Nouveau plat du jour")
			c := w.Calibration
			if len(c.Candidates) != k {
				t.Fatalf("expected %d candidates, got %d", k, len(c.Candidates))
			}
			if k == 0 {
				if !errors.Is(err, ErrGenerationFailed) || c.Phase != PhaseInput {
					t.Fatalf("expected failure back to input, got %v/%s", err, c.Phase)
				}
				return
			}
			if err != nil || c.Phase != PhaseSelecting {
				t.Fatalf("expected selecting, got %v/%s", err, c.Phase)
			}
			for i, cand := range c.Candidates {
				if cand.Style != StylePresets[i].Label {
					t.Fatalf("expected preset order, got %q at %d", cand.Style, i)
				}
			}
		})
	}
}

func TestRegenerateClearsSelection(t *testing.T) {
	w := wizardAtCalibration(t)
	if _, err := runRound(w, &fakeGenerator{}, false, "Nouveau plat du jour"); err != nil {
		t.Fatalf("run round: %v", err)
	}
	_ = w.Select(3)
	if err := w.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := w.Regenerate(); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	c := w.Calibration
	if c.IsCalibrated || c.SelectedIndex != nil || len(c.Candidates) != 0 {
		t.Fatalf("expected cleared session, got %+v", c)
	}
	if c.Round != 2 || c.Phase != PhaseInput {
		t.Fatalf("expected round 2 input, got %d/%s", c.Round, c.Phase)
	}
	if c.Description != "Nouveau plat du jour" {
		t.Fatalf("expected description kept, got %q", c.Description)
	}
	if w.Profile.PreferredStyle != "" {
		t.Fatalf("expected preferred style cleared")
	}
	if w.CanAdvance() {
		t.Fatalf("expected gate closed after regenerate")
	}
	if err := w.Select(0); !errors.Is(err, ErrNotSelecting) {
		t.Fatalf("expected no selection before a new round, got %v", err)
	}
}

func TestRegenerateAfterFailedRound(t *testing.T) {
	w := wizardAtCalibration(t)
	if err := w.Regenerate(); !errors.Is(err, ErrNothingToRegenerate) {
		t.Fatalf("expected nothing to regenerate, got %v", err)
	}
	_, _ = runRound(w, &fakeGenerator{failAll: true}, false, "Brunch")
	if err := w.Regenerate(); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if w.Calibration.Round != 2 {
		t.Fatalf("expected round 2, got %d", w.Calibration.Round)
	}
}

func TestSelectOverwritesAndWithdrawsConfirmation(t *testing.T) {
	w := wizardAtCalibration(t)
	_, _ = runRound(w, &fakeGenerator{}, false, "Brunch")
	_ = w.Select(0)
	_ = w.Select(1)
	if *w.Calibration.SelectedIndex != 1 {
		t.Fatalf("expected selection 1")
	}
	_ = w.Confirm()
	if w.Profile.PreferredStyle != StylePresets[1].Label {
		t.Fatalf("unexpected style %q", w.Profile.PreferredStyle)
	}
	_ = w.Select(2)
	if w.Calibration.IsCalibrated || w.CanAdvance() {
		t.Fatalf("expected confirmation withdrawn")
	}
	if err := w.Select(7); !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected invalid selection, got %v", err)
	}
}

func TestConfirmRequiresSelection(t *testing.T) {
	w := wizardAtCalibration(t)
	_, _ = runRound(w, &fakeGenerator{}, false, "Brunch")
	if err := w.Confirm(); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected no selection, got %v", err)
	}
}

func TestBeginRoundValidation(t *testing.T) {
	w := New()
	if _, err := w.BeginRound("x"); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected wrong step, got %v", err)
	}
	w = wizardAtCalibration(t)
	if _, err := w.BeginRound("   "); !errors.Is(err, ErrDescriptionRequired) {
		t.Fatalf("expected description required, got %v", err)
	}
	if _, err := w.BeginRound("Brunch"); err != nil {
		t.Fatalf("begin round: %v", err)
	}
	if _, err := w.BeginRound("Brunch"); !errors.Is(err, ErrRoundInProgress) {
		t.Fatalf("expected round in progress, got %v", err)
	}
	if err := w.Regenerate(); !errors.Is(err, ErrRoundInProgress) {
		t.Fatalf("expected regenerate blocked while generating, got %v", err)
	}
}

func TestStaleResultsIgnored(t *testing.T) {
	w := wizardAtCalibration(t)
	first, err := w.BeginRound("Brunch")
	if err != nil {
		t.Fatalf("begin round: %v", err)
	}
	if err := w.FinishRound(first.Attempt); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected failure, got %v", err)
	}
	second, err := w.BeginRound("Brunch du dimanche")
	if err != nil {
		t.Fatalf("begin round: %v", err)
	}
	if err := w.AddCandidate(first.Attempt, Candidate{Style: "old"}); !errors.Is(err, ErrStaleRound) {
		t.Fatalf("expected stale round, got %v", err)
	}
	if err := w.AddCandidate(second.Attempt, Candidate{Style: "new"}); err != nil {
		t.Fatalf("add candidate: %v", err)
	}
	if len(w.Calibration.Candidates) != 1 || w.Calibration.Candidates[0].Style != "new" {
		t.Fatalf("unexpected candidates: %+v", w.Calibration.Candidates)
	}
}

func TestBeginRoundBuildsOnePromptPerPreset(t *testing.T) {
	w := wizardAtCalibration(t)
	round, err := w.BeginRound("Nouveau plat du jour")
	if err != nil {
		t.Fatalf("begin round: %v", err)
	}
	if len(round.Requests) != len(StylePresets) {
		t.Fatalf("expected %d requests, got %d", len(StylePresets), len(round.Requests))
	}
	for i, req := range round.Requests {
		if req.Preset.Key != StylePresets[i].Key {
			t.Fatalf("unexpected preset order at %d", i)
		}
	}
}

func TestExpireRoundSettlesAbandonedGeneration(t *testing.T) {
	w := wizardAtCalibration(t)
	round, err := w.BeginRound("Terrasse au soleil")
	if err != nil {
		t.Fatalf("begin round: %v", err)
	}
	if err := w.AddCandidate(round.Attempt, Candidate{PresetKey: "closeup", Style: "x", Image: "img"}); err != nil {
		t.Fatalf("add candidate: %v", err)
	}
	started := w.Calibration.StartedAt
	if w.ExpireRound(time.Minute, started.Add(30*time.Second)) {
		t.Fatalf("expected fresh round to be kept")
	}
	if !w.ExpireRound(time.Minute, started.Add(2*time.Minute)) {
		t.Fatalf("expected stale round to expire")
	}
	if w.Calibration.Phase != PhaseSelecting || len(w.Calibration.Candidates) != 1 {
		t.Fatalf("expected selecting with partial results, got %s", w.Calibration.Phase)
	}
	if err := w.AddCandidate(round.Attempt, Candidate{Image: "late"}); !errors.Is(err, ErrStaleRound) {
		t.Fatalf("expected late result to be dropped, got %v", err)
	}
	if w.ExpireRound(time.Minute, started.Add(time.Hour)) {
		t.Fatalf("expected settled round to be left alone")
	}
}
