package onboarding

import (
	"context"
	"errors"
	"testing"
)

func TestRunnerParallelKeepsSuccessRule(t *testing.T) {
	w := wizardAtCalibration(t)
	gen := &fakeGenerator{failKeys: map[string]bool{"closeup": true}}
	n, err := runRound(w, gen, true, "Nouveau plat du jour")
	if err != nil {
		t.Fatalf("run round: %v", err)
	}
	if n != 3 || len(w.Calibration.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(w.Calibration.Candidates))
	}
	if gen.calls() != 4 {
		t.Fatalf("expected 4 calls, got %d", gen.calls())
	}

	w = wizardAtCalibration(t)
	if _, err := runRound(w, &fakeGenerator{failAll: true}, true, "x"); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected failure, got %v", err)
	}
}

func TestRunnerStopsOnEmitError(t *testing.T) {
	w := wizardAtCalibration(t)
	round, _ := w.BeginRound("Brunch")
	gen := &fakeGenerator{}
	r := &Runner{Generator: gen}
	n := r.Run(context.Background(), round, func(Candidate) error { return ErrStaleRound })
	if n != 0 || gen.calls() != 1 {
		t.Fatalf("expected stop after first emit, got n=%d calls=%d", n, gen.calls())
	}
}

func TestRunnerHonoursCancellation(t *testing.T) {
	w := wizardAtCalibration(t)
	round, _ := w.BeginRound("Brunch")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &fakeGenerator{}
	n := (&Runner{Generator: gen}).Run(ctx, round, func(Candidate) error { return nil })
	if n != 0 || gen.calls() != 0 {
		t.Fatalf("expected no calls after cancel, got n=%d calls=%d", n, gen.calls())
	}
}
