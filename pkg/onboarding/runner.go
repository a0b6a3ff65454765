package onboarding

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

const maxParallel = 4

// ImageGenerator produces one image for a prompt, returned as a data URL or
// public URL.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Runner executes calibration rounds against an ImageGenerator.
type Runner struct {
	Generator ImageGenerator
	// Parallel issues all requests at once; results are emitted in arrival
	// order instead of preset order.
	Parallel bool
	Logger   *slog.Logger
}

// Run issues every request of round and calls emit for each success as soon
// as it arrives. Failed requests are logged and skipped. An emit error stops
// the round. Run returns the number of emitted candidates.
func (r *Runner) Run(ctx context.Context, round Round, emit func(Candidate) error) int {
	if r.Parallel {
		return r.runParallel(ctx, round, emit)
	}
	n := 0
	for _, req := range round.Requests {
		if ctx.Err() != nil {
			break
		}
		cand, ok := r.generate(ctx, round, req)
		if !ok {
			continue
		}
		if err := emit(cand); err != nil {
			r.logger().Info("calibration round abandoned", "attempt", round.Attempt, "err", err)
			return n
		}
		n++
	}
	return n
}

func (r *Runner) runParallel(ctx context.Context, round Round, emit func(Candidate) error) int {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	var (
		mu sync.Mutex
		n  int
	)
	for _, req := range round.Requests {
		g.Go(func() error {
			cand, ok := r.generate(gctx, round, req)
			if !ok {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			if gctx.Err() != nil {
				return nil
			}
			if err := emit(cand); err != nil {
				return err
			}
			n++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger().Info("calibration round abandoned", "attempt", round.Attempt, "err", err)
	}
	return n
}

func (r *Runner) generate(ctx context.Context, round Round, req Request) (Candidate, bool) {
	img, err := r.Generator.GenerateImage(ctx, req.Prompt)
	if err != nil {
		r.logger().Warn("calibration candidate failed",
			"attempt", round.Attempt, "preset", req.Preset.Key, "err", err)
		return Candidate{}, false
	}
	if img == "" {
		r.logger().Warn("calibration candidate empty", "attempt", round.Attempt, "preset", req.Preset.Key)
		return Candidate{}, false
	}
	return Candidate{PresetKey: req.Preset.Key, Style: req.Preset.Label, Image: img}, true
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
