package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ainastudio/internal/util"
	"ainastudio/pkg/domain"
	"ainastudio/pkg/onboarding"
	"ainastudio/pkg/storage"
	"ainastudio/pkg/store"
)

// OnboardingState is the client view of a user's wizard.
type OnboardingState struct {
	Completed        bool                           `json:"completed"`
	Step             onboarding.Step                `json:"step"`
	StepName         string                         `json:"stepName"`
	CanAdvance       bool                           `json:"canAdvance"`
	Profile          onboarding.Draft               `json:"profile"`
	Calibration      *onboarding.CalibrationSession `json:"calibration,omitempty"`
	SuggestedPrompts []string                       `json:"suggestedPrompts"`
	StylePresets     []onboarding.StylePreset       `json:"stylePresets"`
	Business         *domain.Business               `json:"business,omitempty"`
}

// UploadFile is one uploaded image.
type UploadFile struct {
	Name string
	Data []byte
}

func snapshot(w *onboarding.Wizard) OnboardingState {
	return OnboardingState{
		Completed:        w.Step == onboarding.StepCompleted,
		Step:             w.Step,
		StepName:         w.Step.String(),
		CanAdvance:       w.CanAdvance(),
		Profile:          w.Profile,
		Calibration:      w.Calibration,
		SuggestedPrompts: w.SuggestedPrompts(),
		StylePresets:     onboarding.StylePresets,
	}
}

// Onboarding returns the current wizard, or a completed view when the user
// already owns a business.
func (a *App) Onboarding(ctx context.Context, userID string) (OnboardingState, error) {
	unlock := a.lock(userID)
	defer unlock()
	w, err := a.loadWizard(ctx, userID)
	if errors.Is(err, ErrAlreadyOnboarded) {
		b, _, err := a.store.GetBusinessByOwner(userID)
		if err != nil {
			return OnboardingState{}, err
		}
		return OnboardingState{
			Completed:    true,
			Step:         onboarding.StepCompleted,
			StepName:     onboarding.StepCompleted.String(),
			StylePresets: onboarding.StylePresets,
			Business:     &b,
		}, nil
	}
	if err != nil {
		return OnboardingState{}, err
	}
	return snapshot(w), nil
}

// ResetOnboarding discards the draft and starts over at step 1.
func (a *App) ResetOnboarding(ctx context.Context, userID string) (OnboardingState, error) {
	unlock := a.lock(userID)
	defer unlock()
	if _, exists, err := a.store.GetBusinessByOwner(userID); err != nil {
		return OnboardingState{}, err
	} else if exists {
		return OnboardingState{}, ErrAlreadyOnboarded
	}
	if err := a.wizards.DeleteWizard(ctx, userID); err != nil {
		return OnboardingState{}, fmt.Errorf("delete wizard: %w", err)
	}
	return snapshot(onboarding.New()), nil
}

func (a *App) SetBasicInfo(ctx context.Context, userID, name string, typ domain.BusinessType, address string) (OnboardingState, error) {
	return a.edit(ctx, userID, onboarding.StepBasicInfo, func(d *onboarding.Draft) error {
		return d.SetBasicInfo(name, typ, address)
	})
}

// UploadLogo stores the logo image and references it from the draft.
func (a *App) UploadLogo(ctx context.Context, userID string, file UploadFile) (OnboardingState, error) {
	return a.edit(ctx, userID, onboarding.StepVisualIdentity, func(d *onboarding.Draft) error {
		up, err := a.uploader.Upload(ctx, userID, "logo", file.Name, file.Data)
		if err != nil {
			return err
		}
		d.SetLogo(up.URL)
		return nil
	})
}

func (a *App) ClearLogo(ctx context.Context, userID string) (OnboardingState, error) {
	return a.edit(ctx, userID, onboarding.StepVisualIdentity, func(d *onboarding.Draft) error {
		d.ClearLogo()
		return nil
	})
}

// UploadPhotos stores inspiration photos in order until the cap is reached.
// Files past the cap are not uploaded. It returns how many were added.
func (a *App) UploadPhotos(ctx context.Context, userID string, files []UploadFile) (OnboardingState, int, error) {
	added := 0
	state, err := a.edit(ctx, userID, onboarding.StepVisualIdentity, func(d *onboarding.Draft) error {
		room := onboarding.MaxInspirationPhotos - len(d.InspirationPhotos)
		if room < len(files) {
			files = files[:max(room, 0)]
		}
		urls := make([]string, 0, len(files))
		for _, f := range files {
			up, err := a.uploader.Upload(ctx, userID, "photos", f.Name, f.Data)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			urls = append(urls, up.URL)
		}
		added = d.AddPhotos(urls...)
		return nil
	})
	return state, added, err
}

func (a *App) RemovePhoto(ctx context.Context, userID string, index int) (OnboardingState, error) {
	return a.edit(ctx, userID, onboarding.StepVisualIdentity, func(d *onboarding.Draft) error {
		return d.RemovePhoto(index)
	})
}

// AddKeyword reports false when the keyword was blank, a duplicate or over the cap.
func (a *App) AddKeyword(ctx context.Context, userID, keyword string) (OnboardingState, bool, error) {
	added := false
	state, err := a.edit(ctx, userID, onboarding.StepVisualIdentity, func(d *onboarding.Draft) error {
		added = d.AddKeyword(keyword)
		return nil
	})
	return state, added, err
}

func (a *App) RemoveKeyword(ctx context.Context, userID, keyword string) (OnboardingState, bool, error) {
	removed := false
	state, err := a.edit(ctx, userID, onboarding.StepVisualIdentity, func(d *onboarding.Draft) error {
		removed = d.RemoveKeyword(keyword)
		return nil
	})
	return state, removed, err
}

func (a *App) SetTonePlatforms(ctx context.Context, userID string, tone domain.Tone, platforms []domain.Platform) (OnboardingState, error) {
	return a.edit(ctx, userID, onboarding.StepToneAndPlatforms, func(d *onboarding.Draft) error {
		if err := d.SetTone(tone); err != nil {
			return err
		}
		return d.SetPlatforms(platforms)
	})
}

func (a *App) TogglePlatform(ctx context.Context, userID string, platform domain.Platform) (OnboardingState, error) {
	return a.edit(ctx, userID, onboarding.StepToneAndPlatforms, func(d *onboarding.Draft) error {
		return d.TogglePlatform(platform)
	})
}

// StartCalibration opens a generation round and runs it in the background.
// The returned state is already in the generating phase; candidates appear
// in later reads as they arrive.
func (a *App) StartCalibration(ctx context.Context, userID, description string) (OnboardingState, error) {
	var round onboarding.Round
	state, err := a.mutate(ctx, userID, func(w *onboarding.Wizard) error {
		var err error
		round, err = w.BeginRound(description)
		return err
	})
	if err != nil {
		return state, err
	}
	a.wg.Add(1)
	go a.runCalibration(userID, round)
	return state, nil
}

func (a *App) runCalibration(userID string, round onboarding.Round) {
	defer a.wg.Done()
	ctx, cancel := context.WithTimeout(a.baseCtx, a.roundTimeout)
	defer cancel()
	logger := a.logger.With("user_id", userID, "attempt", round.Attempt)
	start := time.Now()

	runner := onboarding.Runner{
		Generator: &candidateImages{images: a.images, uploader: a.uploader, ownerID: userID},
		Parallel:  a.parallel,
		Logger:    logger,
	}
	n := runner.Run(ctx, round, func(c onboarding.Candidate) error {
		_, err := a.mutate(ctx, userID, func(w *onboarding.Wizard) error {
			return w.AddCandidate(round.Attempt, c)
		})
		return err
	})

	// Settle even when the round context is gone so the draft leaves the
	// generating phase.
	settleCtx, settleCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer settleCancel()
	unlock := a.lock(userID)
	defer unlock()
	w, ok, err := a.wizards.LoadWizard(settleCtx, userID)
	if err != nil || !ok {
		logger.Warn("calibration round settle skipped", "found", ok, "err", err)
		return
	}
	err = w.FinishRound(round.Attempt)
	if errors.Is(err, onboarding.ErrStaleRound) {
		logger.Info("calibration round superseded")
		return
	}
	if saveErr := a.wizards.SaveWizard(settleCtx, userID, w); saveErr != nil {
		logger.Error("calibration round save failed", "err", saveErr)
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failed"
	} else if n < len(round.Requests) {
		outcome = "partial"
	}
	a.metrics.ObserveGeneration("calibration", outcome, time.Since(start))
	logger.Info("calibration round finished", "candidates", n, "outcome", outcome)
}

func (a *App) SelectCandidate(ctx context.Context, userID string, index int) (OnboardingState, error) {
	return a.mutate(ctx, userID, func(w *onboarding.Wizard) error {
		return w.Select(index)
	})
}

func (a *App) ConfirmCalibration(ctx context.Context, userID string) (OnboardingState, error) {
	return a.mutate(ctx, userID, func(w *onboarding.Wizard) error {
		return w.Confirm()
	})
}

func (a *App) RegenerateCalibration(ctx context.Context, userID string) (OnboardingState, error) {
	return a.mutate(ctx, userID, func(w *onboarding.Wizard) error {
		return w.Regenerate()
	})
}

// Continue advances the wizard. From the confirmation step it creates the
// business, drops the draft and returns the stored business.
func (a *App) Continue(ctx context.Context, userID string) (OnboardingState, *domain.Business, error) {
	unlock := a.lock(userID)
	defer unlock()
	w, err := a.loadWizard(ctx, userID)
	if err != nil {
		return OnboardingState{}, nil, err
	}
	var created *domain.Business
	err = w.Continue(func(b domain.Business) error {
		now := time.Now().UTC()
		b.ID = util.NewID()
		b.OwnerID = userID
		b.CreatedAt = now
		b.UpdatedAt = now
		if err := a.store.CreateBusiness(b); err != nil {
			return err
		}
		created = &b
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrBusinessExists) {
			return OnboardingState{}, nil, ErrAlreadyOnboarded
		}
		return OnboardingState{}, nil, err
	}
	state := snapshot(w)
	if created != nil {
		if err := a.wizards.DeleteWizard(ctx, userID); err != nil {
			a.logger.Warn("delete completed wizard failed", "user_id", userID, "err", err)
		}
		state.Business = created
		a.logger.Info("business onboarded", "user_id", userID, "business_id", created.ID)
		return state, created, nil
	}
	if err := a.wizards.SaveWizard(ctx, userID, w); err != nil {
		return OnboardingState{}, nil, fmt.Errorf("save wizard: %w", err)
	}
	return state, nil, nil
}

func (a *App) Back(ctx context.Context, userID string, to onboarding.Step) (OnboardingState, error) {
	return a.mutate(ctx, userID, func(w *onboarding.Wizard) error {
		return w.Back(to)
	})
}

func (a *App) edit(ctx context.Context, userID string, step onboarding.Step, fn func(*onboarding.Draft) error) (OnboardingState, error) {
	return a.mutate(ctx, userID, func(w *onboarding.Wizard) error {
		d, err := w.Edit(step)
		if err != nil {
			return err
		}
		return fn(d)
	})
}

// mutate applies fn to the user's wizard under the user lock and saves the
// result. Nothing is saved when fn fails.
func (a *App) mutate(ctx context.Context, userID string, fn func(*onboarding.Wizard) error) (OnboardingState, error) {
	unlock := a.lock(userID)
	defer unlock()
	w, err := a.loadWizard(ctx, userID)
	if err != nil {
		return OnboardingState{}, err
	}
	if err := fn(w); err != nil {
		return OnboardingState{}, err
	}
	if err := a.wizards.SaveWizard(ctx, userID, w); err != nil {
		return OnboardingState{}, fmt.Errorf("save wizard: %w", err)
	}
	return snapshot(w), nil
}

// loadWizard returns the stored draft or a fresh one. Callers hold the user lock.
func (a *App) loadWizard(ctx context.Context, userID string) (*onboarding.Wizard, error) {
	w, ok, err := a.wizards.LoadWizard(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wizard: %w", err)
	}
	if ok {
		if w.ExpireRound(a.roundTimeout+time.Minute, time.Now()) {
			a.logger.Warn("expired abandoned calibration round", "user_id", userID)
		}
		return w, nil
	}
	_, exists, err := a.store.GetBusinessByOwner(userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyOnboarded
	}
	return onboarding.New(), nil
}

// candidateImages moves relay images into object storage so drafts hold URLs
// rather than inline payloads when storage is available.
type candidateImages struct {
	images   onboarding.ImageGenerator
	uploader *storage.ImageUploader
	ownerID  string
}

func (c *candidateImages) GenerateImage(ctx context.Context, prompt string) (string, error) {
	img, err := c.images.GenerateImage(ctx, prompt)
	if err != nil {
		return "", err
	}
	up, err := c.uploader.StoreDataURL(ctx, c.ownerID, "calibration", img)
	if err != nil {
		return "", fmt.Errorf("store candidate: %w", err)
	}
	return up.URL, nil
}
