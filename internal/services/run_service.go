package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/themizzi/retailcheck/internal/cart"
	"github.com/themizzi/retailcheck/internal/driver"
	"github.com/themizzi/retailcheck/internal/models"
	"github.com/themizzi/retailcheck/internal/pages"
)

// RunRepository defines the interface for run persistence
type RunRepository interface {
	CreateRun(ctx context.Context, run *models.Run) error
	UpdateRun(ctx context.Context, run *models.Run) error
	GetRunByID(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, scenario string, limit int) ([]*models.Run, error)
}

// Artifacts are the files captured during one attempt
type Artifacts struct {
	ScreenshotPath string
	VideoPath      string
}

// AttemptFunc runs one attempt of a scenario
type AttemptFunc func(ctx context.Context, attempt int) (Artifacts, error)

// Result is the outcome of a scenario across its attempts
type Result struct {
	Scenario string
	Runs     []*models.Run
	// Err is the error of the last attempt, nil when it passed.
	Err error
}

// Passed reports whether the last attempt passed
func (r *Result) Passed() bool {
	return len(r.Runs) > 0 && r.Runs[len(r.Runs)-1].IsPassed()
}

// RunService executes scenarios with retries and records every attempt
type RunService interface {
	Execute(ctx context.Context, scenario string, fn AttemptFunc) (*Result, error)
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, scenario string, limit int) ([]*models.Run, error)
}

// RunServiceImpl implements RunService
type RunServiceImpl struct {
	runRepo RunRepository
	retries int
	logger  *zap.Logger
}

// NewRunService creates a run service that gives a failing scenario retries extra attempts
func NewRunService(runRepo RunRepository, retries int, logger *zap.Logger) RunService {
	if retries < 0 {
		retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunServiceImpl{
		runRepo: runRepo,
		retries: retries,
		logger:  logger,
	}
}

// Execute runs fn until it passes or the attempts are used up. A cancelled
// context stops further attempts. The returned error is reserved for
// recording failures; scenario failures are reported through Result.
func (s *RunServiceImpl) Execute(ctx context.Context, scenario string, fn AttemptFunc) (*Result, error) {
	result := &Result{Scenario: scenario}
	log := s.logger.With(zap.String("scenario", scenario))

	for attempt := 1; attempt <= 1+s.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			if result.Err == nil {
				result.Err = err
			}
			break
		}

		run, err := models.NewRun(scenario, attempt)
		if err != nil {
			return nil, fmt.Errorf("invalid run: %w", err)
		}
		if err := s.runRepo.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		result.Runs = append(result.Runs, run)

		log.Info("attempt started", zap.Int("attempt", attempt), zap.String("run", run.ID))
		artifacts, runErr := fn(ctx, attempt)
		run.AttachArtifacts(artifacts.ScreenshotPath, artifacts.VideoPath)
		if err := record(run, runErr); err != nil {
			return nil, err
		}
		result.Err = runErr

		// the outcome is stored even when ctx was cancelled mid-attempt
		if err := s.runRepo.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
			return nil, fmt.Errorf("failed to update run: %w", err)
		}

		if run.IsPassed() {
			log.Info("attempt passed", zap.Int("attempt", attempt), zap.Duration("duration", run.Duration()))
			break
		}
		log.Warn("attempt failed",
			zap.Int("attempt", attempt),
			zap.String("kind", string(run.ErrorKind)),
			zap.Error(runErr))
		if run.ErrorKind == models.ErrorKindCancelled {
			break
		}
	}
	return result, nil
}

func record(run *models.Run, runErr error) error {
	if runErr == nil {
		return run.Pass()
	}

	primary, teardown := SplitTeardown(runErr)
	var err error
	if primary == nil {
		err = run.Fail(models.ErrorKindTeardown, teardown.Error())
	} else {
		err = run.Fail(ClassifyError(primary), primary.Error())
	}
	if err != nil {
		return err
	}
	if teardown != nil {
		return run.RecordTeardownFailure(teardown.Error())
	}
	return nil
}

// GetRun retrieves a run by its ID
func (s *RunServiceImpl) GetRun(ctx context.Context, id string) (*models.Run, error) {
	run, err := s.runRepo.GetRunByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns recent runs, newest first
func (s *RunServiceImpl) ListRuns(ctx context.Context, scenario string, limit int) ([]*models.Run, error) {
	runs, err := s.runRepo.ListRuns(ctx, scenario, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// SplitTeardown separates a teardown failure from the error it was joined with.
// Only the top-level join is split; a *cart.TeardownError keeps its own cause.
// Either part may be nil.
func SplitTeardown(err error) (primary, teardown error) {
	var terr *cart.TeardownError
	if !errors.As(err, &terr) {
		return err, nil
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return nil, err
	}

	var rest, down []error
	for _, e := range joined.Unwrap() {
		if errors.As(e, &terr) {
			down = append(down, e)
		} else {
			rest = append(rest, e)
		}
	}
	return errors.Join(rest...), errors.Join(down...)
}

// ClassifyError maps a scenario error to the kind recorded for its run.
// The most specific cause wins.
func ClassifyError(err error) models.ErrorKind {
	checks := []struct {
		target error
		kind   models.ErrorKind
	}{
		{context.Canceled, models.ErrorKindCancelled},
		{context.DeadlineExceeded, models.ErrorKindTimeout},
		{pages.ErrPrimeOnlyBlocked, models.ErrorKindPrimeOnly},
		{pages.ErrLocaleNotFound, models.ErrorKindLocaleNotFound},
		{pages.ErrThresholdUnknown, models.ErrorKindThresholdUnknown},
		{pages.ErrCartNotEmptied, models.ErrorKindCartNotEmptied},
		{pages.ErrAssertion, models.ErrorKindAssertion},
		{driver.ErrElementNotFound, models.ErrorKindElementNotFound},
		{driver.ErrInteraction, models.ErrorKindInteraction},
		{driver.ErrWaitTimeout, models.ErrorKindTimeout},
		{driver.ErrPageError, models.ErrorKindPageError},
		{cart.ErrSetup, models.ErrorKindSetup},
		{cart.ErrTeardown, models.ErrorKindTeardown},
	}

	if err == nil {
		return models.ErrorKindNone
	}
	for _, c := range checks {
		if errors.Is(err, c.target) {
			return c.kind
		}
	}
	return models.ErrorKindUnknown
}
