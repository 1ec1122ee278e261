package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/themizzi/retailcheck/internal/cart"
	"github.com/themizzi/retailcheck/internal/driver"
	"github.com/themizzi/retailcheck/internal/models"
	"github.com/themizzi/retailcheck/internal/pages"
)

// MockRunRepository is a mock implementation of RunRepository for testing
type MockRunRepository struct {
	CreateRunFunc  func(context.Context, *models.Run) error
	UpdateRunFunc  func(context.Context, *models.Run) error
	GetRunByIDFunc func(context.Context, string) (*models.Run, error)
	ListRunsFunc   func(context.Context, string, int) ([]*models.Run, error)

	created []*models.Run
	updated []models.Run
}

func (m *MockRunRepository) CreateRun(ctx context.Context, run *models.Run) error {
	m.created = append(m.created, run)
	if m.CreateRunFunc != nil {
		return m.CreateRunFunc(ctx, run)
	}
	return nil
}

func (m *MockRunRepository) UpdateRun(ctx context.Context, run *models.Run) error {
	m.updated = append(m.updated, *run)
	if m.UpdateRunFunc != nil {
		return m.UpdateRunFunc(ctx, run)
	}
	return nil
}

func (m *MockRunRepository) GetRunByID(ctx context.Context, id string) (*models.Run, error) {
	if m.GetRunByIDFunc != nil {
		return m.GetRunByIDFunc(ctx, id)
	}
	return &models.Run{ID: id}, nil
}

func (m *MockRunRepository) ListRuns(ctx context.Context, scenario string, limit int) ([]*models.Run, error) {
	if m.ListRunsFunc != nil {
		return m.ListRunsFunc(ctx, scenario, limit)
	}
	return nil, nil
}

// failingTimes returns an attempt func that fails with err for the first n attempts
func failingTimes(n int, err error) AttemptFunc {
	return func(_ context.Context, attempt int) (Artifacts, error) {
		if attempt <= n {
			return Artifacts{ScreenshotPath: fmt.Sprintf("shot-%d.png", attempt)}, err
		}
		return Artifacts{VideoPath: "video.webm"}, nil
	}
}

func TestRunService_Execute(t *testing.T) {
	assertion := fmt.Errorf("%w: banner missing", pages.ErrAssertion)

	tests := []struct {
		name         string
		retries      int
		fn           AttemptFunc
		wantAttempts int
		wantPassed   bool
		wantKind     models.ErrorKind
	}{
		{
			name:         "passes first time",
			retries:      2,
			fn:           failingTimes(0, nil),
			wantAttempts: 1,
			wantPassed:   true,
		},
		{
			name:         "passes on retry",
			retries:      2,
			fn:           failingTimes(2, assertion),
			wantAttempts: 3,
			wantPassed:   true,
		},
		{
			name:         "retries exhausted",
			retries:      1,
			fn:           failingTimes(5, assertion),
			wantAttempts: 2,
			wantKind:     models.ErrorKindAssertion,
		},
		{
			name:         "no retries",
			retries:      0,
			fn:           failingTimes(5, assertion),
			wantAttempts: 1,
			wantKind:     models.ErrorKindAssertion,
		},
		{
			name:         "cancellation is not retried",
			retries:      2,
			fn:           failingTimes(5, context.Canceled),
			wantAttempts: 1,
			wantKind:     models.ErrorKindCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockRunRepository{}
			service := NewRunService(repo, tt.retries, nil)

			result, err := service.Execute(context.Background(), "shipping-qualifies", tt.fn)
			if err != nil {
				t.Fatalf("Execute() unexpected error = %v", err)
			}
			if len(result.Runs) != tt.wantAttempts {
				t.Fatalf("expected %d attempts, got %d", tt.wantAttempts, len(result.Runs))
			}
			if len(repo.created) != tt.wantAttempts || len(repo.updated) != tt.wantAttempts {
				t.Errorf("expected every attempt recorded, got %d created %d updated", len(repo.created), len(repo.updated))
			}
			if result.Passed() != tt.wantPassed {
				t.Errorf("Passed() = %v, want %v", result.Passed(), tt.wantPassed)
			}

			last := result.Runs[len(result.Runs)-1]
			if last.ErrorKind != tt.wantKind {
				t.Errorf("last ErrorKind = %q, want %q", last.ErrorKind, tt.wantKind)
			}
			for i, run := range result.Runs {
				if run.Attempt != i+1 {
					t.Errorf("run %d has attempt %d", i, run.Attempt)
				}
				if run.IsPending() {
					t.Errorf("run %d left pending", i)
				}
			}
			if tt.wantPassed && result.Err != nil {
				t.Errorf("expected no error on pass, got %v", result.Err)
			}
		})
	}
}

func TestRunService_ExecuteRecordsArtifactsAndTeardown(t *testing.T) {
	repo := &MockRunRepository{}
	service := NewRunService(repo, 0, nil)
	body := fmt.Errorf("%w: no banner", pages.ErrThresholdUnknown)
	teardown := &cart.TeardownError{Err: pages.ErrCartNotEmptied}

	result, err := service.Execute(context.Background(), "shipping-qualifies",
		func(context.Context, int) (Artifacts, error) {
			return Artifacts{ScreenshotPath: "shot.png", VideoPath: "video.webm"}, errors.Join(body, teardown)
		})
	if err != nil {
		t.Fatalf("Execute() unexpected error = %v", err)
	}

	run := repo.updated[0]
	if run.ErrorKind != models.ErrorKindThresholdUnknown {
		t.Errorf("ErrorKind = %q, want the body error to win", run.ErrorKind)
	}
	if run.Message != body.Error() {
		t.Errorf("Message = %q, want %q", run.Message, body.Error())
	}
	if run.TeardownError != teardown.Error() {
		t.Errorf("TeardownError = %q, want %q", run.TeardownError, teardown.Error())
	}
	if run.ScreenshotPath != "shot.png" || run.VideoPath != "video.webm" {
		t.Errorf("artifacts not recorded: %+v", run)
	}
	if !errors.Is(result.Err, cart.ErrTeardown) {
		t.Errorf("expected result error to keep the teardown failure, got %v", result.Err)
	}
}

func TestRunService_ExecuteTeardownOnly(t *testing.T) {
	repo := &MockRunRepository{}
	service := NewRunService(repo, 0, nil)
	teardown := &cart.TeardownError{Err: errors.New("stuck")}

	if _, err := service.Execute(context.Background(), "shipping-qualifies",
		func(context.Context, int) (Artifacts, error) { return Artifacts{}, teardown }); err != nil {
		t.Fatalf("Execute() unexpected error = %v", err)
	}

	run := repo.updated[0]
	if run.Status != models.RunStatusFailed || run.ErrorKind != models.ErrorKindTeardown {
		t.Errorf("unexpected outcome %s/%s", run.Status, run.ErrorKind)
	}
	if run.TeardownError == "" {
		t.Error("expected teardown error to be recorded")
	}
}

func TestRunService_ExecuteTeardownInsideBody(t *testing.T) {
	repo := &MockRunRepository{}
	service := NewRunService(repo, 0, nil)
	cause := fmt.Errorf("%w: delete controls remain after 50 attempts", pages.ErrCartNotEmptied)
	inBody := &cart.TeardownError{Err: cause}
	deferred := &cart.TeardownError{Err: cause}

	tests := []struct {
		name string
		err  error
	}{
		{"body returns teardown error", inBody},
		{"joined with the deferred teardown", errors.Join(inBody, deferred)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo.updated = nil
			if _, err := service.Execute(context.Background(), "shipping-qualifies",
				func(context.Context, int) (Artifacts, error) { return Artifacts{}, tt.err }); err != nil {
				t.Fatalf("Execute() unexpected error = %v", err)
			}

			run := repo.updated[0]
			if run.ErrorKind != models.ErrorKindTeardown {
				t.Errorf("ErrorKind = %q, want %q", run.ErrorKind, models.ErrorKindTeardown)
			}
			if !strings.Contains(run.TeardownError, "delete controls remain") {
				t.Errorf("TeardownError = %q, want the cause kept", run.TeardownError)
			}
		})
	}
}

func TestRunService_ExecuteRepositoryErrors(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		repo := &MockRunRepository{CreateRunFunc: func(context.Context, *models.Run) error {
			return errors.New("database error")
		}}
		called := false
		_, err := NewRunService(repo, 1, nil).Execute(context.Background(), "locale-round-trip",
			func(context.Context, int) (Artifacts, error) {
				called = true
				return Artifacts{}, nil
			})
		if err == nil {
			t.Fatal("expected error")
		}
		if called {
			t.Error("scenario should not run when the run cannot be recorded")
		}
	})

	t.Run("update", func(t *testing.T) {
		repo := &MockRunRepository{UpdateRunFunc: func(context.Context, *models.Run) error {
			return errors.New("database error")
		}}
		_, err := NewRunService(repo, 1, nil).Execute(context.Background(), "locale-round-trip", failingTimes(0, nil))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid scenario", func(t *testing.T) {
		_, err := NewRunService(&MockRunRepository{}, 0, nil).Execute(context.Background(), "", failingTimes(0, nil))
		if !errors.Is(err, models.ErrInvalidScenario) {
			t.Errorf("expected ErrInvalidScenario, got %v", err)
		}
	})
}

func TestRunService_ExecuteCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := &MockRunRepository{}
	result, err := NewRunService(repo, 2, nil).Execute(ctx, "locale-round-trip", failingTimes(0, nil))
	if err != nil {
		t.Fatalf("Execute() unexpected error = %v", err)
	}
	if len(result.Runs) != 0 || !errors.Is(result.Err, context.Canceled) {
		t.Errorf("expected no attempts and a cancellation error, got %d runs, %v", len(result.Runs), result.Err)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.ErrorKind
	}{
		{"nil", nil, models.ErrorKindNone},
		{"prime inside setup", fmt.Errorf("%w: %w", cart.ErrSetup, pages.ErrPrimeOnlyBlocked), models.ErrorKindPrimeOnly},
		{"plain setup", fmt.Errorf("%w: item has no route", cart.ErrSetup), models.ErrorKindSetup},
		{"locale", pages.ErrLocaleNotFound, models.ErrorKindLocaleNotFound},
		{"element", fmt.Errorf("x: %w", driver.ErrElementNotFound), models.ErrorKindElementNotFound},
		{"interaction", driver.ErrInteraction, models.ErrorKindInteraction},
		{"wait timeout", driver.ErrWaitTimeout, models.ErrorKindTimeout},
		{"deadline", context.DeadlineExceeded, models.ErrorKindTimeout},
		{"cart not emptied", &cart.TeardownError{Err: pages.ErrCartNotEmptied}, models.ErrorKindCartNotEmptied},
		{"page error", fmt.Errorf("%w: TypeError: x is undefined", driver.ErrPageError), models.ErrorKindPageError},
		{"unknown", errors.New("boom"), models.ErrorKindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitTeardown(t *testing.T) {
	body := errors.New("body")
	teardown := &cart.TeardownError{Err: fmt.Errorf("%w: 2 rows left", pages.ErrCartNotEmptied)}

	primary, down := SplitTeardown(errors.Join(body, teardown))
	if !errors.Is(primary, body) {
		t.Errorf("primary = %v, want %v", primary, body)
	}
	if !errors.Is(down, cart.ErrTeardown) {
		t.Errorf("teardown = %v, want ErrTeardown", down)
	}

	primary, down = SplitTeardown(body)
	if primary != body || down != nil {
		t.Errorf("SplitTeardown(body) = %v, %v", primary, down)
	}

	primary, down = SplitTeardown(teardown)
	if primary != nil || down != teardown {
		t.Errorf("SplitTeardown(teardown) = %v, %v", primary, down)
	}
	if !strings.Contains(down.Error(), "2 rows left") {
		t.Errorf("teardown lost its cause: %q", down.Error())
	}

	wrapped := fmt.Errorf("shipping-qualifies: %w", teardown)
	primary, down = SplitTeardown(wrapped)
	if primary != nil || down != wrapped {
		t.Errorf("SplitTeardown(wrapped) = %v, %v", primary, down)
	}
}
