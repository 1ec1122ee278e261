package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents valid run states
type RunStatus string

// Run statuses
const (
	RunStatusPending RunStatus = "pending"
	RunStatusPassed  RunStatus = "passed"
	RunStatusFailed  RunStatus = "failed"
)

// ErrorKind classifies why a run failed
type ErrorKind string

// Error kinds
const (
	ErrorKindNone             ErrorKind = ""
	ErrorKindSetup            ErrorKind = "setup"
	ErrorKindTeardown         ErrorKind = "teardown"
	ErrorKindElementNotFound  ErrorKind = "element-not-found"
	ErrorKindInteraction      ErrorKind = "interaction"
	ErrorKindAssertion        ErrorKind = "assertion"
	ErrorKindLocaleNotFound   ErrorKind = "locale-not-found"
	ErrorKindPrimeOnly        ErrorKind = "prime-only"
	ErrorKindThresholdUnknown ErrorKind = "threshold-unknown"
	ErrorKindCartNotEmptied   ErrorKind = "cart-not-emptied"
	ErrorKindTimeout          ErrorKind = "timeout"
	ErrorKindCancelled        ErrorKind = "cancelled"
	ErrorKindPageError        ErrorKind = "page-error"
	ErrorKindUnknown          ErrorKind = "unknown"
)

// Run is one recorded attempt of a scenario
type Run struct {
	ID             string
	Scenario       string
	Attempt        int
	Status         RunStatus
	ErrorKind      ErrorKind
	Message        string
	TeardownError  string
	ScreenshotPath string
	VideoPath      string
	StartedAt      time.Time
	// FinishedAt is zero while the run is pending.
	FinishedAt time.Time
}

// Domain errors
var (
	ErrInvalidScenario         = errors.New("scenario name cannot be empty")
	ErrInvalidAttempt          = errors.New("attempt must be at least 1")
	ErrInvalidStatusTransition = errors.New("invalid run status transition")
	ErrRunAlreadyFinished      = errors.New("run is already finished")
)

// NewRun creates a pending run for scenario
func NewRun(scenario string, attempt int) (*Run, error) {
	if strings.TrimSpace(scenario) == "" {
		return nil, ErrInvalidScenario
	}
	if attempt < 1 {
		return nil, ErrInvalidAttempt
	}

	return &Run{
		ID:        uuid.New().String(),
		Scenario:  scenario,
		Attempt:   attempt,
		Status:    RunStatusPending,
		StartedAt: time.Now(),
	}, nil
}

// Pass marks the run as passed
func (r *Run) Pass() error {
	if r.Status != RunStatusPending {
		return fmt.Errorf("%w: cannot pass a %s run", ErrRunAlreadyFinished, r.Status)
	}

	r.Status = RunStatusPassed
	r.FinishedAt = time.Now()
	return nil
}

// Fail marks the run as failed with a classified error
func (r *Run) Fail(kind ErrorKind, message string) error {
	if r.Status != RunStatusPending {
		return fmt.Errorf("%w: cannot fail a %s run", ErrRunAlreadyFinished, r.Status)
	}
	if kind == ErrorKindNone {
		return fmt.Errorf("%w: a failure needs an error kind", ErrInvalidStatusTransition)
	}

	r.Status = RunStatusFailed
	r.ErrorKind = kind
	r.Message = message
	r.FinishedAt = time.Now()
	return nil
}

// RecordTeardownFailure notes that cleanup after the run failed.
// The run outcome must already be known.
func (r *Run) RecordTeardownFailure(message string) error {
	if r.Status == RunStatusPending {
		return fmt.Errorf("%w: teardown recorded before the run finished", ErrInvalidStatusTransition)
	}
	r.TeardownError = message
	return nil
}

// AttachArtifacts records the screenshot and video captured for the run
func (r *Run) AttachArtifacts(screenshot, video string) {
	r.ScreenshotPath = screenshot
	r.VideoPath = video
}

// IsPending returns true if the run has no outcome yet
func (r *Run) IsPending() bool {
	return r.Status == RunStatusPending
}

// IsPassed returns true if the run passed
func (r *Run) IsPassed() bool {
	return r.Status == RunStatusPassed
}

// IsFailed returns true if the run failed
func (r *Run) IsFailed() bool {
	return r.Status == RunStatusFailed
}

// Duration returns how long the run took, or zero while pending
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// GetFormattedDuration returns the duration rounded to milliseconds
func (r *Run) GetFormattedDuration() string {
	if r.IsPending() {
		return "-"
	}
	return r.Duration().Round(time.Millisecond).String()
}
