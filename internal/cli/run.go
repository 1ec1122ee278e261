package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/themizzi/retailcheck/internal/cart"
	"github.com/themizzi/retailcheck/internal/fixtures"
	"github.com/themizzi/retailcheck/internal/models"
	"github.com/themizzi/retailcheck/internal/pages"
	"github.com/themizzi/retailcheck/internal/report"
	"github.com/themizzi/retailcheck/internal/scenarios"
	"github.com/themizzi/retailcheck/internal/services"
	"github.com/themizzi/retailcheck/internal/session"
)

// ErrScenariosFailed is returned when at least one scenario did not pass
var ErrScenariosFailed = errors.New("scenarios failed")

// SessionRunner opens a browser session named name, runs fn against its page
// and returns what was captured
type SessionRunner func(ctx context.Context, name string, fn func(ctx context.Context, d pages.Driver) error) (services.Artifacts, error)

// BrowserSessions adapts a launched browser to a SessionRunner
func BrowserSessions(b *session.Browser) SessionRunner {
	return func(ctx context.Context, name string, fn func(context.Context, pages.Driver) error) (services.Artifacts, error) {
		return b.WithSession(ctx, name, func(ctx context.Context, s *session.Session) error {
			return fn(ctx, s.Driver)
		})
	}
}

// RunDependencies holds what a suite run needs
type RunDependencies struct {
	Scenarios  []scenarios.Scenario
	RunService services.RunService
	Sessions   SessionRunner
	Fixtures   *fixtures.Data
	Timeouts   pages.Timeouts
	// Workers is how many scenarios run at once; less than one means one.
	Workers     int
	CartOptions []cart.Option
	// ReportDir, when set, receives a JSON and an HTML report of the run.
	ReportDir string
	BaseURL   string
	Logger    *zap.Logger
}

// SuiteResult is the outcome of RunSuite
type SuiteResult struct {
	Results    []*services.Result
	JSONReport string
	HTMLReport string
}

// Runs returns every recorded attempt, in scenario order
func (r *SuiteResult) Runs() []*models.Run {
	var runs []*models.Run
	for _, res := range r.Results {
		if res != nil {
			runs = append(runs, res.Runs...)
		}
	}
	return runs
}

// Failed lists the scenarios whose last attempt did not pass
func (r *SuiteResult) Failed() []string {
	var names []string
	for _, res := range r.Results {
		if res != nil && !res.Passed() {
			names = append(names, res.Scenario)
		}
	}
	return names
}

// RunSuite executes the scenarios on up to Workers concurrent sessions, each
// attempt in a fresh session. A failing scenario does not stop the others;
// only a failure to record results aborts the run. The returned error wraps
// ErrScenariosFailed when any scenario failed.
func RunSuite(ctx context.Context, deps RunDependencies) (*SuiteResult, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := deps.Workers
	if workers < 1 {
		workers = 1
	}

	suite := &SuiteResult{Results: make([]*services.Result, len(deps.Scenarios))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, sc := range deps.Scenarios {
		g.Go(func() error {
			log := logger.With(zap.String("scenario", sc.Name))
			result, err := deps.RunService.Execute(gctx, sc.Name, func(ctx context.Context, attempt int) (services.Artifacts, error) {
				name := fmt.Sprintf("%s-%d", sc.Name, attempt)
				return deps.Sessions(ctx, name, func(ctx context.Context, d pages.Driver) error {
					env := scenarios.NewEnv(d, deps.Timeouts, deps.Fixtures, log, deps.CartOptions...)
					return sc.Run(ctx, env)
				})
			})
			if err != nil {
				return fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			suite.Results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return suite, err
	}

	if deps.ReportDir != "" {
		summary := report.NewSummary(suite.Runs(), deps.BaseURL, time.Now())
		jsonPath, htmlPath, err := report.Write(deps.ReportDir, summary)
		if err != nil {
			return suite, err
		}
		suite.JSONReport, suite.HTMLReport = jsonPath, htmlPath
		logger.Info("report written", zap.String("json", jsonPath), zap.String("html", htmlPath))
	}

	if failed := suite.Failed(); len(failed) > 0 {
		return suite, fmt.Errorf("%w: %v", ErrScenariosFailed, failed)
	}
	return suite, nil
}
