// Package session owns the browser: one playwright instance per suite and one
// isolated browser context per scenario attempt.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/themizzi/retailcheck/internal/config"
	"github.com/themizzi/retailcheck/internal/driver"
	"github.com/themizzi/retailcheck/internal/services"
)

// LaunchArgs pin the browser UI language so the site renders English copy
var LaunchArgs = []string{"--lang=en-US", "--accept-lang=en-US,en;q=0.9"}

const (
	browserLocale  = "en-US"
	acceptLanguage = "en-US,en;q=0.9"
)

// benignPageErrors are script errors the site raises on its own pages
var benignPageErrors = []string{
	"cardModuleFactory",
	"is not a function",
	"Cannot read property",
	"script error",
}

// Options configures browser launch and the per-scenario context
type Options struct {
	BaseURL             string
	Headless            bool
	ViewportWidth       int
	ViewportHeight      int
	DefaultTimeout      time.Duration
	PageLoadTimeout     time.Duration
	RecordVideo         bool
	ScreenshotOnFailure bool
	// ArtifactDir receives screenshots/ and videos/.
	ArtifactDir string
}

// OptionsFromConfig maps suite configuration onto session options
func OptionsFromConfig(cfg *config.SuiteConfig) Options {
	return Options{
		BaseURL:             cfg.BaseURL,
		Headless:            cfg.Headless,
		ViewportWidth:       cfg.ViewportWidth,
		ViewportHeight:      cfg.ViewportHeight,
		DefaultTimeout:      cfg.DefaultTimeout(),
		PageLoadTimeout:     cfg.PageLoadTimeout(),
		RecordVideo:         cfg.RecordVideo,
		ScreenshotOnFailure: cfg.ScreenshotOnFailure,
		ArtifactDir:         cfg.ReportDir,
	}
}

func (o Options) videoDir() string {
	return filepath.Join(o.ArtifactDir, "videos")
}

func (o Options) screenshotDir() string {
	return filepath.Join(o.ArtifactDir, "screenshots")
}

// Browser is a running playwright driver with one launched Chromium
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
	logger  *zap.Logger
}

// Launch starts playwright and Chromium. Browsers must already be installed
// (go run github.com/playwright-community/playwright-go/cmd/playwright install chromium).
func Launch(opts Options, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     LaunchArgs,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to launch chromium: %w", err), pw.Stop())
	}

	logger.Info("browser launched", zap.Bool("headless", opts.Headless), zap.String("version", browser.Version()))
	return &Browser{pw: pw, browser: browser, opts: opts, logger: logger}, nil
}

// Close shuts the browser and the playwright driver
func (b *Browser) Close() error {
	return errors.Join(b.browser.Close(), b.pw.Stop())
}

// Session is one isolated browser context with a single page
type Session struct {
	Name    string
	Context playwright.BrowserContext
	Page    playwright.Page
	Driver  *driver.Driver
	opts    Options
	logger  *zap.Logger

	mu         sync.Mutex
	pageErrors []error
}

func contextOptions(opts Options) playwright.BrowserNewContextOptions {
	o := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		Locale:           playwright.String(browserLocale),
		ExtraHttpHeaders: map[string]string{"Accept-Language": acceptLanguage},
	}
	if opts.RecordVideo {
		o.RecordVideo = &playwright.RecordVideo{
			Dir: opts.videoDir(),
			Size: &playwright.Size{
				Width:  opts.ViewportWidth,
				Height: opts.ViewportHeight,
			},
		}
	}
	return o
}

// NewSession opens a fresh context and page for the named scenario
func (b *Browser) NewSession(name string) (*Session, error) {
	logger := b.logger.With(zap.String("session", name))

	bctx, err := b.browser.NewContext(contextOptions(b.opts))
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	bctx.SetDefaultTimeout(float64(b.opts.DefaultTimeout.Milliseconds()))
	bctx.SetDefaultNavigationTimeout(float64(b.opts.PageLoadTimeout.Milliseconds()))

	page, err := bctx.NewPage()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to open page: %w", err), bctx.Close())
	}
	s := &Session{
		Name:    name,
		Context: bctx,
		Page:    page,
		opts:    b.opts,
		logger:  logger,
	}
	page.OnPageError(s.recordPageError)

	s.Driver, err = driver.New(page, driver.Options{
		BaseURL:         b.opts.BaseURL,
		DefaultTimeout:  b.opts.DefaultTimeout,
		PageLoadTimeout: b.opts.PageLoadTimeout,
	}, logger)
	if err != nil {
		return nil, errors.Join(err, bctx.Close())
	}
	return s, nil
}

// recordPageError keeps script errors that are not known site noise.
// Playwright calls it from its own goroutine.
func (s *Session) recordPageError(err error) {
	if IsBenignPageError(err.Error()) {
		s.logger.Debug("ignored page error", zap.Error(err))
		return
	}
	s.logger.Warn("page error", zap.Error(err))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageErrors = append(s.pageErrors, err)
}

// PageErrors returns the non-benign script errors raised so far
func (s *Session) PageErrors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.pageErrors...)
}

// Screenshot captures the full page and returns the file path
func (s *Session) Screenshot(now time.Time) (string, error) {
	path := screenshotPath(s.opts.screenshotDir(), s.Name, now)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	if _, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return "", fmt.Errorf("failed to take screenshot: %w", err)
	}
	return path, nil
}

// Close closes the context, which finalizes the video. It returns the video
// path when recording was enabled.
func (s *Session) Close() (string, error) {
	var videoPath string
	if s.opts.RecordVideo {
		if video := s.Page.Video(); video != nil {
			if p, err := video.Path(); err == nil {
				videoPath = p
			} else {
				s.logger.Warn("video path unavailable", zap.Error(err))
			}
		}
	}
	if err := s.Context.Close(); err != nil {
		return videoPath, fmt.Errorf("failed to close browser context: %w", err)
	}
	return videoPath, nil
}

// WithSession runs fn in a new session and always closes it, even if fn panics.
// When fn fails and screenshots are enabled, the page is captured before
// closing. A scenario that passes while the page raised non-benign script
// errors fails with driver.ErrPageError.
func (b *Browser) WithSession(ctx context.Context, name string, fn func(ctx context.Context, s *Session) error) (services.Artifacts, error) {
	if err := ctx.Err(); err != nil {
		return services.Artifacts{}, err
	}

	s, err := b.NewSession(name)
	if err != nil {
		return services.Artifacts{}, err
	}
	return runSession(ctx, s, b.opts.ScreenshotOnFailure, s.logger, func(ctx context.Context) error {
		return fn(ctx, s)
	})
}

// sessionHandle is what runSession needs from an open session
type sessionHandle interface {
	Screenshot(now time.Time) (string, error)
	Close() (string, error)
	PageErrors() []error
}

func runSession(ctx context.Context, s sessionHandle, screenshot bool, logger *zap.Logger, fn func(context.Context) error) (artifacts services.Artifacts, err error) {
	defer func() {
		videoPath, closeErr := s.Close()
		artifacts.VideoPath = videoPath
		if closeErr != nil {
			logger.Warn("session close failed", zap.Error(closeErr))
		}
	}()

	err = fn(ctx)
	if err == nil {
		if pageErrs := s.PageErrors(); len(pageErrs) > 0 {
			err = fmt.Errorf("%w: %w", driver.ErrPageError, errors.Join(pageErrs...))
		}
	}
	if err != nil && screenshot {
		path, serr := s.Screenshot(time.Now())
		if serr != nil {
			logger.Warn("screenshot failed", zap.Error(serr))
		} else {
			artifacts.ScreenshotPath = path
		}
	}
	return artifacts, err
}

// IsBenignPageError reports whether a page script error is known site noise
func IsBenignPageError(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range benignPageErrors {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func screenshotPath(dir, name string, now time.Time) string {
	safe := strings.Trim(unsafeName.ReplaceAllString(name, "-"), "-")
	if safe == "" {
		safe = "session"
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.png", safe, now.UTC().Format("20060102-150405.000")))
}
