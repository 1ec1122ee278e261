package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/themizzi/retailcheck/internal/pages"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// SuiteConfig holds everything a suite run needs. Values come from defaults,
// then an optional TOML file, then environment variables.
type SuiteConfig struct {
	BaseURL               string `toml:"baseUrl"`
	ViewportWidth         int    `toml:"viewportWidth"`
	ViewportHeight        int    `toml:"viewportHeight"`
	DefaultTimeoutMs      int    `toml:"defaultTimeoutMs"`
	PageLoadTimeoutMs     int    `toml:"pageLoadTimeoutMs"`
	RetryCountHeadless    int    `toml:"retryCountHeadless"`
	RetryCountInteractive int    `toml:"retryCountInteractive"`
	RecordVideo           bool   `toml:"recordVideo"`
	ScreenshotOnFailure   bool   `toml:"screenshotOnFailure"`
	Headless              bool   `toml:"headless"`
	ReportDir             string `toml:"reportDir"`
	// FixturesPath is empty for the embedded fixtures.
	FixturesPath      string `toml:"fixtures"`
	ResultsSQLitePath string `toml:"resultsSqlitePath"`
}

// DefaultSuiteConfig returns the built-in settings
func DefaultSuiteConfig() SuiteConfig {
	return SuiteConfig{
		BaseURL:               "https://www.amazon.com",
		ViewportWidth:         1920,
		ViewportHeight:        1080,
		DefaultTimeoutMs:      15000,
		PageLoadTimeoutMs:     30000,
		RetryCountHeadless:    2,
		RetryCountInteractive: 0,
		RecordVideo:           true,
		ScreenshotOnFailure:   true,
		Headless:              true,
		ReportDir:             "reports",
		ResultsSQLitePath:     filepath.Join("reports", "results.db"),
	}
}

// LoadSuiteConfig builds the suite configuration. path may be empty.
func LoadSuiteConfig(path string, getenv func(string) string) (*SuiteConfig, error) {
	config := DefaultSuiteConfig()

	if path != "" {
		md, err := toml.DecodeFile(path, &config)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return nil, fmt.Errorf("%w: %s: unknown keys %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
		}
	}

	env := envReader{getenv: getenv}
	env.stringVar("RETAILCHECK_BASE_URL", &config.BaseURL)
	env.intVar("VIEWPORT_WIDTH", &config.ViewportWidth)
	env.intVar("VIEWPORT_HEIGHT", &config.ViewportHeight)
	env.intVar("DEFAULT_TIMEOUT_MS", &config.DefaultTimeoutMs)
	env.intVar("PAGE_LOAD_TIMEOUT_MS", &config.PageLoadTimeoutMs)
	env.intVar("RETRY_COUNT_HEADLESS", &config.RetryCountHeadless)
	env.intVar("RETRY_COUNT_INTERACTIVE", &config.RetryCountInteractive)
	env.boolVar("RECORD_VIDEO", &config.RecordVideo)
	env.boolVar("SCREENSHOT_ON_FAILURE", &config.ScreenshotOnFailure)
	env.boolVar("HEADLESS", &config.Headless)
	env.stringVar("REPORT_DIR", &config.ReportDir)
	env.stringVar("FIXTURES_PATH", &config.FixturesPath)
	env.stringVar("RESULTS_SQLITE_PATH", &config.ResultsSQLitePath)
	if err := errors.Join(env.errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks ranges and the base URL
func (c *SuiteConfig) Validate() error {
	var errs []error
	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, fmt.Errorf("baseUrl %q must be an absolute URL", c.BaseURL))
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		errs = append(errs, fmt.Errorf("viewport %dx%d must be positive", c.ViewportWidth, c.ViewportHeight))
	}
	if c.DefaultTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("defaultTimeoutMs must be positive"))
	}
	if c.PageLoadTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("pageLoadTimeoutMs must be positive"))
	}
	if c.RetryCountHeadless < 0 || c.RetryCountInteractive < 0 {
		errs = append(errs, fmt.Errorf("retry counts must not be negative"))
	}
	if c.ReportDir == "" {
		errs = append(errs, fmt.Errorf("reportDir is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// DefaultTimeout is the default element wait
func (c *SuiteConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutMs) * time.Millisecond
}

// PageLoadTimeout bounds navigation and the ready-selector wait
func (c *SuiteConfig) PageLoadTimeout() time.Duration {
	return time.Duration(c.PageLoadTimeoutMs) * time.Millisecond
}

// Retries is the number of extra attempts a failing scenario gets
func (c *SuiteConfig) Retries() int {
	if c.Headless {
		return c.RetryCountHeadless
	}
	return c.RetryCountInteractive
}

// PageTimeouts derives the page-object waits from the configured timeouts
func (c *SuiteConfig) PageTimeouts() pages.Timeouts {
	t := pages.DefaultTimeouts()
	t.Default = c.DefaultTimeout()
	t.PageLoad = c.PageLoadTimeout()
	return t
}

type envReader struct {
	getenv func(string) string
	errs   []error
}

func (r *envReader) stringVar(key string, dst *string) {
	if v := r.getenv(key); v != "" {
		*dst = v
	}
}

func (r *envReader) intVar(key string, dst *int) {
	v := r.getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s=%q is not an integer", key, v))
		return
	}
	*dst = n
}

func (r *envReader) boolVar(key string, dst *bool) {
	v := r.getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s=%q is not a boolean", key, v))
		return
	}
	*dst = b
}
