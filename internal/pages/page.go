// Package pages holds the page objects for the retail site. Each page binds a
// Descriptor and a private selector table to a Driver and exposes named actions
// that wait for their own preconditions.
package pages

import (
	"context"
	"fmt"
	"time"

	"github.com/themizzi/retailcheck/internal/driver"
	"go.uber.org/zap"
)

// Driver is the element capability the page objects are built on.
// *driver.Driver implements it against a real browser.
type Driver interface {
	Navigate(ctx context.Context, path string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	WaitHidden(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string, opts driver.ClickOptions) error
	ClickNth(ctx context.Context, selector string, index int, opts driver.ClickOptions) error
	Hover(ctx context.Context, selector string) error
	TypeAndSubmit(ctx context.Context, selector, text string) error
	Text(ctx context.Context, selector string) (string, error)
	Texts(ctx context.Context, selector string) ([]string, error)
	Attributes(ctx context.Context, selector, name string) ([]string, error)
	Count(ctx context.Context, selector string) (int, error)
	BodyText(ctx context.Context) (string, error)
	AssertVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	AssertContainsText(ctx context.Context, selector, text string, timeout time.Duration) (bool, error)
	TextAppearsAnywhere(ctx context.Context, text string, timeout time.Duration) (bool, error)
}

var _ Driver = (*driver.Driver)(nil)

// Descriptor identifies a navigable page and the element whose visibility means
// the page finished its minimal load.
type Descriptor struct {
	Path          string
	ReadySelector string
}

// Timeouts groups the bounded waits used by the page objects
type Timeouts struct {
	// Default bounds element waits before an action.
	Default time.Duration
	// PageLoad bounds the ready-selector wait after navigation.
	PageLoad time.Duration
	// Assert bounds text and visibility assertions.
	Assert time.Duration
	// Probe bounds best-effort presence checks (modals, optional controls).
	Probe time.Duration
	// Settle bounds waits for the cart to recompute after a change.
	Settle time.Duration
	Poll   time.Duration
}

// DefaultTimeouts returns the suite's standard waits
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Default:  15 * time.Second,
		PageLoad: 30 * time.Second,
		Assert:   10 * time.Second,
		Probe:    3 * time.Second,
		Settle:   10 * time.Second,
		Poll:     250 * time.Millisecond,
	}
}

const interstitialSelector = `input[value="Continue shopping"], button:has-text("Continue shopping")`

// Base carries what every page object shares
type Base struct {
	driver   Driver
	desc     Descriptor
	timeouts Timeouts
	logger   *zap.Logger
	// root is the unscoped logger handed to pages reached from this one.
	root *zap.Logger
}

func newBase(name string, d Driver, desc Descriptor, timeouts Timeouts, logger *zap.Logger) Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Base{
		driver:   d,
		desc:     desc,
		timeouts: timeouts,
		logger:   logger.With(zap.String("page", name)),
		root:     logger,
	}
}

// Descriptor returns the page's descriptor
func (b *Base) Descriptor() Descriptor {
	return b.desc
}

// Visit navigates to the page's path and blocks until it is ready
func (b *Base) Visit(ctx context.Context) error {
	if b.desc.Path == "" {
		return fmt.Errorf("%w: ready selector %s", ErrNoFixedPath, b.desc.ReadySelector)
	}
	return b.open(ctx, b.desc.Path)
}

func (b *Base) open(ctx context.Context, path string) error {
	if err := b.driver.Navigate(ctx, path); err != nil {
		return err
	}
	if _, err := b.DismissInterstitial(ctx); err != nil {
		return err
	}
	return b.WaitReady(ctx)
}

// WaitReady blocks until the ready selector is visible
func (b *Base) WaitReady(ctx context.Context) error {
	return b.driver.WaitVisible(ctx, b.desc.ReadySelector, b.timeouts.PageLoad)
}

// DismissInterstitial clicks through the "Continue shopping" bot check when it is shown.
// Absence is not an error.
func (b *Base) DismissInterstitial(ctx context.Context) (bool, error) {
	n, err := b.driver.Count(ctx, interstitialSelector)
	if err != nil || n == 0 {
		return false, ctx.Err()
	}

	b.logger.Info("dismissing continue-shopping interstitial")
	if err := b.driver.Click(ctx, interstitialSelector, driver.ClickOptions{Force: true}); err != nil {
		return false, err
	}
	return true, nil
}

// assertText fails with ErrAssertion when text does not show up anywhere on the page
func (b *Base) assertText(ctx context.Context, text string, timeout time.Duration) error {
	ok, err := b.driver.TextAppearsAnywhere(ctx, text, timeout)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q not on page after %s", ErrAssertion, text, timeout)
	}
	return nil
}

func (b *Base) assertVisible(ctx context.Context, selector string, timeout time.Duration) error {
	ok, err := b.driver.AssertVisible(ctx, selector, timeout)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s not visible after %s", ErrAssertion, selector, timeout)
	}
	return nil
}

// visibleText selects the first visible element whose text contains text
func visibleText(text string) string {
	return fmt.Sprintf("text=%s >> visible=true", text)
}
