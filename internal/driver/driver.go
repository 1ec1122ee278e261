package driver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultTimeout         = 15 * time.Second
	DefaultPageLoadTimeout = 30 * time.Second
	DefaultActionTimeout   = 5 * time.Second
	DefaultPollInterval    = 250 * time.Millisecond
)

// Driver errors
var (
	ErrElementNotFound = errors.New("element not found")
	ErrInteraction     = errors.New("element interaction failed")
	// ErrPageError marks an uncaught script error raised by the page itself.
	ErrPageError       = errors.New("uncaught page error")
)

// Options configures a Driver
type Options struct {
	BaseURL         string
	DefaultTimeout  time.Duration
	PageLoadTimeout time.Duration
	// ActionTimeout bounds a single playwright call so cancellation is observed promptly.
	ActionTimeout time.Duration
	PollInterval  time.Duration
}

// ClickOptions tunes a click
type ClickOptions struct {
	// Force skips the visibility wait and actionability checks, tolerating overlays.
	Force bool
	// Timeout overrides the default wait for the element.
	Timeout time.Duration
}

// Driver provides "wait for selector, then act" primitives over a playwright page.
// Every wait is a bounded poll that stops as soon as ctx is done.
type Driver struct {
	page    playwright.Page
	baseURL *url.URL
	opts    Options
	logger  *zap.Logger
}

// New creates a Driver for page
func New(page playwright.Page, opts Options, logger *zap.Logger) (*Driver, error) {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultTimeout
	}
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = DefaultPageLoadTimeout
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = DefaultActionTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}
	if opts.BaseURL != "" && !base.IsAbs() {
		return nil, fmt.Errorf("base URL %q must be absolute", opts.BaseURL)
	}

	return &Driver{
		page:    page,
		baseURL: base,
		opts:    opts,
		logger:  logger,
	}, nil
}

// Navigate loads path, resolved against the base URL when relative
func (d *Driver) Navigate(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := d.resolve(path)
	if err != nil {
		return err
	}

	d.logger.Debug("navigate", zap.String("url", target))
	_, err = d.page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   millis(d.bounded(ctx, d.opts.PageLoadTimeout)),
	})
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", target, err)
	}
	return nil
}

func (d *Driver) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if d.baseURL.String() == "" {
		return "", fmt.Errorf("relative path %q without a base URL", path)
	}
	return d.baseURL.ResolveReference(ref).String(), nil
}

// WaitVisible polls until the first element matching selector is visible
func (d *Driver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return d.waitVisible(ctx, selector, d.page.Locator(selector).First(), timeout)
}

func (d *Driver) waitVisible(ctx context.Context, selector string, loc playwright.Locator, timeout time.Duration) error {
	timeout = d.orDefault(timeout)
	err := Until(ctx, timeout, d.opts.PollInterval, func(context.Context) (bool, error) {
		visible, err := loc.IsVisible()
		if err != nil {
			if errors.Is(err, playwright.ErrTargetClosed) {
				return false, err
			}
			return false, nil
		}
		return visible, nil
	})
	if errors.Is(err, ErrWaitTimeout) {
		return fmt.Errorf("%w: %s not visible after %s", ErrElementNotFound, selector, timeout)
	}
	return err
}

func (d *Driver) waitAttached(ctx context.Context, selector string, loc playwright.Locator, timeout time.Duration) error {
	timeout = d.orDefault(timeout)
	err := Until(ctx, timeout, d.opts.PollInterval, func(context.Context) (bool, error) {
		n, err := loc.Count()
		if err != nil {
			if errors.Is(err, playwright.ErrTargetClosed) {
				return false, err
			}
			return false, nil
		}
		return n > 0, nil
	})
	if errors.Is(err, ErrWaitTimeout) {
		return fmt.Errorf("%w: %s not attached after %s", ErrElementNotFound, selector, timeout)
	}
	return err
}

// WaitHidden polls until no element matching selector is visible
func (d *Driver) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	loc := d.page.Locator(selector).First()
	timeout = d.orDefault(timeout)
	err := Until(ctx, timeout, d.opts.PollInterval, func(context.Context) (bool, error) {
		visible, err := loc.IsVisible()
		if err != nil {
			if errors.Is(err, playwright.ErrTargetClosed) {
				return false, err
			}
			return false, nil
		}
		return !visible, nil
	})
	if errors.Is(err, ErrWaitTimeout) {
		return fmt.Errorf("%w: %s still visible after %s", ErrInteraction, selector, timeout)
	}
	return err
}

// Click clicks the first element matching selector
func (d *Driver) Click(ctx context.Context, selector string, opts ClickOptions) error {
	return d.click(ctx, selector, d.page.Locator(selector).First(), opts)
}

// ClickNth clicks the index-th element (document order) matching selector
func (d *Driver) ClickNth(ctx context.Context, selector string, index int, opts ClickOptions) error {
	if index < 0 {
		return fmt.Errorf("%w: negative index %d for %s", ErrElementNotFound, index, selector)
	}
	return d.click(ctx, fmt.Sprintf("%s [%d]", selector, index), d.page.Locator(selector).Nth(index), opts)
}

func (d *Driver) click(ctx context.Context, selector string, loc playwright.Locator, opts ClickOptions) error {
	if opts.Force {
		if err := d.waitAttached(ctx, selector, loc, opts.Timeout); err != nil {
			return err
		}
	} else if err := d.waitVisible(ctx, selector, loc, opts.Timeout); err != nil {
		return err
	}

	return d.act(ctx, "click", selector, func(timeout *float64) error {
		return loc.Click(playwright.LocatorClickOptions{
			Force:   playwright.Bool(opts.Force),
			Timeout: timeout,
		})
	})
}

// Hover moves the pointer over the first element matching selector
func (d *Driver) Hover(ctx context.Context, selector string) error {
	loc := d.page.Locator(selector).First()
	if err := d.waitVisible(ctx, selector, loc, 0); err != nil {
		return err
	}
	return d.act(ctx, "hover", selector, func(timeout *float64) error {
		return loc.Hover(playwright.LocatorHoverOptions{Timeout: timeout})
	})
}

// TypeAndSubmit replaces the content of an input and presses Enter
func (d *Driver) TypeAndSubmit(ctx context.Context, selector, text string) error {
	loc := d.page.Locator(selector).First()
	if err := d.waitVisible(ctx, selector, loc, 0); err != nil {
		return err
	}
	return d.act(ctx, "type", selector, func(timeout *float64) error {
		if err := loc.Clear(playwright.LocatorClearOptions{Timeout: timeout}); err != nil {
			return err
		}
		if err := loc.Fill(text, playwright.LocatorFillOptions{Timeout: timeout}); err != nil {
			return err
		}
		return loc.Press("Enter", playwright.LocatorPressOptions{Timeout: timeout})
	})
}

// act runs fn, retrying once when the element went stale mid-action.
func (d *Driver) act(ctx context.Context, action, selector string, fn func(timeout *float64) error) error {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		d.logger.Debug(action, zap.String("selector", selector), zap.Int("attempt", attempt))
		err := fn(millis(d.bounded(ctx, d.opts.ActionTimeout)))
		if err == nil {
			return nil
		}
		if errors.Is(err, playwright.ErrTargetClosed) {
			return fmt.Errorf("%w: %s %s: %w", ErrInteraction, action, selector, err)
		}

		lastErr = err
		d.logger.Debug("action failed",
			zap.String("action", action),
			zap.String("selector", selector),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return fmt.Errorf("%w: %s %s: %w", ErrInteraction, action, selector, lastErr)
}

// Text returns the rendered text of the first visible element matching selector
func (d *Driver) Text(ctx context.Context, selector string) (string, error) {
	loc := d.page.Locator(selector).First()
	if err := d.waitVisible(ctx, selector, loc, 0); err != nil {
		return "", err
	}
	text, err := loc.InnerText(playwright.LocatorInnerTextOptions{
		Timeout: millis(d.bounded(ctx, d.opts.ActionTimeout)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: read text of %s: %w", ErrInteraction, selector, err)
	}
	return strings.TrimSpace(text), nil
}

// Texts returns the rendered text of every element currently matching selector, without waiting
func (d *Driver) Texts(ctx context.Context, selector string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	texts, err := d.page.Locator(selector).AllInnerTexts()
	if err != nil {
		return nil, fmt.Errorf("read texts of %s: %w", selector, err)
	}
	for i := range texts {
		texts[i] = strings.TrimSpace(texts[i])
	}
	return texts, nil
}

// Attributes returns attribute name of every element currently matching selector.
// Elements without the attribute yield an empty string.
func (d *Driver) Attributes(ctx context.Context, selector, name string) ([]string, error) {
	loc := d.page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", selector, err)
	}

	values := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := loc.Nth(i).GetAttribute(name, playwright.LocatorGetAttributeOptions{
			Timeout: millis(d.bounded(ctx, d.opts.ActionTimeout)),
		})
		if err != nil {
			return nil, fmt.Errorf("read %s of %s [%d]: %w", name, selector, i, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// Count returns how many elements currently match selector
func (d *Driver) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := d.page.Locator(selector).Count()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", selector, err)
	}
	return n, nil
}

// BodyText returns the full rendered text of the page
func (d *Driver) BodyText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := d.page.Locator("body").InnerText(playwright.LocatorInnerTextOptions{
		Timeout: millis(d.bounded(ctx, d.opts.ActionTimeout)),
	})
	if err != nil {
		return "", fmt.Errorf("read page text: %w", err)
	}
	return text, nil
}

// AssertVisible reports whether selector became visible within timeout
func (d *Driver) AssertVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	err := d.WaitVisible(ctx, selector, timeout)
	if errors.Is(err, ErrElementNotFound) {
		return false, nil
	}
	return err == nil, err
}

// AssertContainsText reports whether the first element matching selector contained text within timeout
func (d *Driver) AssertContainsText(ctx context.Context, selector, text string, timeout time.Duration) (bool, error) {
	loc := d.page.Locator(selector).First()
	err := Until(ctx, d.orDefault(timeout), d.opts.PollInterval, func(context.Context) (bool, error) {
		n, err := loc.Count()
		if err != nil || n == 0 {
			return false, nil
		}
		got, err := loc.InnerText(playwright.LocatorInnerTextOptions{
			Timeout: millis(d.opts.PollInterval),
		})
		if err != nil {
			return false, nil
		}
		return strings.Contains(got, text), nil
	})
	return d.assertResult(err)
}

// TextAppearsAnywhere reports whether text appeared in the page body within timeout
func (d *Driver) TextAppearsAnywhere(ctx context.Context, text string, timeout time.Duration) (bool, error) {
	err := Until(ctx, d.orDefault(timeout), d.opts.PollInterval, func(ctx context.Context) (bool, error) {
		body, err := d.BodyText(ctx)
		if err != nil {
			return false, nil
		}
		return strings.Contains(body, text), nil
	})
	return d.assertResult(err)
}

func (d *Driver) assertResult(err error) (bool, error) {
	if errors.Is(err, ErrWaitTimeout) {
		return false, nil
	}
	return err == nil, err
}

func (d *Driver) orDefault(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return d.opts.DefaultTimeout
	}
	return timeout
}

// bounded caps limit by whatever remains of the context deadline
func (d *Driver) bounded(ctx context.Context, limit time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < limit {
			if remaining < time.Millisecond {
				return time.Millisecond
			}
			return remaining
		}
	}
	return limit
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}
