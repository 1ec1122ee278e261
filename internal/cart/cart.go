// Package cart brackets scenarios with a known cart state: Setup fills the cart
// from a Plan, Teardown empties it, and Run guarantees the teardown.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/themizzi/retailcheck/internal/pages"
)

// DefaultTeardownTimeout bounds Teardown when Run has to detach it from a cancelled context
const DefaultTeardownTimeout = 2 * time.Minute

var (
	ErrSetup    = errors.New("cart setup failed")
	ErrTeardown = errors.New("cart teardown failed")
)

// TeardownError is returned by Teardown. It matches ErrTeardown under errors.Is
// and unwraps to the underlying cause.
type TeardownError struct {
	Err error
}

func (e *TeardownError) Error() string {
	return ErrTeardown.Error() + ": " + e.Err.Error()
}

func (e *TeardownError) Unwrap() error { return e.Err }

func (e *TeardownError) Is(target error) bool { return target == ErrTeardown }

// Item is one product to put in the cart. It is reached either by URL or by
// searching for SearchTerm and opening the result matching ResultSelector.
type Item struct {
	Name            string
	SearchTerm      string
	URL             string
	ResultSelector  string
	VariantSelector string
	VariantText     string
	DismissUpsell   bool
}

// Plan is the cart a scenario starts from
type Plan struct {
	// Locale, when set, is applied on the home page before any product is added.
	Locale *pages.Locale
	Items  []Item
}

// Manager drives cart setup and teardown through the page objects
type Manager struct {
	driver          pages.Driver
	timeouts        pages.Timeouts
	logger          *zap.Logger
	teardownTimeout time.Duration
	maxClear        int
}

// Option tunes a Manager
type Option func(*Manager)

// WithTeardownTimeout overrides DefaultTeardownTimeout
func WithTeardownTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.teardownTimeout = d
		}
	}
}

// WithMaxClearIterations bounds the delete loop of Teardown
func WithMaxClearIterations(n int) Option {
	return func(m *Manager) {
		m.maxClear = n
	}
}

// NewManager creates a Manager
func NewManager(d pages.Driver, timeouts pages.Timeouts, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		driver:          d,
		timeouts:        timeouts,
		logger:          logger,
		teardownTimeout: DefaultTeardownTimeout,
		maxClear:        pages.DefaultMaxClearIterations,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) cartPage() *pages.CartPage {
	return pages.NewCartPage(m.driver, m.timeouts, m.logger).WithMaxClearIterations(m.maxClear)
}

// Setup fills the cart according to plan and returns the cart page, visited and
// showing at least one row per item. Items blocked behind Prime are skipped and
// reported together once the rest of the plan has been applied; any other
// failure stops setup immediately. All errors wrap ErrSetup.
func (m *Manager) Setup(ctx context.Context, plan Plan) (*pages.CartPage, error) {
	home := pages.NewHomePage(m.driver, m.timeouts, m.logger)
	if err := home.Visit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	if plan.Locale != nil {
		if err := home.SetLocale(ctx, *plan.Locale); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSetup, err)
		}
	}

	var blocked []error
	for i, item := range plan.Items {
		log := m.logger.With(zap.String("item", item.Name), zap.Int("index", i))
		log.Info("adding item to cart")

		err := m.addItem(ctx, home, item)
		if errors.Is(err, pages.ErrPrimeOnlyBlocked) {
			log.Warn("item blocked behind prime", zap.Error(err))
			blocked = append(blocked, fmt.Errorf("item %q: %w", item.Name, err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: item %q: %w", ErrSetup, item.Name, err)
		}
	}
	if len(blocked) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrSetup, errors.Join(blocked...))
	}

	cart := m.cartPage()
	if err := cart.Visit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	if err := cart.AssertLineItemCountAtLeast(ctx, len(plan.Items)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	return cart, nil
}

func (m *Manager) addItem(ctx context.Context, home *pages.HomePage, item Item) error {
	var product *pages.ProductPage
	switch {
	case item.URL != "":
		product = pages.NewProductPage(m.driver, m.timeouts, m.logger)
		if err := product.Open(ctx, item.URL); err != nil {
			return err
		}
	case item.SearchTerm != "":
		results, err := home.SearchForProduct(ctx, item.SearchTerm)
		if err != nil {
			return err
		}
		if product, err = results.OpenResult(ctx, item.ResultSelector); err != nil {
			return err
		}
	default:
		return fmt.Errorf("item %q has neither a URL nor a search term", item.Name)
	}

	if item.VariantSelector != "" {
		if err := product.SelectVariant(ctx, item.VariantSelector, item.VariantText); err != nil {
			return err
		}
	}
	if err := product.AddToCart(ctx); err != nil {
		return err
	}
	if item.DismissUpsell {
		return product.DismissUpsellModalIfPresent(ctx)
	}
	return nil
}

// Teardown empties the cart and checks the empty-cart message. Running it on an
// empty cart succeeds. Errors are *TeardownError.
func (m *Manager) Teardown(ctx context.Context) error {
	cart := m.cartPage()
	if err := cart.ClearAll(ctx); err != nil {
		return &TeardownError{Err: err}
	}
	if err := cart.AssertEmpty(ctx); err != nil {
		return &TeardownError{Err: err}
	}
	return nil
}

// Run sets up plan, runs body against the resulting cart and always tears down,
// even when setup or body fail, body panics or ctx is cancelled. Teardown gets
// its own context that keeps ctx's values but not its cancellation. Setup or
// body errors are joined with the teardown error.
func (m *Manager) Run(ctx context.Context, plan Plan, body func(context.Context, *pages.CartPage) error) (err error) {
	defer func() {
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.teardownTimeout)
		defer cancel()
		if terr := m.Teardown(tctx); terr != nil {
			m.logger.Error("teardown failed", zap.Error(terr))
			err = errors.Join(err, terr)
		}
	}()

	cart, err := m.Setup(ctx, plan)
	if err != nil {
		return err
	}
	return body(ctx, cart)
}
