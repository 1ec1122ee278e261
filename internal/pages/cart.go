package pages

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/themizzi/retailcheck/internal/driver"
	"go.uber.org/zap"
)

// DefaultMaxClearIterations bounds ClearAll
const DefaultMaxClearIterations = 50

// LineItem is one row of the active cart
type LineItem struct {
	Name     string
	Quantity int
}

type cartSelectors struct {
	container      string
	rows           string
	deleteButton   string
	increaseButton string
	subtotal       string
	emptyMessage   string
}

// CartPage is the shopping cart
type CartPage struct {
	Base
	sel           cartSelectors
	maxIterations int
}

// NewCartPage creates the cart page object
func NewCartPage(d Driver, timeouts Timeouts, logger *zap.Logger) *CartPage {
	sel := cartSelectors{
		container:      "#sc-active-cart",
		rows:           "#sc-active-cart .sc-list-item",
		deleteButton:   `[value="Delete"]`,
		increaseButton: `[aria-label="Increase quantity by one"]`,
		subtotal:       "#sc-subtotal-amount-activecart",
		emptyMessage:   "Your Amazon Cart is empty",
	}
	return &CartPage{
		Base:          newBase("cart", d, Descriptor{Path: "/gp/cart/view.html", ReadySelector: sel.container}, timeouts, logger),
		sel:           sel,
		maxIterations: DefaultMaxClearIterations,
	}
}

// WithMaxClearIterations overrides the ClearAll bound
func (p *CartPage) WithMaxClearIterations(n int) *CartPage {
	if n > 0 {
		p.maxIterations = n
	}
	return p
}

// AssertLineItemCountAtLeast waits for at least n rows to render
func (p *CartPage) AssertLineItemCountAtLeast(ctx context.Context, n int) error {
	var got int
	err := driver.Until(ctx, p.timeouts.Default, p.timeouts.Poll, func(ctx context.Context) (bool, error) {
		c, err := p.driver.Count(ctx, p.sel.rows)
		if err != nil {
			return false, ctx.Err()
		}
		got = c
		return c >= n, nil
	})
	if errors.Is(err, driver.ErrWaitTimeout) {
		return fmt.Errorf("%w: cart has %d rows, want at least %d", ErrAssertion, got, n)
	}
	return err
}

// LineItems reads the rows of the active cart. A row without a readable
// quantity counts as one unit.
func (p *CartPage) LineItems(ctx context.Context) ([]LineItem, error) {
	names, err := p.driver.Texts(ctx, p.sel.rows)
	if err != nil {
		return nil, err
	}
	quantities, err := p.driver.Attributes(ctx, p.sel.rows, "data-quantity")
	if err != nil {
		return nil, err
	}

	items := make([]LineItem, 0, len(names))
	for i, name := range names {
		qty := 1
		if i < len(quantities) {
			if n, err := strconv.Atoi(strings.TrimSpace(quantities[i])); err == nil && n > 0 {
				qty = n
			}
		}
		items = append(items, LineItem{Name: name, Quantity: qty})
	}
	return items, nil
}

func (p *CartPage) rowMatching(nameFragment string) string {
	return fmt.Sprintf("%s:has-text(%q)", p.sel.rows, nameFragment)
}

// IncreaseQuantity clicks the "+" control of the first row matching nameFragment
// times times, waiting for the subtotal to change after each click.
func (p *CartPage) IncreaseQuantity(ctx context.Context, nameFragment string, times int) error {
	if times < 0 {
		return fmt.Errorf("increase quantity: negative count %d", times)
	}
	row := p.rowMatching(nameFragment)
	if err := p.driver.WaitVisible(ctx, row, p.timeouts.Default); err != nil {
		return fmt.Errorf("cart row %q: %w", nameFragment, err)
	}
	increase := row + " >> " + p.sel.increaseButton

	for i := 0; i < times; i++ {
		before, err := p.Subtotal(ctx)
		if err != nil {
			return err
		}
		if err := p.driver.Click(ctx, increase, driver.ClickOptions{}); err != nil {
			return fmt.Errorf("increase %q (click %d of %d): %w", nameFragment, i+1, times, err)
		}
		if err := p.waitSubtotalChange(ctx, before); err != nil {
			return err
		}
	}
	return nil
}

// Subtotal returns the active cart subtotal text, or "" when none is shown
func (p *CartPage) Subtotal(ctx context.Context) (string, error) {
	texts, err := p.driver.Texts(ctx, p.sel.subtotal)
	if err != nil {
		return "", err
	}
	if len(texts) == 0 {
		return "", nil
	}
	return texts[0], nil
}

// waitSubtotalChange waits for the cart to recompute. A subtotal that never
// moves (quantity cap, slow recompute) is logged and tolerated.
func (p *CartPage) waitSubtotalChange(ctx context.Context, before string) error {
	err := driver.Until(ctx, p.timeouts.Settle, p.timeouts.Poll, func(ctx context.Context) (bool, error) {
		now, err := p.Subtotal(ctx)
		if err != nil {
			return false, ctx.Err()
		}
		return now != before, nil
	})
	if errors.Is(err, driver.ErrWaitTimeout) {
		p.logger.Warn("subtotal did not change", zap.String("subtotal", before), zap.Duration("waited", p.timeouts.Settle))
		return nil
	}
	return err
}

// ShippingThresholdState polls the page for one of the two shipping banners.
// Unknown is returned (without error) when neither shows up in time.
func (p *CartPage) ShippingThresholdState(ctx context.Context) (ShippingThresholdState, error) {
	state := ShippingUnknown
	err := driver.Until(ctx, p.timeouts.Assert, p.timeouts.Poll, func(ctx context.Context) (bool, error) {
		text, err := p.driver.BodyText(ctx)
		if err != nil {
			return false, ctx.Err()
		}
		state = ClassifyShipping(text)
		return state != ShippingUnknown, nil
	})
	if errors.Is(err, driver.ErrWaitTimeout) {
		return ShippingUnknown, nil
	}
	if err != nil {
		return ShippingUnknown, err
	}
	return state, nil
}

// AssertShippingThreshold fails unless the cart reports want.
// An unknown state fails with ErrThresholdUnknown whatever was wanted.
func (p *CartPage) AssertShippingThreshold(ctx context.Context, want ShippingThresholdState) error {
	got, err := p.ShippingThresholdState(ctx)
	if err != nil {
		return err
	}
	if got == ShippingUnknown {
		return fmt.Errorf("%w: wanted %s", ErrThresholdUnknown, want)
	}
	if got != want {
		return fmt.Errorf("%w: shipping threshold is %s, want %s", ErrAssertion, got, want)
	}
	return nil
}

// ClearAll deletes cart rows one at a time, reloading the cart between deletions,
// until no delete control remains. It gives up with ErrCartNotEmptied after the
// iteration bound. On an empty cart it is a no-op.
func (p *CartPage) ClearAll(ctx context.Context) error {
	for i := 0; i < p.maxIterations; i++ {
		if err := p.Visit(ctx); err != nil {
			return err
		}

		remaining, err := p.driver.Count(ctx, p.sel.deleteButton)
		if err != nil {
			return err
		}
		if remaining == 0 {
			p.logger.Info("cart cleared", zap.Int("deletions", i))
			return nil
		}

		if err := p.driver.Click(ctx, p.sel.deleteButton, driver.ClickOptions{Force: true}); err != nil {
			return fmt.Errorf("delete cart row: %w", err)
		}

		err = driver.Until(ctx, p.timeouts.Settle, p.timeouts.Poll, func(ctx context.Context) (bool, error) {
			n, err := p.driver.Count(ctx, p.sel.deleteButton)
			if err != nil {
				return false, ctx.Err()
			}
			return n < remaining, nil
		})
		if errors.Is(err, driver.ErrWaitTimeout) {
			p.logger.Warn("deleted row still rendered", zap.Int("remaining", remaining))
			continue
		}
		if err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: delete controls remain after %d attempts", ErrCartNotEmptied, p.maxIterations)
}

// AssertEmpty checks the empty-cart message is shown
func (p *CartPage) AssertEmpty(ctx context.Context) error {
	return p.assertText(ctx, p.sel.emptyMessage, p.timeouts.Assert)
}
