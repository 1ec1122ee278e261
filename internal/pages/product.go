package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/themizzi/retailcheck/internal/driver"
	"go.uber.org/zap"
)

// PrimeRestrictionPhrase marks an offer gated behind a Prime membership
const PrimeRestrictionPhrase = "exclusively for Amazon Prime members"

type productSelectors struct {
	title        string
	addToCart    string
	addedToCart  string
	regularPrice string
	upsellMarker string
	closeModal   string
}

// ProductPage is a product detail page. It has no fixed path; it is opened
// from search results or by URL.
type ProductPage struct {
	Base
	sel productSelectors
}

// NewProductPage creates the product page object
func NewProductPage(d Driver, timeouts Timeouts, logger *zap.Logger) *ProductPage {
	sel := productSelectors{
		title:        "#productTitle",
		addToCart:    "#add-to-cart-button",
		addedToCart:  "Added to Cart",
		regularPrice: `[role="button"]:has-text("Regular Price")`,
		upsellMarker: `[data-testid="attach-sidesheet-checkout-button"]`,
		closeModal:   `[aria-label="Close"]`,
	}
	return &ProductPage{
		Base: newBase("product", d, Descriptor{ReadySelector: sel.title}, timeouts, logger),
		sel:  sel,
	}
}

// Open navigates straight to a product path or URL
func (p *ProductPage) Open(ctx context.Context, path string) error {
	return p.open(ctx, path)
}

// Title returns the product title
func (p *ProductPage) Title(ctx context.Context) (string, error) {
	return p.driver.Text(ctx, p.sel.title)
}

// IsPrimeRestricted reports whether the page text carries the Prime-only phrase
func (p *ProductPage) IsPrimeRestricted(ctx context.Context) (bool, error) {
	text, err := p.driver.BodyText(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(text, PrimeRestrictionPhrase), nil
}

// SelectRegularPriceIfAvailable picks the non-Prime price option when the page
// offers one. It reports whether the option was found and clicked.
func (p *ProductPage) SelectRegularPriceIfAvailable(ctx context.Context) (bool, error) {
	present, err := p.driver.AssertVisible(ctx, p.sel.regularPrice, p.timeouts.Probe)
	if err != nil || !present {
		return false, err
	}
	if err := p.driver.Click(ctx, p.sel.regularPrice, driver.ClickOptions{Force: true}); err != nil {
		return false, fmt.Errorf("select regular price: %w", err)
	}
	return true, nil
}

// AddToCart adds the current product, falling back to the regular price when
// the offer is Prime-only. A product that stays blocked yields ErrPrimeOnlyBlocked.
func (p *ProductPage) AddToCart(ctx context.Context) error {
	restricted, err := p.IsPrimeRestricted(ctx)
	if err != nil {
		return err
	}
	if restricted {
		p.logger.Info("prime-only offer, trying regular price")
		selected, err := p.SelectRegularPriceIfAvailable(ctx)
		if err != nil {
			return err
		}
		if !selected {
			return fmt.Errorf("%w: no regular-price alternative offered", ErrPrimeOnlyBlocked)
		}
	}

	available, err := p.driver.AssertVisible(ctx, p.sel.addToCart, p.timeouts.Default)
	if err != nil {
		return err
	}
	if !available {
		if restricted {
			return fmt.Errorf("%w: add-to-cart unavailable after choosing regular price", ErrPrimeOnlyBlocked)
		}
		return fmt.Errorf("%w: %s not visible after %s", driver.ErrElementNotFound, p.sel.addToCart, p.timeouts.Default)
	}

	if err := p.driver.Click(ctx, p.sel.addToCart, driver.ClickOptions{}); err != nil {
		return err
	}
	return p.assertText(ctx, p.sel.addedToCart, p.timeouts.Assert)
}

// SelectVariant clicks a variant control (colour, size) and waits for its confirmation text
func (p *ProductPage) SelectVariant(ctx context.Context, selector, expectedText string) error {
	if err := p.driver.Click(ctx, selector, driver.ClickOptions{Timeout: p.timeouts.Assert}); err != nil {
		return fmt.Errorf("select variant: %w", err)
	}
	return p.assertText(ctx, expectedText, p.timeouts.Assert)
}

// DismissUpsellModalIfPresent closes the add-on side sheet shown after adding
// some products. It is a no-op when the sheet never appears.
func (p *ProductPage) DismissUpsellModalIfPresent(ctx context.Context) error {
	present, err := p.driver.AssertVisible(ctx, p.sel.upsellMarker, p.timeouts.Probe)
	if err != nil || !present {
		return err
	}

	p.logger.Debug("closing upsell side sheet")
	if err := p.driver.Click(ctx, p.sel.closeModal, driver.ClickOptions{}); err != nil {
		return fmt.Errorf("close upsell modal: %w", err)
	}
	return p.driver.WaitHidden(ctx, p.sel.upsellMarker, p.timeouts.Default)
}
