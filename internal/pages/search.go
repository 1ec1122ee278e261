package pages

import (
	"context"
	"fmt"

	"github.com/themizzi/retailcheck/internal/driver"
	"go.uber.org/zap"
)

// SearchResultsPage is the product listing shown after a header search.
// It is reached by searching, never by URL.
type SearchResultsPage struct {
	Base
}

// NewSearchResultsPage creates the search results page object
func NewSearchResultsPage(d Driver, timeouts Timeouts, logger *zap.Logger) *SearchResultsPage {
	return &SearchResultsPage{
		Base: newBase("search-results", d, Descriptor{
			ReadySelector: `[data-component-type="s-search-result"]`,
		}, timeouts, logger),
	}
}

// ResultCount returns how many results are rendered
func (p *SearchResultsPage) ResultCount(ctx context.Context) (int, error) {
	return p.driver.Count(ctx, p.desc.ReadySelector)
}

// OpenResult clicks the first element matching selectorHint (typically a product
// image matched on its alt text) and waits for the product page.
func (p *SearchResultsPage) OpenResult(ctx context.Context, selectorHint string) (*ProductPage, error) {
	if selectorHint == "" {
		return nil, fmt.Errorf("%w: empty result selector", driver.ErrElementNotFound)
	}
	if err := p.driver.Click(ctx, selectorHint, driver.ClickOptions{Timeout: p.timeouts.Default}); err != nil {
		return nil, fmt.Errorf("open search result: %w", err)
	}

	product := NewProductPage(p.driver, p.timeouts, p.root)
	if err := product.WaitReady(ctx); err != nil {
		return nil, err
	}
	return product, nil
}
