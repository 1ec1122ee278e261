package pages

import (
	"context"

	"go.uber.org/zap"
)

type customerServiceSelectors struct {
	helpSearchInput string
	searchInput     string
	helpCenter      string
}

// CustomerServicePage is the help center
type CustomerServicePage struct {
	Base
	sel customerServiceSelectors
}

// NewCustomerServicePage creates the help center page object
func NewCustomerServicePage(d Driver, timeouts Timeouts, logger *zap.Logger) *CustomerServicePage {
	sel := customerServiceSelectors{
		helpSearchInput: "#hubHelpSearchInput",
		searchInput:     `input[type="search"]`,
		helpCenter:      "#help-center",
	}
	return &CustomerServicePage{
		Base: newBase("customer-service", d, Descriptor{
			Path:          "/gp/help/customer/display.html",
			ReadySelector: sel.helpSearchInput,
		}, timeouts, logger),
		sel: sel,
	}
}

// SearchHelp submits query in the help search box
func (p *CustomerServicePage) SearchHelp(ctx context.Context, query string) error {
	p.logger.Info("searching help", zap.String("query", query))
	return p.driver.TypeAndSubmit(ctx, p.sel.helpSearchInput, query)
}

// SearchHelpAlternative submits query through the generic search input, for
// layouts without the hub search box
func (p *CustomerServicePage) SearchHelpAlternative(ctx context.Context, query string) error {
	return p.driver.TypeAndSubmit(ctx, p.sel.searchInput, query)
}

// AssertArticleVisible waits for a help article titled title to be shown
func (p *CustomerServicePage) AssertArticleVisible(ctx context.Context, title string) error {
	return p.assertVisible(ctx, visibleText(title), p.timeouts.Assert)
}

// ValidateHelpCenter checks the help center container and its search box are visible
func (p *CustomerServicePage) ValidateHelpCenter(ctx context.Context) error {
	if err := p.assertVisible(ctx, p.sel.helpCenter, p.timeouts.Assert); err != nil {
		return err
	}
	return p.assertVisible(ctx, p.sel.helpSearchInput, p.timeouts.Assert)
}
