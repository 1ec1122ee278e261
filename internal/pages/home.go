package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/themizzi/retailcheck/internal/driver"
	"go.uber.org/zap"
)

type homeSelectors struct {
	logo                string
	searchBox           string
	navigationBar       string
	accountMenu         string
	customerServiceLink string
	locationButton      string
	countryDropdown     string
	countryOptions      string
	countryOptionByCode string
	countryValue        string
	locationDone        string
	deliveryLocation    string
	mainMenu            []string
}

// HomePage is the storefront root
type HomePage struct {
	Base
	sel homeSelectors
}

// NewHomePage creates the home page object
func NewHomePage(d Driver, timeouts Timeouts, logger *zap.Logger) *HomePage {
	sel := homeSelectors{
		logo:                "#nav-logo",
		searchBox:           "#twotabsearchtextbox",
		navigationBar:       "#navbar",
		accountMenu:         "#nav-link-accountList",
		customerServiceLink: `a:has-text("Customer Service")`,
		locationButton:      "#nav-global-location-popover-link",
		countryDropdown:     `span.a-button-text.a-declarative[role="radiogroup"]`,
		countryOptions:      "a.a-dropdown-link",
		countryOptionByCode: `a.a-dropdown-link[data-value*="%s"]`,
		countryValue:        "#GLUXCountryValue",
		locationDone:        `button[name="glowDoneButton"]`,
		deliveryLocation:    "#glow-ingress-line2",
		mainMenu:            []string{"Today's Deals", "Customer Service", "Registry"},
	}
	return &HomePage{
		Base: newBase("home", d, Descriptor{Path: "/", ReadySelector: sel.logo}, timeouts, logger),
		sel:  sel,
	}
}

// SearchForProduct submits name in the header search box and waits for results
func (p *HomePage) SearchForProduct(ctx context.Context, name string) (*SearchResultsPage, error) {
	p.logger.Info("searching", zap.String("query", name))
	if err := p.driver.TypeAndSubmit(ctx, p.sel.searchBox, name); err != nil {
		return nil, err
	}

	results := NewSearchResultsPage(p.driver, p.timeouts, p.root)
	if err := results.WaitReady(ctx); err != nil {
		return nil, fmt.Errorf("search results for %q: %w", name, err)
	}
	return results, nil
}

// SetLocale switches the delivery country through the location dialog.
// Among the options whose data-value carries the code, the one whose text is
// the locale name is chosen (exact match first, then first partial match).
func (p *HomePage) SetLocale(ctx context.Context, locale Locale) error {
	locale = locale.Normalize()
	if err := locale.Validate(); err != nil {
		return err
	}
	p.logger.Info("setting delivery location", zap.String("locale", locale.String()))

	if err := p.driver.Click(ctx, p.sel.locationButton, driver.ClickOptions{}); err != nil {
		return fmt.Errorf("open location dialog: %w", err)
	}
	if err := p.driver.Click(ctx, p.sel.countryDropdown, driver.ClickOptions{}); err != nil {
		return fmt.Errorf("open country dropdown: %w", err)
	}
	if err := p.driver.WaitVisible(ctx, p.sel.countryOptions, p.timeouts.Default); err != nil {
		return fmt.Errorf("country dropdown did not open: %w", err)
	}

	options := fmt.Sprintf(p.sel.countryOptionByCode, locale.Code)
	texts, err := p.driver.Texts(ctx, options)
	if err != nil {
		return err
	}
	idx := matchLocaleOption(texts, locale.Name)
	if idx < 0 {
		return fmt.Errorf("%w: code %q name %q (%d options carry the code)",
			ErrLocaleNotFound, locale.Code, locale.Name, len(texts))
	}
	if err := p.driver.ClickNth(ctx, options, idx, driver.ClickOptions{}); err != nil {
		return fmt.Errorf("select %s: %w", locale, err)
	}

	ok, err := p.driver.AssertContainsText(ctx, p.sel.countryValue, locale.Name, p.timeouts.Probe)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s does not show %q", ErrAssertion, p.sel.countryValue, locale.Name)
	}

	if err := p.driver.Click(ctx, p.sel.locationDone, driver.ClickOptions{}); err != nil {
		return fmt.Errorf("confirm location: %w", err)
	}
	return p.driver.WaitHidden(ctx, p.sel.locationDone, p.timeouts.Default)
}

// DeliveryLocation returns the header's "deliver to" line
func (p *HomePage) DeliveryLocation(ctx context.Context) (string, error) {
	return p.driver.Text(ctx, p.sel.deliveryLocation)
}

// GoToCustomerService opens the help center. The link can sit inside the
// collapsed account menu, so the menu is hovered first and the click is forced
// through any overlay.
func (p *HomePage) GoToCustomerService(ctx context.Context) (*CustomerServicePage, error) {
	if err := p.driver.Hover(ctx, p.sel.accountMenu); err != nil {
		return nil, fmt.Errorf("open account menu: %w", err)
	}
	if err := p.driver.Click(ctx, p.sel.customerServiceLink, driver.ClickOptions{
		Force:   true,
		Timeout: p.timeouts.Assert,
	}); err != nil {
		return nil, err
	}

	cs := NewCustomerServicePage(p.driver, p.timeouts, p.root)
	if err := cs.WaitReady(ctx); err != nil {
		return nil, err
	}
	return cs, nil
}

// ValidateHomepage checks the logo, search box and navigation bar are visible
func (p *HomePage) ValidateHomepage(ctx context.Context) error {
	for _, sel := range []string{p.sel.logo, p.sel.searchBox, p.sel.navigationBar} {
		if err := p.assertVisible(ctx, sel, p.timeouts.Assert); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSearchBox checks the search box is usable and initialised with a placeholder
func (p *HomePage) ValidateSearchBox(ctx context.Context) error {
	if err := p.assertVisible(ctx, p.sel.searchBox, p.timeouts.Assert); err != nil {
		return err
	}
	placeholders, err := p.driver.Attributes(ctx, p.sel.searchBox, "placeholder")
	if err != nil {
		return err
	}
	if len(placeholders) == 0 || strings.TrimSpace(placeholders[0]) == "" {
		return fmt.Errorf("%w: %s has no placeholder", ErrAssertion, p.sel.searchBox)
	}
	return nil
}

// ValidateMainMenu checks the main navigation entries are visible
func (p *HomePage) ValidateMainMenu(ctx context.Context) error {
	var errs []error
	for _, item := range p.sel.mainMenu {
		if err := p.assertVisible(ctx, visibleText(item), p.timeouts.Assert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
