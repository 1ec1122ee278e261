// Package pagetest provides an in-memory storefront that satisfies the page
// objects' Driver interface. It renders just enough of the retail site's DOM
// (header, location dialog, search results, product detail, cart, help center)
// for page objects and scenarios to run without a browser.
//
// Checks are evaluated once against the current state; nothing here polls or sleeps.
package pagetest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/themizzi/retailcheck/internal/driver"
)

// Selectors rendered by the shop. They mirror the live site's markup.
const (
	SelInterstitial     = `input[value="Continue shopping"], button:has-text("Continue shopping")`
	SelLogo             = "#nav-logo"
	SelSearchBox        = "#twotabsearchtextbox"
	SelNavbar           = "#navbar"
	SelAccountMenu      = "#nav-link-accountList"
	SelCustomerService  = `a:has-text("Customer Service")`
	SelLocationButton   = "#nav-global-location-popover-link"
	SelCountryDropdown  = `span.a-button-text.a-declarative[role="radiogroup"]`
	SelCountryOptions   = "a.a-dropdown-link"
	SelCountryValue     = "#GLUXCountryValue"
	SelLocationDone     = `button[name="glowDoneButton"]`
	SelDeliveryLocation = "#glow-ingress-line2"
	SelSearchResult     = `[data-component-type="s-search-result"]`
	SelProductTitle     = "#productTitle"
	SelAddToCart        = "#add-to-cart-button"
	SelRegularPrice     = `[role="button"]:has-text("Regular Price")`
	SelUpsellMarker     = `[data-testid="attach-sidesheet-checkout-button"]`
	SelCloseModal       = `[aria-label="Close"]`
	SelCart             = "#sc-active-cart"
	SelCartRows         = "#sc-active-cart .sc-list-item"
	SelDelete           = `[value="Delete"]`
	SelIncrease         = `[aria-label="Increase quantity by one"]`
	SelSubtotal         = "#sc-subtotal-amount-activecart"
	SelHelpSearch       = "#hubHelpSearchInput"
	SelGenericSearch    = `input[type="search"]`
	SelHelpCenter       = "#help-center"

	CartPath = "/gp/cart/view.html"
	HelpPath = "/gp/help/customer/display.html"

	PrimeOnlyPhrase = "This deal is exclusively for Amazon Prime members."
	QualifiedBanner = "Your order qualifies for FREE Shipping."
	EmptyCartText   = "Your Amazon Cart is empty"
)

const (
	countryOptionPrefix = `a.a-dropdown-link[data-value*="`
	resultImagePrefix   = `img[alt*="`
	visibleTextPrefix   = "text="
	visibleTextSuffix   = " >> visible=true"
	selectorSuffix      = `"]`
)

type pageKind int

const (
	pageBlank pageKind = iota
	pageHome
	pageResults
	pageProduct
	pageCart
	pageHelp
)

// Variant is a selectable product option such as a colour
type Variant struct {
	Selector string
	Text     string
}

// Product is a catalog entry
type Product struct {
	Name       string
	Path       string
	PriceCents int
	// PrimeOnly shows the Prime-only phrase and hides add-to-cart until the
	// regular price is chosen.
	PrimeOnly    bool
	RegularPrice bool
	Upsell       bool
	Variants     []Variant
}

// Country is a delivery location in the location dialog
type Country struct {
	Code string
	Name string
}

type line struct {
	product int
	qty     int
}

type element struct {
	text    string
	attrs   map[string]string
	visible bool
}

// Shop is the simulated storefront. Exported fields may be changed between
// calls; the rest is page state driven through the Driver methods.
type Shop struct {
	mu sync.Mutex

	Catalog        []Product
	Countries      []Country
	ThresholdCents int
	// Interstitials is how many upcoming navigations land on the bot check.
	Interstitials int
	// StuckDelete makes delete clicks leave the cart untouched.
	StuckDelete bool
	// MaxQuantity caps a line's quantity; zero means no cap.
	MaxQuantity int
	// HelpArticles maps a lower-cased help query to the article title it shows.
	HelpArticles map[string]string
	// NoHubSearch renders the help center without its dedicated search box.
	NoHubSearch bool
	// ClickErr, when set, can fail a click before it takes effect.
	ClickErr func(selector string) error

	page          pageKind
	interstitial  bool
	query         string
	product       int
	regularChosen bool
	variant       string
	added         bool
	upsellOpen    bool
	locationOpen  bool
	dropdownOpen  bool
	pending       int
	country       int
	cart          []line
	helpTitle     string
	actions       []string
	navigations   []string
}

// Default catalog entries
const (
	SharpenerName = "Bostitch Office Personal Electric Pencil Sharpener"
	ScissorsName  = "Westcott 8\" Straight Titanium Bonded Scissors"
	ScissorsPath  = "/dp/B0006HXSB8"
	ScissorsColor = `li[title="Click to select Black"]`
)

// NewShop returns a storefront with the default catalog: a $15.99 pencil
// sharpener, a $6.99 pair of scissors with a colour variant and an upsell
// sheet, and a $49.00 free-shipping threshold.
func NewShop() *Shop {
	return &Shop{
		Catalog: []Product{
			{Name: SharpenerName, Path: "/dp/B00125Q75Y", PriceCents: 1599},
			{
				Name:       ScissorsName,
				Path:       ScissorsPath,
				PriceCents: 699,
				Upsell:     true,
				Variants:   []Variant{{Selector: ScissorsColor, Text: "Black"}},
			},
		},
		Countries: []Country{
			{Code: "US", Name: "United States"},
			{Code: "HK", Name: "Hong Kong"},
			{Code: "GB", Name: "United Kingdom"},
		},
		ThresholdCents: 4900,
		HelpArticles: map[string]string{
			"where is my stuff": "Where's My Stuff?",
		},
		product: -1,
	}
}

// AddToCart puts quantity units of the named catalog product straight into the cart
func (s *Shop) AddToCart(name string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.Catalog {
		if p.Name == name {
			s.addLine(i, quantity)
			return
		}
	}
	panic(fmt.Sprintf("pagetest: %q not in catalog", name))
}

// CartLines returns the number of rows in the cart
func (s *Shop) CartLines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cart)
}

// CartTotalCents returns the cart subtotal in cents
func (s *Shop) CartTotalCents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalCents()
}

// Quantity returns the quantity of the first line whose product name contains fragment
func (s *Shop) Quantity(fragment string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.cart {
		if strings.Contains(s.Catalog[l.product].Name, fragment) {
			return l.qty
		}
	}
	return 0
}

// DeliveryCountry returns the name of the selected delivery country
func (s *Shop) DeliveryCountry() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Countries[s.country].Name
}

// Actions returns the interactions performed so far, e.g. "click #nav-logo"
func (s *Shop) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.actions...)
}

// Navigations returns every path passed to Navigate
func (s *Shop) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

func (s *Shop) record(format string, args ...any) {
	s.actions = append(s.actions, fmt.Sprintf(format, args...))
}

func (s *Shop) addLine(product, qty int) {
	for i := range s.cart {
		if s.cart[i].product == product {
			s.cart[i].qty = s.capped(s.cart[i].qty + qty)
			return
		}
	}
	s.cart = append(s.cart, line{product: product, qty: s.capped(qty)})
}

func (s *Shop) capped(qty int) int {
	if s.MaxQuantity > 0 && qty > s.MaxQuantity {
		return s.MaxQuantity
	}
	return qty
}

func (s *Shop) totalCents() int {
	total := 0
	for _, l := range s.cart {
		total += s.Catalog[l.product].PriceCents * l.qty
	}
	return total
}

func dollars(cents int) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

// Navigate implements the page objects' Driver
func (s *Shop) Navigate(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.navigations = append(s.navigations, path)
	u, err := url.Parse(path)
	if err != nil {
		return err
	}

	s.locationOpen, s.dropdownOpen, s.upsellOpen = false, false, false
	s.interstitial = false
	if s.Interstitials > 0 {
		s.Interstitials--
		s.interstitial = true
	}

	switch p := u.Path; p {
	case "", "/":
		s.page = pageHome
	case CartPath:
		s.page = pageCart
	case HelpPath:
		s.page = pageHelp
		s.helpTitle = ""
	default:
		for i, prod := range s.Catalog {
			if prod.Path == p {
				s.openProduct(i)
				return nil
			}
		}
		s.page = pageBlank
		return fmt.Errorf("navigate to %s: no such page", path)
	}
	return nil
}

func (s *Shop) openProduct(i int) {
	s.page = pageProduct
	s.product = i
	s.regularChosen, s.added, s.variant = false, false, ""
}

func (s *Shop) cartRow(l line) element {
	return element{
		text:    s.Catalog[l.product].Name,
		attrs:   map[string]string{"data-quantity": strconv.Itoa(l.qty)},
		visible: true,
	}
}

func (s *Shop) matchingResults() []int {
	var out []int
	q := strings.ToLower(s.query)
	for i, p := range s.Catalog {
		if q != "" && strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, i)
		}
	}
	return out
}

func visible(text string, attrs map[string]string) []element {
	return []element{{text: text, attrs: attrs, visible: true}}
}

func quotedBetween(sel, prefix string) (string, bool) {
	if !strings.HasPrefix(sel, prefix) || !strings.HasSuffix(sel, selectorSuffix) {
		return "", false
	}
	return sel[len(prefix) : len(sel)-len(selectorSuffix)], true
}

// hasTextRows parses `<rows>:has-text("frag")` and `<rows>:has-text("frag") >> <child>`
func hasTextRows(sel string) (fragment, child string, ok bool) {
	rest, found := strings.CutPrefix(sel, SelCartRows+":has-text(")
	if !found {
		return "", "", false
	}
	end := strings.Index(rest, ")")
	if end < 0 {
		return "", "", false
	}
	fragment, err := strconv.Unquote(rest[:end])
	if err != nil {
		return "", "", false
	}
	child = strings.TrimPrefix(rest[end+1:], " >> ")
	return fragment, child, true
}

// elements renders every element currently matching sel
func (s *Shop) elements(sel string) []element {
	if s.interstitial {
		if sel == SelInterstitial {
			return visible("Continue shopping", nil)
		}
		return nil
	}
	if s.page == pageBlank {
		return nil
	}

	if text, ok := strings.CutPrefix(sel, visibleTextPrefix); ok && strings.HasSuffix(text, visibleTextSuffix) {
		text = strings.TrimSuffix(text, visibleTextSuffix)
		if strings.Contains(s.body(), text) {
			return visible(text, nil)
		}
		return nil
	}

	if els, ok := s.headerElements(sel); ok {
		return els
	}

	switch s.page {
	case pageResults:
		return s.resultElements(sel)
	case pageProduct:
		return s.productElements(sel)
	case pageCart:
		return s.cartElements(sel)
	case pageHelp:
		return s.helpElements(sel)
	}
	return nil
}

func (s *Shop) headerElements(sel string) ([]element, bool) {
	switch sel {
	case SelLogo, SelNavbar, SelAccountMenu, SelLocationButton:
		return visible("", nil), true
	case SelSearchBox:
		return visible("", map[string]string{"placeholder": "Search Amazon"}), true
	case SelCustomerService:
		return visible("Customer Service", nil), true
	case SelDeliveryLocation:
		return visible(s.Countries[s.country].Name, nil), true
	case SelCountryDropdown, SelLocationDone:
		if s.locationOpen {
			return visible("", nil), true
		}
		return nil, true
	case SelCountryValue:
		if s.locationOpen {
			return visible(s.Countries[s.pending].Name, nil), true
		}
		return nil, true
	case SelCountryOptions:
		if !s.dropdownOpen {
			return nil, true
		}
		els := make([]element, 0, len(s.Countries))
		for _, c := range s.Countries {
			els = append(els, s.countryOption(c))
		}
		return els, true
	}

	if code, ok := quotedBetween(sel, countryOptionPrefix); ok {
		if !s.dropdownOpen {
			return nil, true
		}
		var els []element
		for _, i := range s.countriesWithCode(code) {
			els = append(els, s.countryOption(s.Countries[i]))
		}
		return els, true
	}
	return nil, false
}

func (s *Shop) countryOption(c Country) element {
	return element{
		text:    c.Name,
		attrs:   map[string]string{"data-value": fmt.Sprintf(`{"stringVal":"%s"}`, c.Code)},
		visible: true,
	}
}

func (s *Shop) countriesWithCode(code string) []int {
	var out []int
	for i, c := range s.Countries {
		if strings.Contains(fmt.Sprintf(`{"stringVal":"%s"}`, c.Code), code) {
			out = append(out, i)
		}
	}
	return out
}

func (s *Shop) resultElements(sel string) []element {
	results := s.matchingResults()
	if sel == SelSearchResult {
		els := make([]element, 0, len(results))
		for _, i := range results {
			els = append(els, element{text: s.Catalog[i].Name, visible: true})
		}
		return els
	}
	if alt, ok := quotedBetween(sel, resultImagePrefix); ok {
		var els []element
		for _, i := range results {
			if strings.Contains(s.Catalog[i].Name, alt) {
				els = append(els, element{attrs: map[string]string{"alt": s.Catalog[i].Name}, visible: true})
			}
		}
		return els
	}
	return nil
}

func (s *Shop) addable() bool {
	p := s.Catalog[s.product]
	return !p.PrimeOnly || s.regularChosen
}

func (s *Shop) productElements(sel string) []element {
	p := s.Catalog[s.product]
	switch sel {
	case SelProductTitle:
		return visible(p.Name, nil)
	case SelAddToCart:
		if s.addable() {
			return visible("Add to Cart", nil)
		}
		return nil
	case SelRegularPrice:
		if p.RegularPrice {
			return visible("Regular Price", nil)
		}
		return nil
	case SelUpsellMarker, SelCloseModal:
		if s.upsellOpen {
			return visible("", nil)
		}
		return nil
	}
	for _, v := range p.Variants {
		if v.Selector == sel {
			return visible(v.Text, nil)
		}
	}
	return nil
}

func (s *Shop) cartElements(sel string) []element {
	switch sel {
	case SelCart:
		return visible("", nil)
	case SelCartRows:
		els := make([]element, 0, len(s.cart))
		for _, l := range s.cart {
			els = append(els, s.cartRow(l))
		}
		return els
	case SelDelete:
		els := make([]element, 0, len(s.cart))
		for range s.cart {
			els = append(els, element{attrs: map[string]string{"value": "Delete"}, visible: true})
		}
		return els
	case SelSubtotal:
		if len(s.cart) == 0 {
			return nil
		}
		return visible(dollars(s.totalCents()), nil)
	}

	fragment, child, ok := hasTextRows(sel)
	if !ok {
		return nil
	}
	var els []element
	for _, l := range s.cart {
		if !strings.Contains(s.Catalog[l.product].Name, fragment) {
			continue
		}
		switch child {
		case "":
			els = append(els, s.cartRow(l))
		case SelIncrease:
			els = append(els, visible("+", nil)...)
		}
	}
	return els
}

func (s *Shop) helpElements(sel string) []element {
	switch sel {
	case SelHelpSearch:
		if s.NoHubSearch {
			return nil
		}
		return visible("", nil)
	case SelGenericSearch, SelHelpCenter:
		return visible("", nil)
	}
	return nil
}

// body renders the page's full text
func (s *Shop) body() string {
	if s.interstitial {
		return "Click the button below to continue shopping\nContinue shopping"
	}
	if s.page == pageBlank {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Deliver to %s\nToday's Deals\nCustomer Service\nRegistry\n", s.Countries[s.country].Name)
	if s.locationOpen {
		fmt.Fprintf(&b, "Choose your location\n%s\n", s.Countries[s.pending].Name)
	}

	switch s.page {
	case pageResults:
		for _, i := range s.matchingResults() {
			fmt.Fprintf(&b, "%s\n", s.Catalog[i].Name)
		}
	case pageProduct:
		p := s.Catalog[s.product]
		fmt.Fprintf(&b, "%s\n%s\n", p.Name, dollars(p.PriceCents))
		if p.PrimeOnly && !s.regularChosen {
			fmt.Fprintf(&b, "%s\n", PrimeOnlyPhrase)
		}
		if s.variant != "" {
			fmt.Fprintf(&b, "Color: %s\n", s.variant)
		}
		if s.added {
			b.WriteString("Added to Cart\n")
		}
	case pageCart:
		if len(s.cart) == 0 {
			fmt.Fprintf(&b, "%s\n", EmptyCartText)
			break
		}
		total := s.totalCents()
		if total >= s.ThresholdCents {
			fmt.Fprintf(&b, "%s Select this option at checkout.\n", QualifiedBanner)
		} else {
			fmt.Fprintf(&b, "Add %s of eligible items to your order for FREE Shipping.\n", dollars(s.ThresholdCents-total))
		}
		for _, l := range s.cart {
			fmt.Fprintf(&b, "%s\nQty: %d\n", s.Catalog[l.product].Name, l.qty)
		}
		fmt.Fprintf(&b, "Subtotal: %s\n", dollars(total))
	case pageHelp:
		b.WriteString("Hello. What can we help you with?\n")
		if s.helpTitle != "" {
			fmt.Fprintf(&b, "%s\n", s.helpTitle)
		}
	}
	return b.String()
}

// click applies the effect of clicking the index-th match of sel
func (s *Shop) click(sel string, index int) {
	switch sel {
	case SelInterstitial:
		s.interstitial = false
		return
	case SelLocationButton:
		s.locationOpen = true
		s.pending = s.country
		return
	case SelCountryDropdown:
		s.dropdownOpen = true
		return
	case SelLocationDone:
		s.country = s.pending
		s.locationOpen, s.dropdownOpen = false, false
		return
	case SelCustomerService:
		s.page = pageHelp
		s.helpTitle = ""
		return
	}

	if code, ok := quotedBetween(sel, countryOptionPrefix); ok {
		s.pending = s.countriesWithCode(code)[index]
		s.dropdownOpen = false
		return
	}

	switch s.page {
	case pageResults:
		if alt, ok := quotedBetween(sel, resultImagePrefix); ok {
			var hits []int
			for _, i := range s.matchingResults() {
				if strings.Contains(s.Catalog[i].Name, alt) {
					hits = append(hits, i)
				}
			}
			s.openProduct(hits[index])
		}
	case pageProduct:
		s.clickProduct(sel)
	case pageCart:
		s.clickCart(sel, index)
	}
}

func (s *Shop) clickProduct(sel string) {
	p := s.Catalog[s.product]
	switch sel {
	case SelRegularPrice:
		s.regularChosen = true
	case SelAddToCart:
		s.addLine(s.product, 1)
		s.added = true
		s.upsellOpen = p.Upsell
	case SelCloseModal:
		s.upsellOpen = false
	default:
		for _, v := range p.Variants {
			if v.Selector == sel {
				s.variant = v.Text
			}
		}
	}
}

func (s *Shop) clickCart(sel string, index int) {
	if sel == SelDelete {
		if !s.StuckDelete {
			s.cart = append(s.cart[:index], s.cart[index+1:]...)
		}
		return
	}
	fragment, child, ok := hasTextRows(sel)
	if !ok || child != SelIncrease {
		return
	}
	seen := 0
	for i := range s.cart {
		if strings.Contains(s.Catalog[s.cart[i].product].Name, fragment) {
			if seen == index {
				s.cart[i].qty = s.capped(s.cart[i].qty + 1)
				return
			}
			seen++
		}
	}
}

func (s *Shop) submit(sel, text string) {
	switch sel {
	case SelSearchBox:
		s.page = pageResults
		s.query = text
	case SelHelpSearch, SelGenericSearch:
		if s.page == pageHelp {
			s.helpTitle = s.HelpArticles[strings.ToLower(strings.TrimSpace(text))]
		}
	}
}

func notFound(sel string) error {
	return fmt.Errorf("%w: %s", driver.ErrElementNotFound, sel)
}

// WaitVisible implements the page objects' Driver
func (s *Shop) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if els := s.elements(selector); len(els) > 0 && els[0].visible {
		return nil
	}
	return notFound(selector)
}

// WaitHidden implements the page objects' Driver
func (s *Shop) WaitHidden(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if els := s.elements(selector); len(els) > 0 && els[0].visible {
		return fmt.Errorf("%w: %s still visible", driver.ErrInteraction, selector)
	}
	return nil
}

// Click implements the page objects' Driver
func (s *Shop) Click(ctx context.Context, selector string, opts driver.ClickOptions) error {
	return s.ClickNth(ctx, selector, 0, opts)
}

// ClickNth implements the page objects' Driver
func (s *Shop) ClickNth(ctx context.Context, selector string, index int, opts driver.ClickOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	els := s.elements(selector)
	if index < 0 || index >= len(els) || (!opts.Force && !els[index].visible) {
		return notFound(selector)
	}
	if s.ClickErr != nil {
		if err := s.ClickErr(selector); err != nil {
			return fmt.Errorf("%w: click %s: %w", driver.ErrInteraction, selector, err)
		}
	}
	s.record("click %s", selector)
	s.click(selector, index)
	return nil
}

// Hover implements the page objects' Driver
func (s *Shop) Hover(ctx context.Context, selector string) error {
	if err := s.WaitVisible(ctx, selector, 0); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("hover %s", selector)
	return nil
}

// TypeAndSubmit implements the page objects' Driver
func (s *Shop) TypeAndSubmit(ctx context.Context, selector, text string) error {
	if err := s.WaitVisible(ctx, selector, 0); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("submit %s %q", selector, text)
	s.submit(selector, text)
	return nil
}

// Text implements the page objects' Driver
func (s *Shop) Text(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	els := s.elements(selector)
	if len(els) == 0 || !els[0].visible {
		return "", notFound(selector)
	}
	return els[0].text, nil
}

// Texts implements the page objects' Driver
func (s *Shop) Texts(ctx context.Context, selector string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	els := s.elements(selector)
	texts := make([]string, 0, len(els))
	for _, el := range els {
		texts = append(texts, el.text)
	}
	return texts, nil
}

// Attributes implements the page objects' Driver
func (s *Shop) Attributes(ctx context.Context, selector, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	els := s.elements(selector)
	values := make([]string, 0, len(els))
	for _, el := range els {
		values = append(values, el.attrs[name])
	}
	return values, nil
}

// Count implements the page objects' Driver
func (s *Shop) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.elements(selector)), nil
}

// BodyText implements the page objects' Driver
func (s *Shop) BodyText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body(), nil
}

// AssertVisible implements the page objects' Driver
func (s *Shop) AssertVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	err := s.WaitVisible(ctx, selector, timeout)
	if err != nil && ctx.Err() != nil {
		return false, err
	}
	return err == nil, nil
}

// AssertContainsText implements the page objects' Driver
func (s *Shop) AssertContainsText(ctx context.Context, selector, text string, _ time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	els := s.elements(selector)
	return len(els) > 0 && strings.Contains(els[0].text, text), nil
}

// TextAppearsAnywhere implements the page objects' Driver
func (s *Shop) TextAppearsAnywhere(ctx context.Context, text string, _ time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Contains(s.body(), text), nil
}
