package pages

import "errors"

// Page-level errors. Driver errors (driver.ErrElementNotFound, driver.ErrInteraction)
// pass through unchanged.
var (
	ErrAssertion        = errors.New("assertion failed")
	ErrInvalidLocale    = errors.New("invalid locale")
	ErrLocaleNotFound   = errors.New("locale option not found")
	ErrPrimeOnlyBlocked = errors.New("product is restricted to Prime members")
	ErrCartNotEmptied   = errors.New("cart not emptied")
	ErrThresholdUnknown = errors.New("shipping threshold banner not found")
	ErrNoFixedPath      = errors.New("page has no fixed path")
)
