package pages

import (
	"fmt"
	"strings"
)

// Locale is a delivery country as offered by the location dialog
type Locale struct {
	// Code is the two-letter country code carried in the option's data-value.
	Code string
	// Name is the visible country name, also expected in the confirmation field.
	Name string
}

// Validate checks the code is two ASCII letters and the name is present
func (l Locale) Validate() error {
	if len(l.Code) != 2 || !isASCIILetter(l.Code[0]) || !isASCIILetter(l.Code[1]) {
		return fmt.Errorf("%w: country code %q must be two letters", ErrInvalidLocale, l.Code)
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: country name is required", ErrInvalidLocale)
	}
	return nil
}

// Normalize upper-cases the code and trims the name
func (l Locale) Normalize() Locale {
	return Locale{
		Code: strings.ToUpper(strings.TrimSpace(l.Code)),
		Name: strings.TrimSpace(l.Name),
	}
}

func (l Locale) String() string {
	return fmt.Sprintf("%s (%s)", l.Name, l.Code)
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// matchLocaleOption picks the option for name among texts, in document order.
// An exact match wins over an earlier partial one; -1 means no option matched.
func matchLocaleOption(texts []string, name string) int {
	for i, text := range texts {
		if strings.TrimSpace(text) == name {
			return i
		}
	}
	for i, text := range texts {
		if strings.Contains(text, name) {
			return i
		}
	}
	return -1
}
