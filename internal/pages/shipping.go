package pages

import "strings"

// ShippingThresholdState is what the cart says about free shipping
type ShippingThresholdState int

const (
	// ShippingUnknown means neither banner (or both) was found.
	ShippingUnknown ShippingThresholdState = iota
	ShippingBelowThreshold
	ShippingQualified
)

// Banner copy the classification is based on
const (
	QualifiedBanner = "Your order qualifies for FREE Shipping"
	BelowBanner     = "of eligible items to your order for FREE Shipping"
)

func (s ShippingThresholdState) String() string {
	switch s {
	case ShippingBelowThreshold:
		return "below-threshold"
	case ShippingQualified:
		return "qualified"
	default:
		return "unknown"
	}
}

// ParseShippingThresholdState maps a String() value back to a state
func ParseShippingThresholdState(s string) (ShippingThresholdState, bool) {
	switch s {
	case "below-threshold":
		return ShippingBelowThreshold, true
	case "qualified":
		return ShippingQualified, true
	case "unknown":
		return ShippingUnknown, true
	}
	return ShippingUnknown, false
}

// ClassifyShipping derives the threshold state from page text. The banners are
// mutually exclusive; seeing both is reported as unknown rather than guessed.
func ClassifyShipping(text string) ShippingThresholdState {
	qualified := strings.Contains(text, QualifiedBanner)
	below := strings.Contains(text, BelowBanner)

	switch {
	case qualified && !below:
		return ShippingQualified
	case below && !qualified:
		return ShippingBelowThreshold
	default:
		return ShippingUnknown
	}
}
