package money

import "github.com/shopspring/decimal"

// ParseDecimalString validates and normalizes a human-entered decimal
// string (e.g. from a CLI flag or config file) using shopspring/decimal,
// then hands the normalized text to Parse to build the int64 fixed-point
// Amount used everywhere else in the core. This is a parsing-boundary
// convenience only — decimal.Decimal never appears on the order-book or
// trade-engine hot path.
func ParseDecimalString(s, currency string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidCurrency
	}
	text := d.String()
	if currency != "" {
		text += " " + currency
	}
	return Parse(text)
}
