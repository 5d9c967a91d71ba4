package money

import "github.com/dustin/go-humanize"

// Humanize renders the amount with thousands separators for CLI/log
// display. Never use this for round-tripping or comparisons.
func (a Amount) Humanize() string {
	return humanize.CommafWithDigits(a.ToDouble(), int(a.NbDecimals())) + " " + a.Currency().String()
}
