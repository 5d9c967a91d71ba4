// Package money implements the fixed-point currency code and monetary
// amount primitives every other core component builds on.
package money

import "errors"

var (
	// ErrInvalidCurrency is raised when a currency symbol fails to parse:
	// wrong length or a character outside the restricted ASCII range.
	ErrInvalidCurrency = errors.New("money: invalid currency code")

	// ErrCurrencyMismatch is raised when an arithmetic operation is
	// attempted on two non-neutral amounts of different currencies.
	ErrCurrencyMismatch = errors.New("money: currency mismatch")

	// ErrArithmetic is raised on int64 overflow that truncation cannot
	// resolve, or on division by zero.
	ErrArithmetic = errors.New("money: arithmetic overflow")
)
