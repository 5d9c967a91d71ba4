// Package market implements the Market data type: an ordered pair of
// currencies with semantic roles (base/quote) plus a regular /
// fiat-conversion kind flag, packed the way CurrencyCode packs its own
// additional-bits field.
package market

import (
	"errors"
	"strings"

	"coincenter-core/internal/money"
)

// ErrInvalidMarket is raised when a market string fails to parse.
var ErrInvalidMarket = errors.New("market: invalid market string")

// Kind distinguishes a regular exchange market from a synthetic
// fiat-conversion one (priced by an external rate service rather than an
// order book).
type Kind uint8

const (
	Regular Kind = iota
	FiatConversion
)

// Market is a (base, quote) pair of currencies. The kind flag rides in
// the base currency's additional-bits field, the same trick CurrencyCode
// uses to carry a decimals count for Money.
type Market struct {
	base, quote money.CurrencyCode
}

// New builds a Market of the given kind from two currency codes.
func New(base, quote money.CurrencyCode, kind Kind) Market {
	return Market{base: taggedBase(base, kind), quote: quote}
}

// taggedBase clears the base currency's additional-bits field and then
// stashes the kind flag in its low bit (the base currency of a market
// never carries a decimals count).
func taggedBase(base money.CurrencyCode, kind Kind) money.CurrencyCode {
	plain := base.WithNoDecimalsPart()
	if kind == FiatConversion {
		return plain.WithAdditionalBit()
	}
	return plain
}

// Base returns the base currency, kind flag stripped.
func (m Market) Base() money.CurrencyCode { return m.base.WithNoDecimalsPart() }

// Quote returns the quote currency.
func (m Market) Quote() money.CurrencyCode { return m.quote }

// Kind reports whether this is a regular or fiat-conversion market.
func (m Market) Kind() Kind {
	if m.base.HasAdditionalBit() {
		return FiatConversion
	}
	return Regular
}

// Reverse swaps base and quote, keeping the kind flag.
func (m Market) Reverse() Market {
	return New(m.Quote(), m.Base(), m.Kind())
}

// Equal compares two markets by base/quote currency identity and kind.
func (m Market) Equal(o Market) bool {
	return m.Base().Equal(o.Base()) && m.Quote().Equal(o.Quote()) && m.Kind() == o.Kind()
}

// String renders "BASE-QUOTE", with a leading '*' for fiat-conversion
// markets.
func (m Market) String() string {
	prefix := ""
	if m.Kind() == FiatConversion {
		prefix = "*"
	}
	return prefix + m.Base().String() + "-" + m.Quote().String()
}

// Parse accepts "BASE-QUOTE" or "base-quote", with an optional leading
// '*' marking a fiat-conversion market.
func Parse(s string) (Market, error) {
	kind := Regular
	if strings.HasPrefix(s, "*") {
		kind = FiatConversion
		s = s[1:]
	}
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Market{}, ErrInvalidMarket
	}
	base, err := money.NewCurrencyCode(parts[0])
	if err != nil {
		return Market{}, ErrInvalidMarket
	}
	quote, err := money.NewCurrencyCode(parts[1])
	if err != nil {
		return Market{}, ErrInvalidMarket
	}
	return New(base, quote, kind), nil
}
