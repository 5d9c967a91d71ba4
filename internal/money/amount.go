package money

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Amount is a fixed-point decimal value: amount / 10^decimals, tagged
// with a currency. The decimals count is not a separate field — it
// rides in the currency code's additional-bits field, mirroring
// MonetaryAmount in the original source ("currency code with decimals
// field").
type Amount struct {
	raw int64
	cur CurrencyCode
}

// maxDigits10 mirrors std::numeric_limits<int64_t>::digits10 (18): the
// largest number of decimal digits guaranteed to fit in an int64.
const maxDigits10 = 18

// ipow computes base^exp for small non-negative exp (exp <= 18 in
// practice, callers never exceed maxDigits10).
func ipow(base int64, exp uint8) int64 {
	r := int64(1)
	for i := uint8(0); i < exp; i++ {
		r *= base
	}
	return r
}

// ndigits returns the number of base-10 digits in |n| (0 has 1 digit).
func ndigits(n int64) int {
	if n < 0 {
		n = -n
	}
	if n == 0 {
		return 1
	}
	d := 0
	for n > 0 {
		d++
		n /= 10
	}
	return d
}

// New builds an Amount directly from an integer multiplied by
// 10^decimals, simplifying trailing zero decimals away.
func New(raw int64, cur CurrencyCode, decimals uint8) Amount {
	a := Amount{raw: raw, cur: cur.withAdditionalBits(decimals)}
	a.simplify()
	return a
}

// Zero is the neutral zero amount.
var Zero = New(0, Neutral, 0)

func (a *Amount) simplify() {
	if a.raw == 0 {
		a.cur = a.cur.withAdditionalBits(0)
		return
	}
	dec := a.NbDecimals()
	for dec > 0 && a.raw%10 == 0 {
		a.raw /= 10
		dec--
	}
	a.cur = a.cur.withAdditionalBits(dec)
}

// NbDecimals returns the number of decimal digits this amount carries.
func (a Amount) NbDecimals() uint8 { return a.cur.additionalBits() }

// Currency returns the currency identity, decimals stripped.
func (a Amount) Currency() CurrencyCode { return a.cur.WithNoDecimalsPart() }

// Raw returns the underlying integer representation (amount *
// 10^NbDecimals()).
func (a Amount) Raw() int64 { return a.raw }

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.raw == 0 }

// ToDouble converts to a float64 approximation; never use on a hot path
// that needs exactness.
func (a Amount) ToDouble() float64 {
	return float64(a.raw) / math.Pow10(int(a.NbDecimals()))
}

// IntegerPart returns the truncated integer part of the amount.
func (a Amount) IntegerPart() int64 {
	return a.raw / ipow(10, a.NbDecimals())
}

// AmountAt returns the integer representation of a at the requested
// decimal count, or (0, false) if rescaling up would overflow int64.
func (a Amount) AmountAt(decimals uint8) (int64, bool) {
	return rescale(a.raw, a.NbDecimals(), decimals)
}

// rescale converts amount expressed at fromDec decimals into the
// equivalent integer at toDec decimals. Scaling down always succeeds
// (truncating toward zero, matching Go's integer division); scaling up
// can overflow, signalled by ok=false.
func rescale(amount int64, fromDec, toDec uint8) (scaled int64, ok bool) {
	if toDec == fromDec {
		return amount, true
	}
	if toDec < fromDec {
		diff := fromDec - toDec
		return amount / ipow(10, diff), true
	}
	diff := toDec - fromDec
	factor := ipow(10, diff)
	if amount == 0 {
		return 0, true
	}
	limit := math.MaxInt64 / factor
	if amount > limit || amount < -limit {
		return 0, false
	}
	return amount * factor, true
}

func addOverflow(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

func mulOverflow(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}

func maxU8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

func minU8(a, b uint8) uint8 {
	if a < b {
		return a
	}
	return b
}

// commonCurrency validates that a and b share a currency (allowing
// either to be neutral) and returns the carrying currency of the result.
func commonCurrency(a, b Amount) (CurrencyCode, error) {
	ca, cb := a.Currency(), b.Currency()
	if ca.IsNeutral() {
		return cb, nil
	}
	if cb.IsNeutral() {
		return ca, nil
	}
	if !ca.Equal(cb) {
		return CurrencyCode{}, ErrCurrencyMismatch
	}
	return ca, nil
}

// Add implements MonetaryAmount's operator+: operands are rescaled to
// the greater precision; if that would overflow, the lower-precision
// operand's original (smaller) decimals count is used instead, with the
// other operand truncated down to it. If the sum itself overflows, both
// operands are truncated one decimal at a time until it fits;
// ErrArithmetic is returned only when it overflows at zero decimals.
func Add(a, b Amount) (Amount, error) {
	cur, err := commonCurrency(a, b)
	if err != nil {
		return Amount{}, err
	}
	decA, decB := a.NbDecimals(), b.NbDecimals()
	dec := maxU8(decA, decB)
	ra, okA := rescale(a.raw, decA, dec)
	rb, okB := rescale(b.raw, decB, dec)
	if !okA || !okB {
		dec = minU8(decA, decB)
		ra, _ = rescale(a.raw, decA, dec)
		rb, _ = rescale(b.raw, decB, dec)
	}
	sum, ok := addOverflow(ra, rb)
	for !ok && dec > 0 {
		dec--
		ra, _ = rescale(a.raw, decA, dec)
		rb, _ = rescale(b.raw, decB, dec)
		sum, ok = addOverflow(ra, rb)
	}
	if !ok {
		return Amount{}, ErrArithmetic
	}
	return New(sum, cur, dec), nil
}

// Sub is a - b.
func Sub(a, b Amount) (Amount, error) {
	return Add(a, b.Neg())
}

// Neg returns -a.
func (a Amount) Neg() Amount {
	return New(-a.raw, a.cur, a.NbDecimals())
}

// MulScalar multiplies by a plain integer, keeping the carrying
// currency.
func (a Amount) MulScalar(mult int64) (Amount, error) {
	r, ok := mulOverflow(a.raw, mult)
	if !ok {
		return Amount{}, ErrArithmetic
	}
	return New(r, a.cur, a.NbDecimals()), nil
}

// Mul multiplies two amounts; at least one must be neutral, to avoid
// ambiguity in the resulting currency (Neutral*Neutral -> Neutral,
// X*Neutral -> X, Neutral*Y -> Y, X*Y is a CurrencyMismatch).
func Mul(a, b Amount) (Amount, error) {
	ca, cb := a.Currency(), b.Currency()
	var resCur CurrencyCode
	switch {
	case ca.IsNeutral() && cb.IsNeutral():
		resCur = Neutral
	case !ca.IsNeutral() && cb.IsNeutral():
		resCur = ca
	case ca.IsNeutral() && !cb.IsNeutral():
		resCur = cb
	default:
		return Amount{}, ErrCurrencyMismatch
	}
	decA, decB := int(a.NbDecimals()), int(b.NbDecimals())
	raw, ok := mulOverflow(a.raw, b.raw)
	dec := decA + decB
	if !ok || dec > maxDigits10 {
		// fall back to a bounded big.Int computation, then truncate.
		prod := new(big.Int).Mul(big.NewInt(a.raw), big.NewInt(b.raw))
		return amountFromBig(prod, resCur, uint8(dec)), nil
	}
	res := New(raw, resCur, uint8(dec))
	return res, nil
}

// amountFromBig truncates a big.Int magnitude (already at `decimals`
// scale) down until it fits an int64, reducing decimals accordingly.
func amountFromBig(v *big.Int, cur CurrencyCode, decimals uint8) Amount {
	maxI64 := big.NewInt(math.MaxInt64)
	minI64 := big.NewInt(math.MinInt64)
	ten := big.NewInt(10)
	for decimals > 0 && (v.Cmp(maxI64) > 0 || v.Cmp(minI64) < 0) {
		v.Quo(v, ten)
		decimals--
	}
	if v.Cmp(maxI64) > 0 {
		v.Set(maxI64)
	}
	if v.Cmp(minI64) < 0 {
		v.Set(minI64)
	}
	return New(v.Int64(), cur, decimals)
}

// DivScalar divides by a plain non-zero integer, keeping the carrying
// currency.
func (a Amount) DivScalar(div int64) (Amount, error) {
	if div == 0 {
		return Amount{}, ErrArithmetic
	}
	return divPrecise(a.raw, a.NbDecimals(), div, 0, a.Currency())
}

// Div divides two amounts. The result currency is a's currency when b
// is neutral, else neutral (a pure ratio). Division by a zero amount is
// an ArithmeticError.
func Div(a, b Amount) (Amount, error) {
	if b.IsZero() {
		return Amount{}, ErrArithmetic
	}
	resCur := Neutral
	if b.Currency().IsNeutral() {
		resCur = a.Currency()
	}
	return divPrecise(a.raw, a.NbDecimals(), b.raw, b.NbDecimals(), resCur)
}

// divPrecise computes (numerator/10^numDec) / (denominator/10^denDec) to
// up to maxDigits10 significant decimal digits, using a bounded
// big.Int intermediate to avoid premature int64 overflow, then
// simplifies the result back to the smallest exact decimal
// representation it can hold.
func divPrecise(numerator int64, numDec uint8, denominator int64, denDec uint8, cur CurrencyCode) (Amount, error) {
	if denominator == 0 {
		return Amount{}, ErrArithmetic
	}
	num := big.NewInt(numerator)
	den := big.NewInt(denominator)
	// scale numerator up so the quotient carries maxDigits10 fractional
	// digits beyond the operands' own decimal difference.
	extra := maxDigits10
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(extra)), nil)
	num.Mul(num, scale)
	q := new(big.Int).Quo(num, den)
	dec := int(numDec) - int(denDec) + extra
	for dec > 0 && new(big.Int).Abs(q).Cmp(big.NewInt(math.MaxInt64)) > 0 {
		q.Quo(q, big.NewInt(10))
		dec--
	}
	if dec < 0 {
		// negative decimals aren't representable; scale the integer up
		// instead (rare: denominator decimals outweigh numerator's by
		// more than `extra`).
		q.Mul(q, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-dec)), nil))
		dec = 0
	}
	if new(big.Int).Abs(q).Cmp(big.NewInt(math.MaxInt64)) > 0 {
		return Amount{}, ErrArithmetic
	}
	return New(q.Int64(), cur, uint8(dec)), nil
}

// RoundType selects rounding direction for Round.
type RoundType int

const (
	RoundDown RoundType = iota
	RoundUp
)

// Round rounds a to the nearest multiple of a strictly positive step,
// in a's own currency.
func (a Amount) Round(step Amount, rt RoundType) (Amount, error) {
	if step.raw <= 0 {
		return Amount{}, ErrArithmetic
	}
	ratio, err := Div(a, step)
	if err != nil {
		return Amount{}, err
	}
	dec := ratio.NbDecimals()
	trunc := ratio.raw / ipow(10, dec) // truncates toward zero
	exact := isExactInteger(ratio.raw, dec)
	n := trunc
	if !exact {
		switch {
		case rt == RoundDown && ratio.raw < 0:
			n = trunc - 1
		case rt == RoundUp && ratio.raw > 0:
			n = trunc + 1
		}
	}
	return step.MulScalar(n)
}

func isExactInteger(raw int64, dec uint8) bool {
	return raw%ipow(10, dec) == 0
}

// ToNeutral returns the same raw amount and decimals with currency
// stripped to neutral (used to cross-multiply against a price amount).
func (a Amount) ToNeutral() Amount {
	return Amount{raw: a.raw, cur: a.cur.ToNeutral()}
}

// WithCurrency returns the same raw amount and decimals re-tagged with a
// different currency. Used after a ratio computation (Div against a
// same-currency denominator) to relabel the numeric result into the
// currency it actually represents.
func (a Amount) WithCurrency(cur CurrencyCode) Amount {
	return New(a.raw, cur, a.NbDecimals())
}

// ConvertTo reprices a at price p: p * a.ToNeutral(), returning an
// amount in p's currency (mirrors MonetaryAmount::convertTo).
func (a Amount) ConvertTo(p Amount) (Amount, error) {
	return Mul(p, a.ToNeutral())
}

// Truncate reduces the amount to at most maxDecimals decimal digits,
// truncating toward zero.
func (a Amount) Truncate(maxDecimals uint8) Amount {
	dec := a.NbDecimals()
	if dec <= maxDecimals {
		return a
	}
	diff := dec - maxDecimals
	return New(a.raw/ipow(10, diff), a.cur, maxDecimals)
}

// Cmp returns -1, 0, 1 comparing a and b after rescaling to a common
// precision. Currencies are not checked: amounts of different currencies
// are compared by numeric value alone.
func Cmp(a, b Amount) int {
	dec := maxU8(a.NbDecimals(), b.NbDecimals())
	ra, okA := rescale(a.raw, a.NbDecimals(), dec)
	rb, okB := rescale(b.raw, b.NbDecimals(), dec)
	if !okA || !okB {
		dec = minU8(a.NbDecimals(), b.NbDecimals())
		ra, _ = rescale(a.raw, a.NbDecimals(), dec)
		rb, _ = rescale(b.raw, b.NbDecimals(), dec)
	}
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	default:
		return 0
	}
}

// Equal reports value equality after common-precision alignment; 1.0
// BTC == 1.00 BTC.
func (a Amount) Equal(b Amount) bool { return Cmp(a, b) == 0 }

// Less reports a < b after common-precision alignment.
func (a Amount) Less(b Amount) bool { return Cmp(a, b) < 0 }

// Parse parses "[-] digits [. digits] [ currency]" into an Amount. The
// number of decimals equals the digit count after the decimal point,
// auto-simplified (trailing zeros stripped). If no currency suffix is
// present, the result is neutral.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidCurrency
	}
	i := 0
	neg := false
	if s[i] == '-' {
		neg = true
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	intPart := s[start:i]
	var decPart string
	if i < len(s) && s[i] == '.' {
		i++
		start = i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		decPart = s[start:i]
	}
	if intPart == "" && decPart == "" {
		return Amount{}, ErrInvalidCurrency
	}
	rest := strings.TrimSpace(s[i:])
	cur := Neutral
	if rest != "" {
		c, err := NewCurrencyCode(rest)
		if err != nil {
			return Amount{}, err
		}
		cur = c
	}
	digits := intPart + decPart
	if digits == "" {
		digits = "0"
	}
	raw, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Amount{}, ErrArithmetic
	}
	if neg {
		raw = -raw
	}
	return New(raw, cur, uint8(len(decPart))), nil
}

// AmountStr renders the numeric value without a currency suffix.
func (a Amount) AmountStr() string {
	dec := a.NbDecimals()
	neg := a.raw < 0
	v := a.raw
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	for len(digits) <= int(dec) {
		digits = "0" + digits
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	if dec == 0 {
		b.WriteString(digits)
	} else {
		cut := len(digits) - int(dec)
		b.WriteString(digits[:cut])
		b.WriteByte('.')
		b.WriteString(digits[cut:])
	}
	return b.String()
}

// String renders "<amount> <CUR>", omitting the currency when neutral.
func (a Amount) String() string {
	s := a.AmountStr()
	if a.Currency().IsNeutral() {
		return s
	}
	return s + " " + a.Currency().String()
}
