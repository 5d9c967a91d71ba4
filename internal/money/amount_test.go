package money

import "testing"

func TestParseRoundTrip(t *testing.T) {
	cases := []string{"10.5 EUR", "45 KRW", "-345.8909", "0.0005 ETH"}
	for _, s := range cases {
		a, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) unexpected error: %v", s, err)
		}
		if got := a.String(); got != s {
			t.Errorf("Parse(%q).String() = %q, want %q", s, got, s)
		}
	}
}

func TestParseCurrencyAmountAt(t *testing.T) {
	a, err := Parse("15020.67 EUR")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	got, ok := a.AmountAt(4)
	if !ok {
		t.Fatal("AmountAt(4) overflowed unexpectedly")
	}
	if got != 150206700 {
		t.Fatalf("AmountAt(4) = %d, want 150206700", got)
	}
}

func TestNewNormalizationEquivalence(t *testing.T) {
	cur := MustCurrencyCode("EUR")
	a := New(5, cur, 0)
	b := New(50, cur, 1)
	if !a.Equal(b) {
		t.Fatalf("new(5, cur, 0) should equal new(50, cur, 1) after normalization")
	}
}

func TestAddCurrencyMismatch(t *testing.T) {
	a := New(100, MustCurrencyCode("EUR"), 0)
	b := New(100, MustCurrencyCode("USD"), 0)
	if _, err := Add(a, b); err != ErrCurrencyMismatch {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestAddRescalesToGreaterPrecision(t *testing.T) {
	cur := MustCurrencyCode("EUR")
	a := New(100, cur, 0)   // 100
	b := New(5025, cur, 2)  // 50.25
	sum, err := Add(a, b)
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	want := New(15025, cur, 2) // 150.25
	if !sum.Equal(want) {
		t.Fatalf("Add = %s, want %s", sum, want)
	}
}

func TestAddAssociativity(t *testing.T) {
	cur := MustCurrencyCode("EUR")
	a := New(123, cur, 2)
	b := New(456, cur, 2)
	c := New(789, cur, 2)
	ab, _ := Add(a, b)
	abc1, _ := Add(ab, c)
	bc, _ := Add(b, c)
	abc2, _ := Add(a, bc)
	if !abc1.Equal(abc2) {
		t.Fatalf("(a+b)+c = %s, a+(b+c) = %s, want equal", abc1, abc2)
	}
}

func TestMulRequiresNeutralOperand(t *testing.T) {
	eur := New(100, MustCurrencyCode("EUR"), 0)
	usd := New(100, MustCurrencyCode("USD"), 0)
	if _, err := Mul(eur, usd); err != ErrCurrencyMismatch {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
	neutral := New(2, Neutral, 0)
	res, err := Mul(eur, neutral)
	if err != nil {
		t.Fatalf("Mul error: %v", err)
	}
	if !res.Currency().Equal(eur.Currency()) {
		t.Fatalf("(a * b.ToNeutral()).Currency() must equal a.Currency()")
	}
}

func TestConvertTo(t *testing.T) {
	eth, _ := Parse("2 ETH")
	price, _ := Parse("1600 EUR")
	got, err := eth.ConvertTo(price)
	if err != nil {
		t.Fatalf("ConvertTo error: %v", err)
	}
	want, _ := Parse("3200 EUR")
	if !got.Equal(want) {
		t.Fatalf("ConvertTo = %s, want %s", got, want)
	}

	eur, _ := Parse("1500 EUR")
	ethPrice, _ := Parse("0.0005 ETH")
	got2, err := eur.ConvertTo(ethPrice)
	if err != nil {
		t.Fatalf("ConvertTo error: %v", err)
	}
	want2, _ := Parse("0.75 ETH")
	if !got2.Equal(want2) {
		t.Fatalf("ConvertTo = %s, want %s", got2, want2)
	}
}

func TestRoundDownUpBracket(t *testing.T) {
	x, _ := Parse("123.45")
	step, _ := Parse("0.1")
	down, err := x.Round(step, RoundDown)
	if err != nil {
		t.Fatalf("Round down error: %v", err)
	}
	up, err := x.Round(step, RoundUp)
	if err != nil {
		t.Fatalf("Round up error: %v", err)
	}
	if !down.Less(x) && !down.Equal(x) {
		t.Fatalf("round(x, s, Down) should be <= x")
	}
	if !x.Less(up) && !x.Equal(up) {
		t.Fatalf("x should be <= round(x, s, Up)")
	}
	diff, err := Sub(up, down)
	if err != nil {
		t.Fatalf("Sub error: %v", err)
	}
	if !diff.IsZero() && !diff.Equal(step) {
		t.Fatalf("round(up)-round(down) should be 0 or step, got %s", diff)
	}
}

func TestRoundExactStep(t *testing.T) {
	x, _ := Parse("123.4")
	step, _ := Parse("0.1")
	down, _ := x.Round(step, RoundDown)
	up, _ := x.Round(step, RoundUp)
	if !down.Equal(x) || !up.Equal(x) {
		t.Fatalf("rounding an exact multiple should return the same value, got down=%s up=%s", down, up)
	}
}

func TestDivisionByZero(t *testing.T) {
	a, _ := Parse("10 EUR")
	zero := New(0, Neutral, 0)
	if _, err := Div(a, zero); err != ErrArithmetic {
		t.Fatalf("expected ErrArithmetic on division by zero, got %v", err)
	}
}
