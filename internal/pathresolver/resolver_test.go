package pathresolver

import (
	"testing"

	"coincenter-core/internal/market"
	"coincenter-core/internal/money"
)

func mustMarket(t *testing.T, s string) market.Market {
	t.Helper()
	m, err := market.Parse(s)
	if err != nil {
		t.Fatalf("market.Parse(%q) error: %v", s, err)
	}
	return m
}

func TestFindPathPrefersPreferredCurrency(t *testing.T) {
	markets := []market.Market{
		mustMarket(t, "ETH-BTC"),
		mustMarket(t, "BTC-USDT"),
		mustMarket(t, "XRP-BTC"),
	}
	usdt := money.MustCurrencyCode("USDT")
	r := New(markets, []money.CurrencyCode{usdt})

	steps, err := r.FindPath(money.MustCurrencyCode("XRP"), usdt)
	if err != nil {
		t.Fatalf("FindPath error: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected a 2-step path, got %d: %v", len(steps), steps)
	}
	if steps[0].Market.String() != "XRP-BTC" || !steps[0].Forward {
		t.Fatalf("step 0 = %v, want XRP-BTC forward", steps[0])
	}
	if steps[1].Market.String() != "BTC-USDT" || !steps[1].Forward {
		t.Fatalf("step 1 = %v, want BTC-USDT forward", steps[1])
	}
}

func TestFindPathNoPath(t *testing.T) {
	markets := []market.Market{mustMarket(t, "ETH-BTC")}
	r := New(markets, nil)
	_, err := r.FindPath(money.MustCurrencyCode("ETH"), money.MustCurrencyCode("XRP"))
	if err != ErrNoConversionPath {
		t.Fatalf("expected ErrNoConversionPath, got %v", err)
	}
}

func TestFindPathSameCurrency(t *testing.T) {
	markets := []market.Market{mustMarket(t, "ETH-BTC")}
	r := New(markets, nil)
	steps, err := r.FindPath(money.MustCurrencyCode("ETH"), money.MustCurrencyCode("ETH"))
	if err != nil {
		t.Fatalf("FindPath same currency error: %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("expected empty path for identical endpoints, got %v", steps)
	}
}

func TestFindPathDeterministic(t *testing.T) {
	markets := []market.Market{
		mustMarket(t, "ETH-BTC"),
		mustMarket(t, "BTC-USDT"),
		mustMarket(t, "XRP-BTC"),
	}
	r := New(markets, []money.CurrencyCode{money.MustCurrencyCode("USDT")})
	a, err1 := r.FindPath(money.MustCurrencyCode("XRP"), money.MustCurrencyCode("USDT"))
	b, err2 := r.FindPath(money.MustCurrencyCode("XRP"), money.MustCurrencyCode("USDT"))
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if len(a) != len(b) {
		t.Fatal("repeated FindPath calls should be deterministic")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("step %d differs between calls: %v vs %v", i, a[i], b[i])
		}
	}
}
