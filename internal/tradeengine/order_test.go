package tradeengine

import (
	"testing"
	"time"

	"coincenter-core/internal/money"
	"coincenter-core/internal/orderbook"
)

// Seed scenario §8.3: two closed orders with the same id, vol1=1.5 BTC
// @ 35000 USDT @ t1, vol2=2.5 BTC @ 45000 USDT @ t3, merge to vol=4 BTC,
// price=41250 USDT, matchedTime = volume-weighted mean of t1, t3.
func TestClosedOrderMergeSeedScenario(t *testing.T) {
	v1, _ := money.Parse("1.5 BTC")
	p1, _ := money.Parse("35000 USDT")
	v2, _ := money.Parse("2.5 BTC")
	p2, _ := money.Parse("45000 USDT")

	t1 := time.Unix(1_700_000_000, 0).UTC()
	t3 := time.Unix(1_700_000_300, 0).UTC()

	first := ClosedOrder{OrderCommon: OrderCommon{ID: 7, MatchedVolume: v1, Price: p1, PlacedTime: t1, Side: orderbook.Buy}, MatchedTime: t1}
	second := ClosedOrder{OrderCommon: OrderCommon{ID: 7, MatchedVolume: v2, Price: p2, PlacedTime: t1, Side: orderbook.Buy}, MatchedTime: t3}

	merged, err := first.MergeWith(second)
	if err != nil {
		t.Fatalf("MergeWith error: %v", err)
	}

	wantVol, _ := money.Parse("4 BTC")
	if !merged.MatchedVolume.Equal(wantVol) {
		t.Fatalf("merged volume = %s, want %s", merged.MatchedVolume, wantVol)
	}

	wantPrice, _ := money.Parse("41250 USDT")
	if !merged.Price.Equal(wantPrice) {
		t.Fatalf("merged price = %s, want %s", merged.Price, wantPrice)
	}

	// weighted mean of t1 (weight 1.5) and t3 (weight 2.5):
	// (1.5*t1 + 2.5*t3) / 4 = t1 + 2.5/4*(t3-t1) = t1 + 187.5s
	wantTime := t1.Add(187500 * time.Millisecond)
	if merged.MatchedTime.Sub(wantTime).Abs() > time.Second {
		t.Fatalf("merged matchedTime = %s, want ~%s", merged.MatchedTime, wantTime)
	}

	if merged.ID != 7 || merged.Side != orderbook.Buy || merged.PlacedTime != t1 {
		t.Fatalf("merge should preserve id/side/placedTime, got %+v", merged)
	}
}

func TestClosedOrderMergeSamePriceKeepsPriceExact(t *testing.T) {
	vol, _ := money.Parse("1 ETH")
	price, _ := money.Parse("2000 EUR")
	now := time.Now().UTC()

	a := ClosedOrder{OrderCommon: OrderCommon{ID: 1, MatchedVolume: vol, Price: price, PlacedTime: now, Side: orderbook.Sell}, MatchedTime: now}
	b := ClosedOrder{OrderCommon: OrderCommon{ID: 1, MatchedVolume: vol, Price: price, PlacedTime: now, Side: orderbook.Sell}, MatchedTime: now}

	merged, err := a.MergeWith(b)
	if err != nil {
		t.Fatalf("MergeWith error: %v", err)
	}
	if !merged.Price.Equal(price) {
		t.Fatalf("merged price = %s, want %s (unchanged when prices are equal)", merged.Price, price)
	}
}
