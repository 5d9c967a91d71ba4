package orderbook

import (
	"testing"

	"coincenter-core/internal/market"
	"coincenter-core/internal/money"
)

func ethEURBook(t *testing.T) *Book {
	t.Helper()
	mkt, err := market.Parse("ETH-EUR")
	if err != nil {
		t.Fatalf("market.Parse error: %v", err)
	}
	line := func(amt, price string, isAsk bool) InputLine {
		a, err := money.Parse(amt + " ETH")
		if err != nil {
			t.Fatalf("Parse amount error: %v", err)
		}
		p, err := money.Parse(price + " EUR")
		if err != nil {
			t.Fatalf("Parse price error: %v", err)
		}
		return InputLine{Amount: a, Price: p, IsAsk: isAsk}
	}
	inputs := []InputLine{
		line("0.65", "1300.50", false),
		line("0.24", "1301", false),
		line("1.4009", "1302", true),
		line("3.78", "1302.50", true),
		line("56.10001267", "1303", true),
	}
	b, err := New(mkt, inputs, 8, 2)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return b
}

func TestConvertBaseToQuote(t *testing.T) {
	b := ethEURBook(t)
	in, _ := money.Parse("0.56 ETH")
	got, ok := b.Convert(in)
	if !ok {
		t.Fatal("Convert should succeed: sufficient bid depth")
	}
	want, _ := money.Parse("728.4 EUR")
	if !got.Equal(want) {
		t.Fatalf("Convert(0.56 ETH) = %s, want %s", got, want)
	}
}

func TestConvertQuoteToBase(t *testing.T) {
	b := ethEURBook(t)
	in, _ := money.Parse("800 EUR")
	got, ok := b.Convert(in)
	if !ok {
		t.Fatal("Convert should succeed: sufficient ask depth")
	}
	if got.ToDouble() < 0.6144 || got.ToDouble() > 0.6145 {
		t.Fatalf("Convert(800 EUR) = %s, want ~0.61443932411674347 ETH", got)
	}
}

func TestConvertInsufficientDepth(t *testing.T) {
	b := ethEURBook(t)
	in, _ := money.Parse("100 ETH") // far more than total bid depth
	if _, ok := b.Convert(in); ok {
		t.Fatal("Convert should fail: insufficient bid depth")
	}
}

func TestAvgPriceAndMatchedAmountTakerZero(t *testing.T) {
	b := ethEURBook(t)
	zero, _ := money.Parse("0 EUR")
	matched, avg := b.AvgPriceAndMatchedAmountTaker(zero)
	if !matched.IsZero() || !avg.IsZero() {
		t.Fatalf("taker(0) should be (0,0), got (%s, %s)", matched, avg)
	}
}

func TestCumulAmountBoughtAtLowestAsk(t *testing.T) {
	b := ethEURBook(t)
	lowestAsk, ok := b.LowestAskPrice()
	if !ok {
		t.Fatal("expected a lowest ask price")
	}
	cumul := b.CumulAmountBoughtAt(lowestAsk)
	atAsk, ok := b.AmountAtAsk()
	if !ok {
		t.Fatal("expected amount at ask")
	}
	if !cumul.Equal(atAsk) {
		t.Fatalf("cumul_amount_bought_at(lowest_ask) = %s, want %s", cumul, atAsk)
	}
}

func TestNoCrossedBookRejected(t *testing.T) {
	mkt, _ := market.Parse("ETH-EUR")
	bid, _ := money.Parse("1 ETH")
	bidPrice, _ := money.Parse("100 EUR")
	ask, _ := money.Parse("1 ETH")
	askPrice, _ := money.Parse("99 EUR") // crossed: ask below bid
	_, err := New(mkt, []InputLine{
		{Amount: bid, Price: bidPrice, IsAsk: false},
		{Amount: ask, Price: askPrice, IsAsk: true},
	}, 8, 2)
	if err != ErrInvalidOrderBook {
		t.Fatalf("expected ErrInvalidOrderBook, got %v", err)
	}
}

func TestTickerSyntheticBookNotCrossed(t *testing.T) {
	mkt, _ := market.Parse("ETH-EUR")
	bidPrice, _ := money.Parse("1300 EUR")
	bidVol, _ := money.Parse("1 ETH")
	askPrice, _ := money.Parse("1302 EUR")
	askVol, _ := money.Parse("1 ETH")
	b, err := NewFromTicker(mkt, bidPrice, bidVol, askPrice, askVol, 5, 8, 2)
	if err != nil {
		t.Fatalf("NewFromTicker error: %v", err)
	}
	hb, _ := b.HighestBidPrice()
	la, _ := b.LowestAskPrice()
	if !hb.Less(la) {
		t.Fatalf("synthetic book must satisfy highest_bid < lowest_ask, got %s >= %s", hb, la)
	}
	if !b.IsArtificiallyExtended() {
		t.Fatal("ticker-built book should be marked artificially extended")
	}
}

func TestEmptyBookReturnsNone(t *testing.T) {
	mkt, _ := market.Parse("ETH-EUR")
	b, err := New(mkt, nil, 8, 2)
	if err != nil {
		t.Fatalf("New(empty) error: %v", err)
	}
	if !b.Empty() {
		t.Fatal("expected empty book")
	}
	amt, _ := money.Parse("1 ETH")
	if _, ok := b.Convert(amt); ok {
		t.Fatal("Convert on empty book should fail")
	}
	matched, avg := b.AvgPriceAndMatchedAmountTaker(amt)
	if !matched.IsZero() || !avg.IsZero() {
		t.Fatal("taker match on empty book should be (0,0)")
	}
}
