package exchange

import (
	"context"
	"testing"

	"coincenter-core/internal/market"
	"coincenter-core/internal/money"
)

func mustAmt(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := money.Parse(s)
	if err != nil {
		t.Fatalf("money.Parse(%q): %v", s, err)
	}
	return a
}

func TestPaperAdapterOrderBookStraddlesMid(t *testing.T) {
	usdt := money.MustCurrencyCode("USDT")
	btc := money.MustCurrencyCode("BTC")
	mkt := market.New(btc, usdt, market.Regular)

	p := NewPaperAdapter(nil, 20, mustAmt(t, "5 BTC"))
	p.SetPrice(mkt, mustAmt(t, "30000 USDT"))

	book, err := p.OrderBook(context.Background(), mkt, 1)
	if err != nil {
		t.Fatalf("OrderBook: %v", err)
	}
	bid, hasBid := book.HighestBidPrice()
	ask, hasAsk := book.LowestAskPrice()
	if !hasBid || !hasAsk {
		t.Fatalf("expected both sides of the synthesized book to be populated")
	}
	if bid.ToDouble() >= ask.ToDouble() {
		t.Fatalf("bid %s should be below ask %s", bid, ask)
	}
}

func TestPaperAdapterOrderBookUnknownMarket(t *testing.T) {
	p := NewPaperAdapter(nil, 20, mustAmt(t, "5 BTC"))
	usdt := money.MustCurrencyCode("USDT")
	btc := money.MustCurrencyCode("BTC")
	mkt := market.New(btc, usdt, market.Regular)

	if _, err := p.OrderBook(context.Background(), mkt, 1); err != ErrUnsupported {
		t.Fatalf("OrderBook for unpriced market = %v, want ErrUnsupported", err)
	}
}

func TestPaperAdapterCancelUnknownOrder(t *testing.T) {
	p := NewPaperAdapter(nil, 20, mustAmt(t, "5 BTC"))
	if err := p.Cancel(context.Background(), OrderID("missing")); err != ErrOrderNotFound {
		t.Fatalf("Cancel unknown order = %v, want ErrOrderNotFound", err)
	}
}

func TestPaperAdapterWithdrawUnsupported(t *testing.T) {
	p := NewPaperAdapter(nil, 20, mustAmt(t, "5 BTC"))
	usdt := money.MustCurrencyCode("USDT")
	if _, err := p.Withdraw(context.Background(), usdt, mustAmt(t, "10 USDT"), "addr"); err != ErrUnsupported {
		t.Fatalf("Withdraw = %v, want ErrUnsupported", err)
	}
}
