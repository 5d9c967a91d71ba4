package tradeengine

import (
	"testing"
	"time"

	"coincenter-core/internal/market"
	"coincenter-core/internal/money"
	"coincenter-core/internal/orderbook"
)

// scriptedAlgorithm returns one command per call to Trade, in order,
// then Wait() forever once exhausted.
type scriptedAlgorithm struct {
	name     string
	commands []Command
	calls    int
}

func (a *scriptedAlgorithm) Name() string { return a.name }

func (a *scriptedAlgorithm) Trade(_ *MarketDataView) Command {
	if a.calls >= len(a.commands) {
		return Wait()
	}
	cmd := a.commands[a.calls]
	a.calls++
	return cmd
}

func bookAt(t *testing.T, mkt market.Market, bidPrice, bidVol, askPrice, askVol string, ts time.Time) *orderbook.Book {
	t.Helper()
	bid, err := money.Parse(bidVol + " " + mkt.Base().String())
	if err != nil {
		t.Fatalf("parse bid vol: %v", err)
	}
	bp, err := money.Parse(bidPrice + " " + mkt.Quote().String())
	if err != nil {
		t.Fatalf("parse bid price: %v", err)
	}
	ask, err := money.Parse(askVol + " " + mkt.Base().String())
	if err != nil {
		t.Fatalf("parse ask vol: %v", err)
	}
	ap, err := money.Parse(askPrice + " " + mkt.Quote().String())
	if err != nil {
		t.Fatalf("parse ask price: %v", err)
	}
	b, err := orderbook.New(mkt, []orderbook.InputLine{
		{Amount: bid, Price: bp, IsAsk: false},
		{Amount: ask, Price: ap, IsAsk: true},
	}, 8, 2)
	if err != nil {
		t.Fatalf("orderbook.New: %v", err)
	}
	return b.WithTime(ts)
}

// TestNoFillsFinalizeZeroDelta exercises the testable property of §8:
// for any closed sequence of order books with no fills, quote_delta == 0
// and closed_orders is empty.
func TestNoFillsFinalizeZeroDelta(t *testing.T) {
	mkt, _ := market.Parse("BTC-USDT")
	startBase, _ := money.Parse("1 BTC")
	startQuote, _ := money.Parse("10000 USDT")

	eng, err := New(mkt, startBase, startQuote, DefaultFeeConfig)
	if err != nil {
		t.Fatalf("New engine: %v", err)
	}
	algo := &scriptedAlgorithm{name: "idle", commands: []Command{Wait()}}
	if err := eng.RegisterAlgorithm(algo); err != nil {
		t.Fatalf("RegisterAlgorithm: %v", err)
	}

	ts := time.Unix(1_700_000_000, 0).UTC()
	book := bookAt(t, mkt, "29900", "1", "30000", "1", ts)

	if _, err := eng.TradeRange([]*orderbook.Book{book}, nil); err != nil {
		t.Fatalf("TradeRange: %v", err)
	}

	result, err := eng.FinalizeAndComputeResult()
	if err != nil {
		t.Fatalf("FinalizeAndComputeResult: %v", err)
	}
	if !result.QuoteDelta.IsZero() {
		t.Fatalf("quote_delta = %s, want 0", result.QuoteDelta)
	}
	if len(result.ClosedOrders) != 0 {
		t.Fatalf("expected no closed orders, got %d", len(result.ClosedOrders))
	}
}

// TestSellAllTakerRealizesOnlyTheFee replays seed scenario §8.6 (1 BTC +
// 10000 USDT start, Sell(100%, Taker) against a 30000 USDT bid) and
// checks the balances directly, then verifies finalize's quote_delta
// equals the signed P&L formula from market-trader-engine.cpp — selling
// the full inventory at the book's own price realizes only the taker fee
// as a loss, since the base-delta conversion term exactly offsets the
// matched notional already credited to quote.
func TestSellAllTakerRealizesOnlyTheFee(t *testing.T) {
	mkt, _ := market.Parse("BTC-USDT")
	startBase, _ := money.Parse("1 BTC")
	startQuote, _ := money.Parse("10000 USDT")

	eng, err := New(mkt, startBase, startQuote, DefaultFeeConfig)
	if err != nil {
		t.Fatalf("New engine: %v", err)
	}
	sell, err := SellCommand(100, Taker)
	if err != nil {
		t.Fatalf("SellCommand: %v", err)
	}
	algo := &scriptedAlgorithm{name: "sell-all", commands: []Command{sell}}
	if err := eng.RegisterAlgorithm(algo); err != nil {
		t.Fatalf("RegisterAlgorithm: %v", err)
	}

	ts := time.Unix(1_700_000_000, 0).UTC()
	book := bookAt(t, mkt, "30000", "5", "30010", "5", ts)

	if _, err := eng.TradeRange([]*orderbook.Book{book}, nil); err != nil {
		t.Fatalf("TradeRange: %v", err)
	}

	if !eng.State().AvailableBase().IsZero() {
		t.Fatalf("available_base = %s, want 0", eng.State().AvailableBase())
	}

	wantQuote, _ := money.Parse("39940 USDT") // 10000 + 30000*(1 - 20bps)
	if !eng.State().AvailableQuote().Equal(wantQuote) {
		t.Fatalf("available_quote = %s, want %s", eng.State().AvailableQuote(), wantQuote)
	}

	result, err := eng.FinalizeAndComputeResult()
	if err != nil {
		t.Fatalf("FinalizeAndComputeResult: %v", err)
	}
	wantDelta, _ := money.Parse("-60 USDT") // -(20bps * 30000)
	if !result.QuoteDelta.Equal(wantDelta) {
		t.Fatalf("quote_delta = %s, want %s", result.QuoteDelta, wantDelta)
	}
}

func TestCancelRefundsReservedBalance(t *testing.T) {
	mkt, _ := market.Parse("BTC-USDT")
	startBase, _ := money.Parse("0 BTC")
	startQuote, _ := money.Parse("10000 USDT")

	eng, err := New(mkt, startBase, startQuote, DefaultFeeConfig)
	if err != nil {
		t.Fatalf("New engine: %v", err)
	}
	buy, err := BuyCommand(50, Maker)
	if err != nil {
		t.Fatalf("BuyCommand: %v", err)
	}
	algo := &scriptedAlgorithm{name: "maker-then-cancel", commands: []Command{buy, CancelAllCommand()}}
	if err := eng.RegisterAlgorithm(algo); err != nil {
		t.Fatalf("RegisterAlgorithm: %v", err)
	}

	// bid price chosen so from/price divides exactly (5000/25000 = 0.2),
	// so the maker refund round-trips back to the exact reserved amount.
	ts := time.Unix(1_700_000_000, 0).UTC()
	book1 := bookAt(t, mkt, "25000", "1", "30000", "1", ts)
	book2 := bookAt(t, mkt, "25000", "1", "30000", "1", ts.Add(time.Second))

	if _, err := eng.TradeRange([]*orderbook.Book{book1, book2}, nil); err != nil {
		t.Fatalf("TradeRange: %v", err)
	}

	if len(eng.State().OpenOrders()) != 0 {
		t.Fatalf("expected all open orders cancelled, got %d", len(eng.State().OpenOrders()))
	}
	if !eng.State().AvailableQuote().Equal(startQuote) {
		t.Fatalf("available_quote after full refund = %s, want %s", eng.State().AvailableQuote(), startQuote)
	}
}

func TestUpdatePriceReplacesOrder(t *testing.T) {
	mkt, _ := market.Parse("BTC-USDT")
	startBase, _ := money.Parse("0 BTC")
	startQuote, _ := money.Parse("10000 USDT")

	eng, err := New(mkt, startBase, startQuote, DefaultFeeConfig)
	if err != nil {
		t.Fatalf("New engine: %v", err)
	}
	buy, err := BuyCommand(50, Maker)
	if err != nil {
		t.Fatalf("BuyCommand: %v", err)
	}
	algo := &scriptedAlgorithm{name: "maker-then-update", commands: []Command{buy, UpdatePriceCommand(1, Maker)}}
	if err := eng.RegisterAlgorithm(algo); err != nil {
		t.Fatalf("RegisterAlgorithm: %v", err)
	}

	ts := time.Unix(1_700_000_000, 0).UTC()
	book1 := bookAt(t, mkt, "29900", "1", "30000", "1", ts)
	book2 := bookAt(t, mkt, "29950", "1", "30050", "1", ts.Add(time.Second))

	if _, err := eng.TradeRange([]*orderbook.Book{book1, book2}, nil); err != nil {
		t.Fatalf("TradeRange: %v", err)
	}

	open := eng.State().OpenOrders()
	if len(open) != 1 {
		t.Fatalf("expected exactly one open order after update, got %d", len(open))
	}
	if !open[0].Price.Equal(mustParse(t, "29950 USDT")) {
		t.Fatalf("updated order price = %s, want 29950 USDT", open[0].Price)
	}
}

func TestUpdatePriceUnknownOrderFails(t *testing.T) {
	mkt, _ := market.Parse("BTC-USDT")
	startBase, _ := money.Parse("0 BTC")
	startQuote, _ := money.Parse("10000 USDT")
	eng, _ := New(mkt, startBase, startQuote, DefaultFeeConfig)
	algo := &scriptedAlgorithm{name: "bad-update", commands: []Command{UpdatePriceCommand(999, Maker)}}
	_ = eng.RegisterAlgorithm(algo)

	ts := time.Unix(1_700_000_000, 0).UTC()
	book := bookAt(t, mkt, "29900", "1", "30000", "1", ts)

	if _, err := eng.TradeRange([]*orderbook.Book{book}, nil); err != ErrOrderNotFound {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func mustParse(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := money.Parse(s)
	if err != nil {
		t.Fatalf("money.Parse(%q): %v", s, err)
	}
	return a
}
