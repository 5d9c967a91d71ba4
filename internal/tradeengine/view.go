package tradeengine

import (
	"time"

	"coincenter-core/internal/money"
	"coincenter-core/internal/orderbook"
)

// PublicTrade is an executed trade observed on the exchange, not
// necessarily the engine's own. Ported from publictrade.hpp.
type PublicTrade struct {
	Time   time.Time
	Amount money.Amount
	Price  money.Amount
	Side   orderbook.Side
}

// IsValid rejects a trade with a non-positive amount or price.
func (t PublicTrade) IsValid() bool {
	return t.Amount.Raw() > 0 && t.Price.Raw() > 0 && t.Amount.Currency().IsDefined() && t.Price.Currency().IsDefined()
}

// MarketDataView is the rolling window of replayed market data exposed
// to the user algorithm on each call to Trade. It never allows mutation
// of engine state directly; the algorithm only returns a Command.
// Ported from MarketDataView in the original source.
type MarketDataView struct {
	books              []*orderbook.Book
	currentBookEndPos  int
	trades             []PublicTrade
	currentTradesStart int
	currentTradesEnd   int
}

func newMarketDataView(books []*orderbook.Book, trades []PublicTrade) *MarketDataView {
	return &MarketDataView{books: books, trades: trades}
}

// advanceUntil moves the view's "current" position to include every
// order book and trade with a timestamp up to and including ts.
func (v *MarketDataView) advanceUntil(ts time.Time) {
	for v.currentBookEndPos < len(v.books) && !v.books[v.currentBookEndPos].Time().After(ts) {
		v.currentBookEndPos++
	}
	v.currentTradesStart = v.currentTradesEnd
	for v.currentTradesEnd < len(v.trades) && !v.trades[v.currentTradesEnd].Time.After(ts) {
		v.currentTradesEnd++
	}
}

// CurrentOrderBook is the order book for the replay step in progress.
func (v *MarketDataView) CurrentOrderBook() *orderbook.Book {
	if v.currentBookEndPos == 0 {
		return nil
	}
	return v.books[v.currentBookEndPos-1]
}

// PastOrderBooks returns every order book seen so far, including the
// current one.
func (v *MarketDataView) PastOrderBooks() []*orderbook.Book {
	return v.books[:v.currentBookEndPos]
}

// CurrentTrades returns the trades that occurred since the previous
// order book up to (and including) the current one.
func (v *MarketDataView) CurrentTrades() []PublicTrade {
	return v.trades[v.currentTradesStart:v.currentTradesEnd]
}

// PastTrades returns every trade seen so far, including the current
// batch.
func (v *MarketDataView) PastTrades() []PublicTrade {
	return v.trades[:v.currentTradesEnd]
}

// Algorithm is the user-supplied trading strategy replayed against
// historical data. It receives the rolling MarketDataView and must
// return exactly one Command per call.
type Algorithm interface {
	Name() string
	Trade(view *MarketDataView) Command
}
