// Package tradeengine implements the per-market trading simulator: a
// deterministic engine that replays historical order books and public
// trades against a user-supplied algorithm, maintaining synthetic
// balances, open and closed orders, fees and P&L. Ported from
// MarketTraderEngine / MarketTraderEngineState / MarketDataView /
// TraderCommand in the original source (§4.5).
package tradeengine

import (
	"time"

	"coincenter-core/internal/market"
	"coincenter-core/internal/metrics"
	"coincenter-core/internal/money"
	"coincenter-core/internal/orderbook"
)

// TimeWindow is the [from, to] span of a validated batch of records.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// RangeStats is the (nb_ok, nb_err, time_window) validation result for
// one kind of replayed record (order books or public trades).
type RangeStats struct {
	NbSuccessful int
	NbError      int
	Window       TimeWindow
}

// TradeRangeStats bundles the validation stats of one tradeRange call.
type TradeRangeStats struct {
	OrderBooks RangeStats
	Trades     RangeStats
}

// TradingResult is the outcome of finalizeAndComputeResult: the
// algorithm's name, its starting balances, the realized P&L in quote
// currency, and every closed order produced during the replay.
type TradingResult struct {
	AlgorithmName string
	StartBase     money.Amount
	StartQuote    money.Amount
	QuoteDelta    money.Amount
	ClosedOrders  []ClosedOrder
}

// Engine is a single-owner, per-(exchange, market) trading simulator; it
// is never shared between goroutines (spec §5 "one engine per
// (exchange, market) pair").
type Engine struct {
	market        market.Market
	startBase     money.Amount
	startQuote    money.Amount
	state         *State
	algorithm     Algorithm
	lastBook      *orderbook.Book
	newlyMatched  []OpenOrder
}

// New builds an engine for market mkt with the given starting balances
// and fee schedule. startBase must be denominated in mkt.Base() and
// startQuote in mkt.Quote().
func New(mkt market.Market, startBase, startQuote money.Amount, fees FeeConfig) (*Engine, error) {
	if !startBase.Currency().Equal(mkt.Base()) || !startQuote.Currency().Equal(mkt.Quote()) {
		return nil, ErrMarketMismatch
	}
	return &Engine{
		market:     mkt,
		startBase:  startBase,
		startQuote: startQuote,
		state:      NewState(startBase, startQuote, fees),
	}, nil
}

// RegisterAlgorithm attaches the user algorithm driven by TradeRange.
// Calling it twice is an error.
func (e *Engine) RegisterAlgorithm(algo Algorithm) error {
	if e.algorithm != nil {
		return ErrAlgorithmRegistered
	}
	e.algorithm = algo
	return nil
}

func (e *Engine) State() *State { return e.state }

// validateBooks discards (counting errors) any book whose timestamp
// strictly precedes earliest or the previously kept book, or that fails
// IsValid. Ported from the free function ValidateRange in
// market-trader-engine.cpp.
func validateBooks(books []*orderbook.Book, earliest time.Time) ([]*orderbook.Book, RangeStats) {
	stats := RangeStats{NbSuccessful: len(books)}
	kept := books[:0:0]
	last := earliest
	for _, b := range books {
		if !b.IsValid() {
			stats.NbError++
			continue
		}
		if !last.IsZero() && b.Time().Before(last) {
			stats.NbError++
			continue
		}
		last = b.Time()
		kept = append(kept, b)
	}
	stats.NbSuccessful -= stats.NbError
	if len(kept) > 0 {
		stats.Window = TimeWindow{From: kept[0].Time(), To: kept[len(kept)-1].Time()}
	}
	return kept, stats
}

func validateTrades(trades []PublicTrade, earliest time.Time) ([]PublicTrade, RangeStats) {
	stats := RangeStats{NbSuccessful: len(trades)}
	kept := trades[:0:0]
	last := earliest
	for _, tr := range trades {
		if !tr.IsValid() {
			stats.NbError++
			continue
		}
		if !last.IsZero() && tr.Time.Before(last) {
			stats.NbError++
			continue
		}
		last = tr.Time
		kept = append(kept, tr)
	}
	stats.NbSuccessful -= stats.NbError
	if len(kept) > 0 {
		stats.Window = TimeWindow{From: kept[0].Time, To: kept[len(kept)-1].Time}
	}
	return kept, stats
}

// TradeRange validates and replays a chronological batch of order books
// and public trades, invoking the registered algorithm on every accepted
// order book in turn. Ported from MarketTraderEngine::tradeRange.
func (e *Engine) TradeRange(books []*orderbook.Book, trades []PublicTrade) (TradeRangeStats, error) {
	var earliest time.Time
	if e.lastBook != nil {
		earliest = e.lastBook.Time()
	}

	validBooks, bookStats := validateBooks(books, earliest)
	validTrades, tradeStats := validateTrades(trades, earliest)
	metrics.ReplayRecords("orderbook", "ok").Add(float64(bookStats.NbSuccessful))
	metrics.ReplayRecords("orderbook", "error").Add(float64(bookStats.NbError))
	metrics.ReplayRecords("trade", "ok").Add(float64(tradeStats.NbSuccessful))
	metrics.ReplayRecords("trade", "error").Add(float64(tradeStats.NbError))

	stats := TradeRangeStats{OrderBooks: bookStats, Trades: tradeStats}

	if len(validBooks) == 0 {
		return stats, nil
	}

	view := newMarketDataView(validBooks, validTrades)

	for _, book := range validBooks {
		if err := e.checkOpenOrdersMatching(book); err != nil {
			return stats, err
		}

		view.advanceUntil(book.Time())

		if e.algorithm == nil {
			e.lastBook = book
			continue
		}

		cmd := e.algorithm.Trade(view)
		if err := e.applyCommand(book, cmd); err != nil {
			return stats, err
		}

		e.lastBook = book
	}

	return stats, nil
}

func (e *Engine) applyCommand(book *orderbook.Book, cmd Command) error {
	switch {
	case cmd.IsWait():
		return nil
	case cmd.IsBuy():
		from, err := e.state.computeBuyFrom(cmd.Intensity())
		if err != nil {
			return err
		}
		if from.IsZero() {
			return nil
		}
		return e.buy(book, from, cmd.PriceStrategy())
	case cmd.IsSell():
		volume, err := e.state.computeSellVolume(cmd.Intensity())
		if err != nil {
			return err
		}
		if volume.IsZero() {
			return nil
		}
		return e.sell(book, volume, cmd.PriceStrategy())
	case cmd.IsUpdatePrice():
		return e.updatePrice(book, cmd)
	case cmd.IsCancel():
		if cmd.IsCancelAll() {
			return e.state.cancelAllOpenOrders()
		}
		return e.state.cancelOpenOrder(cmd.OrderID())
	default:
		return nil
	}
}

// buy places a buy order against book for notional `from` (quote
// currency), priced per strategy. Ported from MarketTraderEngine::buy.
func (e *Engine) buy(book *orderbook.Book, from money.Amount, strategy Strategy) error {
	ts := book.Time()
	switch strategy {
	case Maker:
		price, ok := book.HighestBidPrice()
		if !ok {
			return nil
		}
		remaining, err := money.Div(from, price)
		if err != nil {
			return err
		}
		remaining = remaining.WithCurrency(e.market.Base())
		matched := money.New(0, e.market.Base(), remaining.NbDecimals())
		return e.state.placeBuyOrder(ts, remaining, price, matched, from, FeeMaker)
	case Nibble:
		price, ok := book.LowestAskPrice()
		if !ok {
			return nil
		}
		volume, err := money.Div(from, price)
		if err != nil {
			return err
		}
		volume = volume.WithCurrency(e.market.Base())
		atAsk, ok := book.AmountAtAsk()
		if !ok {
			atAsk = money.New(0, e.market.Base(), volume.NbDecimals())
		}
		matched := volume
		if atAsk.Less(volume) {
			matched = atAsk
		}
		remaining, err := money.Sub(volume, matched)
		if err != nil {
			return err
		}
		return e.state.placeBuyOrder(ts, remaining, price, matched, from, FeeTaker)
	case Taker:
		matched, avgPrice := book.AvgPriceAndMatchedAmountTaker(from)
		if matched.IsZero() {
			return nil
		}
		zero := money.New(0, e.market.Base(), matched.NbDecimals())
		return e.state.placeBuyOrder(ts, zero, avgPrice, matched, from, FeeTaker)
	default:
		return nil
	}
}

// sell places a sell order against book for base volume, priced per
// strategy. Ported from MarketTraderEngine::sell.
func (e *Engine) sell(book *orderbook.Book, volume money.Amount, strategy Strategy) error {
	ts := book.Time()
	switch strategy {
	case Maker:
		price, ok := book.LowestAskPrice()
		if !ok {
			return nil
		}
		matched := money.New(0, e.market.Base(), volume.NbDecimals())
		return e.state.placeSellOrder(ts, volume, price, matched, FeeMaker)
	case Nibble:
		price, ok := book.HighestBidPrice()
		if !ok {
			return nil
		}
		atBid, ok := book.AmountAtBid()
		if !ok {
			atBid = money.New(0, e.market.Base(), volume.NbDecimals())
		}
		matched := volume
		if atBid.Less(volume) {
			matched = atBid
		}
		remaining, err := money.Sub(volume, matched)
		if err != nil {
			return err
		}
		return e.state.placeSellOrder(ts, remaining, price, matched, FeeTaker)
	case Taker:
		matchedQuote, avgPrice := book.AvgPriceAndMatchedAmountTaker(volume)
		if matchedQuote.IsZero() || avgPrice.IsZero() {
			return nil
		}
		ratio, err := money.Div(matchedQuote, avgPrice)
		if err != nil {
			return err
		}
		matched := ratio.WithCurrency(e.market.Base())
		if volume.Less(matched) {
			matched = volume
		}
		zero := money.New(0, e.market.Base(), volume.NbDecimals())
		return e.state.placeSellOrder(ts, zero, avgPrice, matched, FeeTaker)
	default:
		return nil
	}
}

// updatePrice cancels orderID and immediately replaces it with a fresh
// order of the same remaining volume and side at strategy. Ported from
// MarketTraderEngine::updatePrice.
func (e *Engine) updatePrice(book *orderbook.Book, cmd Command) error {
	order, _, err := e.state.findOpenOrder(cmd.OrderID())
	if err != nil {
		return err
	}
	if err := e.state.cancelOpenOrder(cmd.OrderID()); err != nil {
		return err
	}
	switch order.Side {
	case orderbook.Buy:
		from, err := order.RemainingVolume.ConvertTo(order.Price)
		if err != nil {
			return err
		}
		return e.buy(book, from, cmd.PriceStrategy())
	case orderbook.Sell:
		return e.sell(book, order.RemainingVolume, cmd.PriceStrategy())
	default:
		return nil
	}
}

// checkOpenOrdersMatching walks every open order and applies any
// additional matched volume the new book produces against its resting
// price, merging fully-matched orders into the closed-order ledger.
// Ported from MarketTraderEngine::checkOpenedOrdersMatching.
func (e *Engine) checkOpenOrdersMatching(book *orderbook.Book) error {
	e.newlyMatched = e.newlyMatched[:0]
	for _, o := range e.state.OpenOrders() {
		newMatched, avgPrice := book.AvgPriceAndMatchedVolume(o.Side, o.RemainingVolume, o.Price)
		if newMatched.IsZero() {
			continue
		}
		if err := e.state.countMatchedPart(o, avgPrice, newMatched, book.Time()); err != nil {
			return err
		}
		if newMatched.Equal(o.RemainingVolume) {
			e.newlyMatched = append(e.newlyMatched, o)
		} else {
			if err := e.state.adjustOpenedOrderRemainingVolume(o.ID, newMatched); err != nil {
				return err
			}
		}
	}
	e.state.eraseClosedOpenedOrders(e.newlyMatched)
	return nil
}

// FinalizeAndComputeResult cancels every remaining open order (refunding
// reserved balances), then computes the realized quote-currency P&L:
// the raw quote balance delta plus the base balance delta converted to
// quote at the last seen book's taker average price. Ported from
// MarketTraderEngine::finalizeAndComputeResult.
func (e *Engine) FinalizeAndComputeResult() (TradingResult, error) {
	if err := e.state.cancelAllOpenOrders(); err != nil {
		return TradingResult{}, err
	}

	quoteDelta, err := money.Sub(e.state.AvailableQuote(), e.startQuote)
	if err != nil {
		return TradingResult{}, err
	}
	baseDelta, err := money.Sub(e.state.AvailableBase(), e.startBase)
	if err != nil {
		return TradingResult{}, err
	}

	if e.lastBook != nil && !baseDelta.IsZero() {
		absBaseDelta := baseDelta
		if absBaseDelta.Raw() < 0 {
			absBaseDelta = absBaseDelta.Neg()
		}
		_, avgPrice := e.lastBook.AvgPriceAndMatchedAmountTaker(absBaseDelta)
		converted, err := baseDelta.ConvertTo(avgPrice)
		if err == nil {
			if sum, err := money.Add(quoteDelta, converted); err == nil {
				quoteDelta = sum
			}
		}
	}

	name := ""
	if e.algorithm != nil {
		name = e.algorithm.Name()
	}

	return TradingResult{
		AlgorithmName: name,
		StartBase:     e.startBase,
		StartQuote:    e.startQuote,
		QuoteDelta:    quoteDelta,
		ClosedOrders:  append([]ClosedOrder(nil), e.state.ClosedOrders()...),
	}, nil
}
