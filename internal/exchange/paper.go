package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"coincenter-core/internal/market"
	"coincenter-core/internal/money"
	"coincenter-core/internal/orderbook"
	"coincenter-core/internal/tradeengine"
)

// PaperAdapter simulates execution in memory against a mutable mid-price
// per market; no external calls are ever made. Adapted from the
// teacher's PaperBroker (broker_paper.go), generalized from a single
// hard-coded USD product to arbitrary markets and the money.Amount type.
type PaperAdapter struct {
	mu         sync.Mutex
	prices     map[market.Market]money.Amount
	balances   map[money.CurrencyCode]money.Amount
	spreadBps  int64
	bookDepth  money.Amount
	openOrders map[OrderID]OrderInfo
}

// NewPaperAdapter builds a paper adapter seeded with starting balances.
// spreadBps is the synthetic bid/ask spread in basis points (each side
// sits spreadBps/2 away from the mid-price), and
// depth is the volume resting at each synthetic top-of-book level,
// mirroring the teacher's PAPER_BASE_BALANCE/PAPER_QUOTE_BALANCE env
// bootstrap but taking the seed as an explicit argument instead of
// reading the environment directly (that belongs to internal/config).
func NewPaperAdapter(startBalances map[money.CurrencyCode]money.Amount, spreadBps int64, depth money.Amount) *PaperAdapter {
	balances := make(map[money.CurrencyCode]money.Amount, len(startBalances))
	for cur, amt := range startBalances {
		balances[cur] = amt
	}
	return &PaperAdapter{
		prices:     make(map[market.Market]money.Amount),
		balances:   balances,
		spreadBps:  spreadBps,
		bookDepth:  depth,
		openOrders: make(map[OrderID]OrderInfo),
	}
}

func (p *PaperAdapter) Name() string { return "paper" }

func (p *PaperAdapter) HealthCheck(ctx context.Context) (bool, error) { return true, nil }

// SetPrice seeds or updates the mid-price used to synthesize mkt's book,
// mirroring PaperBroker.price but keyed per market instead of globally.
func (p *PaperAdapter) SetPrice(mkt market.Market, mid money.Amount) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[mkt] = mid
}

func (p *PaperAdapter) Currencies(ctx context.Context) ([]CurrencyDetail, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CurrencyDetail, 0, len(p.balances))
	for cur := range p.balances {
		out = append(out, CurrencyDetail{Code: cur, CanDeposit: true, CanWithdraw: true})
	}
	return out, nil
}

func (p *PaperAdapter) Markets(ctx context.Context) ([]market.Market, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]market.Market, 0, len(p.prices))
	for mkt := range p.prices {
		out = append(out, mkt)
	}
	return out, nil
}

func (p *PaperAdapter) OrderBook(ctx context.Context, mkt market.Market, depth int) (*orderbook.Book, error) {
	p.mu.Lock()
	mid, ok := p.prices[mkt]
	spread, bookDepth := p.spreadBps, p.bookDepth
	p.mu.Unlock()
	if !ok {
		return nil, ErrUnsupported
	}

	half, err := mid.MulScalar(spread)
	if err != nil {
		return nil, err
	}
	half, err = half.DivScalar(20000) // spreadBps/2, basis points
	if err != nil {
		return nil, err
	}
	bid, err := money.Sub(mid, half)
	if err != nil {
		return nil, err
	}
	ask, err := money.Add(mid, half)
	if err != nil {
		return nil, err
	}
	return orderbook.NewFromTicker(mkt, bid, bookDepth, ask, bookDepth, depth, bookDepth.NbDecimals(), mid.NbDecimals())
}

func (p *PaperAdapter) AllOrderBooks(ctx context.Context, depth int) (map[market.Market]*orderbook.Book, error) {
	p.mu.Lock()
	markets := make([]market.Market, 0, len(p.prices))
	for mkt := range p.prices {
		markets = append(markets, mkt)
	}
	p.mu.Unlock()

	out := make(map[market.Market]*orderbook.Book, len(markets))
	for _, mkt := range markets {
		book, err := p.OrderBook(ctx, mkt, depth)
		if err != nil {
			return nil, err
		}
		out[mkt] = book
	}
	return out, nil
}

func (p *PaperAdapter) LastPrice(ctx context.Context, mkt market.Market) (money.Amount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	mid, ok := p.prices[mkt]
	if !ok {
		return money.Amount{}, ErrUnsupported
	}
	return mid, nil
}

// LastTrades is not supported in paper mode, same as the teacher's paper
// broker has no candle feed (GetRecentCandles returns an error).
func (p *PaperAdapter) LastTrades(ctx context.Context, mkt market.Market, n int) ([]tradeengine.PublicTrade, error) {
	return nil, ErrUnsupported
}

func (p *PaperAdapter) WithdrawalFees(ctx context.Context) (map[money.CurrencyCode]money.Amount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[money.CurrencyCode]money.Amount, len(p.balances))
	for cur := range p.balances {
		out[cur] = money.New(0, cur, 0)
	}
	return out, nil
}

func (p *PaperAdapter) Balance(ctx context.Context, account string) (map[money.CurrencyCode]money.Amount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[money.CurrencyCode]money.Amount, len(p.balances))
	for cur, amt := range p.balances {
		out[cur] = amt
	}
	return out, nil
}

// PlaceOrder fills immediately at the market's mid-price (Market) or the
// caller-supplied price (Limit), debiting/crediting
// in-memory balances. There is no partial-fill or resting-order
// simulation; every paper order is all-or-nothing, same as
// PlaceMarketQuote's behavior in the teacher.
func (p *PaperAdapter) PlaceOrder(ctx context.Context, mkt market.Market, side orderbook.Side, amount, price money.Amount, strategy tradeengine.Strategy, mode OrderMode) (OrderID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	execPrice := price
	if mode == Market {
		mid, ok := p.prices[mkt]
		if !ok {
			return "", ErrUnsupported
		}
		execPrice = mid
	}

	notional, err := amount.ConvertTo(execPrice)
	if err != nil {
		return "", err
	}

	switch side {
	case orderbook.Buy:
		base, err := money.Add(p.balances[mkt.Base()], amount)
		if err != nil {
			return "", err
		}
		quote, err := money.Sub(p.balances[mkt.Quote()], notional)
		if err != nil {
			return "", err
		}
		p.balances[mkt.Base()], p.balances[mkt.Quote()] = base, quote
	case orderbook.Sell:
		base, err := money.Sub(p.balances[mkt.Base()], amount)
		if err != nil {
			return "", err
		}
		quote, err := money.Add(p.balances[mkt.Quote()], notional)
		if err != nil {
			return "", err
		}
		p.balances[mkt.Base()], p.balances[mkt.Quote()] = base, quote
	}

	id := OrderID(uuid.New().String())
	p.openOrders[id] = OrderInfo{
		ID:              id,
		Market:          mkt,
		Side:            side,
		MatchedVolume:   amount,
		RemainingVolume: money.New(0, mkt.Base(), amount.NbDecimals()),
		AvgPrice:        execPrice,
		IsClosed:        true,
		PlacedTime:      time.Now().UTC(),
	}
	return id, nil
}

func (p *PaperAdapter) Cancel(ctx context.Context, id OrderID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.openOrders[id]; !ok {
		return ErrOrderNotFound
	}
	// every paper order is already closed by the time it is placed; cancel
	// is a no-op but still validates the id is known.
	return nil
}

func (p *PaperAdapter) QueryOrder(ctx context.Context, id OrderID) (OrderInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	info, ok := p.openOrders[id]
	if !ok {
		return OrderInfo{}, ErrOrderNotFound
	}
	return info, nil
}

// Withdraw is not supported in paper mode: there is nowhere to send
// funds to, mirroring the unsupported maker-first stubs in
// broker_paper.go.
func (p *PaperAdapter) Withdraw(ctx context.Context, cur money.CurrencyCode, amount money.Amount, destAddr string) (WithdrawID, error) {
	return "", ErrUnsupported
}
