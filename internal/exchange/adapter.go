// Package exchange defines the core's upstream collaborator: the
// per-exchange adapter surface (spec §6 "Exchange adapter"), generalized
// from the teacher's single-exchange Broker interface in broker.go to
// cover every exchange the orchestrator (§4.6) can address.
package exchange

import (
	"context"
	"time"

	"coincenter-core/internal/market"
	"coincenter-core/internal/money"
	"coincenter-core/internal/orderbook"
	"coincenter-core/internal/tradeengine"
)

// OrderID identifies a placed order at one exchange.
type OrderID string

// WithdrawID identifies a withdrawal request at one exchange.
type WithdrawID string

// OrderMode selects how PlaceOrder executes: Limit rests a post-only
// order at the given price (maker), Market crosses the book immediately
// (taker). Mirrors the teacher's PlaceLimitPostOnly/PlaceMarketQuote
// split in broker.go.
type OrderMode int

const (
	Limit OrderMode = iota
	Market
)

// CurrencyDetail is the withdrawal/deposit metadata exposed by Currencies.
type CurrencyDetail struct {
	Code          money.CurrencyCode
	CanDeposit    bool
	CanWithdraw   bool
	MinWithdrawal money.Amount
}

// OrderInfo is the normalized view of a queried order, fee-adjusted.
type OrderInfo struct {
	ID             OrderID
	Market         market.Market
	Side           orderbook.Side
	MatchedVolume  money.Amount
	RemainingVolume money.Amount
	AvgPrice       money.Amount
	IsClosed       bool
	PlacedTime     time.Time
}

// Adapter is the interface every exchange backend implements. The
// adapter owns all IO and retries (spec §6); the core never retries an
// adapter call itself, it only surfaces the error (spec §7 AdapterError).
type Adapter interface {
	Name() string
	HealthCheck(ctx context.Context) (bool, error)
	Currencies(ctx context.Context) ([]CurrencyDetail, error)
	Markets(ctx context.Context) ([]market.Market, error)
	OrderBook(ctx context.Context, mkt market.Market, depth int) (*orderbook.Book, error)
	AllOrderBooks(ctx context.Context, depth int) (map[market.Market]*orderbook.Book, error)
	LastPrice(ctx context.Context, mkt market.Market) (money.Amount, error)
	LastTrades(ctx context.Context, mkt market.Market, n int) ([]tradeengine.PublicTrade, error)
	WithdrawalFees(ctx context.Context) (map[money.CurrencyCode]money.Amount, error)
	Balance(ctx context.Context, account string) (map[money.CurrencyCode]money.Amount, error)
	PlaceOrder(ctx context.Context, mkt market.Market, side orderbook.Side, amount, price money.Amount, strategy tradeengine.Strategy, mode OrderMode) (OrderID, error)
	Cancel(ctx context.Context, id OrderID) error
	QueryOrder(ctx context.Context, id OrderID) (OrderInfo, error)
	Withdraw(ctx context.Context, cur money.CurrencyCode, amount money.Amount, destAddr string) (WithdrawID, error)
}
