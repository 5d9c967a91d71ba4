package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"coincenter-core/internal/cache"
	"coincenter-core/internal/exchange"
	"coincenter-core/internal/market"
	"coincenter-core/internal/metrics"
	"coincenter-core/internal/money"
	"coincenter-core/internal/orchestrator"
	"coincenter-core/internal/orderbook"
	"coincenter-core/internal/pathresolver"
	"coincenter-core/internal/tradeengine"
)

// defaultBookDepth is the order book depth fetched by every
// market-data-recording command.
const defaultBookDepth = 50

// marketsCacheTTL mirrors the teacher's assumption that an exchange's
// tradable-market set changes rarely; re-fetching it on every Trade
// command would be wasted IO.
const marketsCacheTTL = 10 * time.Minute

// Executor implements orchestrator.Executor against real
// exchange.Adapters: it records order books, places threaded trades and
// submits withdrawals, using a per-exchange pathresolver.Resolver (built
// over a cached market list, spec §4.3) to find a tradable market when a
// Trade command names a currency instead of a market.
type Executor struct {
	adapters     map[string]exchange.Adapter
	marketsCache *cache.Cache
	mu           sync.Mutex
	resolvers    map[string]*pathresolver.Resolver
	logger       *zap.Logger
}

// NewExecutor builds an Executor over the given named adapters, logging
// through logger (a nil logger falls back to a no-op one, so callers in
// tests don't have to thread one through).
func NewExecutor(adapters map[string]exchange.Adapter, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		adapters:  adapters,
		resolvers: make(map[string]*pathresolver.Resolver),
		logger:    logger,
	}
	e.marketsCache = cache.New("exchange_markets", marketsCacheTTL, func(args ...any) (any, error) {
		exchangeName := args[0].(string)
		adapter, ok := e.adapters[exchangeName]
		if !ok {
			return nil, fmt.Errorf("app: no adapter registered for exchange %q", exchangeName)
		}
		return adapter.Markets(context.Background())
	})
	return e
}

// Execute runs one command against one exchange, per spec §4.6/§6.
func (e *Executor) Execute(ctx context.Context, exchangeName string, cmd orchestrator.Command, carry []orchestrator.Result) (orchestrator.Result, error) {
	adapter, ok := e.adapters[exchangeName]
	if !ok {
		return orchestrator.Result{}, fmt.Errorf("app: no adapter registered for exchange %q", exchangeName)
	}

	switch cmd.Type {
	case orchestrator.MarketDataRecording:
		return e.recordMarketData(ctx, adapter)
	case orchestrator.Trade:
		return e.trade(ctx, exchangeName, adapter, cmd)
	case orchestrator.Withdraw:
		return e.withdraw(ctx, exchangeName, adapter, cmd)
	default:
		return orchestrator.Result{}, fmt.Errorf("app: unknown command type %s", cmd.Type)
	}
}

func (e *Executor) recordMarketData(ctx context.Context, adapter exchange.Adapter) (orchestrator.Result, error) {
	books, err := adapter.AllOrderBooks(ctx, defaultBookDepth)
	if err != nil {
		metrics.ReplayRecords("orderbook", "error").Inc()
		return orchestrator.Result{}, err
	}
	for mkt, b := range books {
		if b == nil || !b.IsValid() {
			metrics.ReplayRecords("orderbook", "error").Inc()
			e.logger.Warn("dropping invalid order book",
				zap.String("exchange", adapter.Name()),
				zap.Stringer("market", mkt),
			)
			continue
		}
		metrics.ReplayRecords("orderbook", "ok").Inc()
	}
	return orchestrator.Result{}, nil
}

// trade resolves cmd.Market (or a path from cmd.Currency to the
// adapter's preferred quote currency when Market is empty) and places
// the threaded amount via the adapter, at the best available price. The
// amount is cmd.Amount or, when that is nil, the orchestrator's
// "threaded_amount:<exchange>" constraint.
func (e *Executor) trade(ctx context.Context, exchangeName string, adapter exchange.Adapter, cmd orchestrator.Command) (orchestrator.Result, error) {
	amount := cmd.Amount
	if amount == nil {
		if s, ok := cmd.Constraints["threaded_amount:"+exchangeName]; ok {
			a, err := money.Parse(s)
			if err != nil {
				return orchestrator.Result{}, fmt.Errorf("app: parse threaded amount %q on %s: %w", s, exchangeName, err)
			}
			amount = &a
		}
	}
	if amount == nil {
		return orchestrator.Result{}, fmt.Errorf("app: trade on %s has no amount to place (threading must run before Execute)", exchangeName)
	}

	mkt, side, err := e.resolveTradeMarket(ctx, exchangeName, adapter, cmd)
	if err != nil {
		return orchestrator.Result{}, err
	}

	price, err := adapter.LastPrice(ctx, mkt)
	if err != nil {
		return orchestrator.Result{}, fmt.Errorf("app: last price for %s on %s: %w", mkt, exchangeName, err)
	}

	orderID, err := adapter.PlaceOrder(ctx, mkt, side, *amount, price, tradeengine.Taker, exchange.Market)
	if err != nil {
		return orchestrator.Result{}, fmt.Errorf("app: place order on %s: %w", exchangeName, err)
	}

	info, err := adapter.QueryOrder(ctx, orderID)
	if err != nil {
		return orchestrator.Result{}, fmt.Errorf("app: query order %s on %s: %w", orderID, exchangeName, err)
	}
	return orchestrator.Result{Exchange: exchangeName, Currency: info.MatchedVolume.Currency(), Amount: info.MatchedVolume}, nil
}

// resolveTradeMarket picks the market+side to trade. When cmd.Market is
// set, it is parsed directly; otherwise the per-exchange
// pathresolver.Resolver finds the first hop from cmd.Currency towards
// preferredQuote(cmd.Currency) among the exchange's known markets.
func (e *Executor) resolveTradeMarket(ctx context.Context, exchangeName string, adapter exchange.Adapter, cmd orchestrator.Command) (market.Market, orderbook.Side, error) {
	if cmd.Market != "" {
		mkt, err := market.Parse(cmd.Market)
		if err != nil {
			return market.Market{}, orderbook.Buy, fmt.Errorf("app: parse market %q: %w", cmd.Market, err)
		}
		return mkt, sideFor(mkt, cmd), nil
	}
	if cmd.Currency == nil {
		return market.Market{}, orderbook.Buy, fmt.Errorf("app: trade command has neither market nor currency to resolve")
	}

	resolver, err := e.resolverFor(exchangeName)
	if err != nil {
		return market.Market{}, orderbook.Buy, err
	}
	preferred := preferredQuote(*cmd.Currency)
	steps, err := resolver.FindPath(*cmd.Currency, preferred)
	if err != nil {
		metrics.PathResolverLookups("no_path").Inc()
		return market.Market{}, orderbook.Buy, fmt.Errorf("app: no conversion path from %s on %s: %w", *cmd.Currency, exchangeName, err)
	}
	metrics.PathResolverLookups("found").Inc()
	if len(steps) == 0 {
		return market.Market{}, orderbook.Buy, fmt.Errorf("app: currency %s already equals its preferred quote", *cmd.Currency)
	}
	first := steps[0]
	if first.Forward {
		return first.Market, orderbook.Sell, nil
	}
	return first.Market, orderbook.Buy, nil
}

// preferredQuote is the currency conversions resolve towards when a
// Trade command names a currency rather than a market. USDT mirrors the
// teacher's dollar-quoted-everything convention (broker.go's ProductID
// always being *-USD/USDT).
func preferredQuote(from money.CurrencyCode) money.CurrencyCode {
	usdt := money.MustCurrencyCode("USDT")
	if from.Equal(usdt) {
		return money.MustCurrencyCode("USD")
	}
	return usdt
}

func sideFor(mkt market.Market, cmd orchestrator.Command) orderbook.Side {
	if cmd.Currency != nil && cmd.Currency.Equal(mkt.Base()) {
		return orderbook.Sell
	}
	return orderbook.Buy
}

// resolverFor returns the cached pathresolver.Resolver for exchangeName,
// building it from the cached market list (internal/cache, TTL'd so a
// burst of currency-only Trade commands doesn't re-list markets every
// time) on first use.
func (e *Executor) resolverFor(exchangeName string) (*pathresolver.Resolver, error) {
	e.mu.Lock()
	if r, ok := e.resolvers[exchangeName]; ok {
		e.mu.Unlock()
		return r, nil
	}
	e.mu.Unlock()

	raw, err := e.marketsCache.Get(exchangeName)
	if err != nil {
		return nil, fmt.Errorf("app: list markets on %s: %w", exchangeName, err)
	}
	markets, ok := raw.([]market.Market)
	if !ok {
		return nil, fmt.Errorf("app: unexpected cached markets type for %s", exchangeName)
	}
	r := pathresolver.New(markets, []money.CurrencyCode{money.MustCurrencyCode("USDT"), money.MustCurrencyCode("USD")})

	e.mu.Lock()
	e.resolvers[exchangeName] = r
	e.mu.Unlock()
	return r, nil
}

func (e *Executor) withdraw(ctx context.Context, exchangeName string, adapter exchange.Adapter, cmd orchestrator.Command) (orchestrator.Result, error) {
	if cmd.Amount == nil || cmd.Currency == nil {
		return orchestrator.Result{}, fmt.Errorf("app: withdraw on %s is missing the threaded amount/currency", exchangeName)
	}
	destAddr := cmd.Constraints["dest_address"]
	if destAddr == "" {
		return orchestrator.Result{}, fmt.Errorf("app: withdraw on %s has no dest_address constraint", exchangeName)
	}
	id, err := adapter.Withdraw(ctx, *cmd.Currency, *cmd.Amount, destAddr)
	if err != nil {
		return orchestrator.Result{}, fmt.Errorf("app: withdraw on %s: %w", exchangeName, err)
	}
	e.logger.Info("withdraw submitted",
		zap.String("exchange", exchangeName),
		zap.Stringer("currency", *cmd.Currency),
		zap.Stringer("amount", *cmd.Amount),
		zap.String("withdraw_id", string(id)),
	)
	return orchestrator.Result{Exchange: exchangeName, Currency: *cmd.Currency, Amount: *cmd.Amount}, nil
}
