// Package orderbook implements the market order book: construction from
// raw lines or a ticker, tick-scaled int64 storage, and the
// conversion/matching algorithms used to price trades and compute
// fills. Ported from marketorderbook.hpp in the original source.
package orderbook

import (
	"errors"
	"sort"
	"time"

	"coincenter-core/internal/market"
	"coincenter-core/internal/money"
)

// Side identifies which side of the book an order rests on or matches
// against.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// ErrInvalidOrderBook is raised when constructed lines cross (lowest ask
// <= highest bid) or are otherwise malformed.
var ErrInvalidOrderBook = errors.New("orderbook: invalid order book")

// line is one price level: amount is signed in base-currency ticks
// (negative = ask, positive = bid); price is in quote-currency ticks.
type line struct {
	amount int64
	price  int64
}

// Book is a sorted (ascending price) vector of lines split into a bid
// prefix and an ask suffix, plus the decimal scale needed to reinterpret
// ticks as money.Amount.
type Book struct {
	mkt          market.Market
	volDecimals  uint8
	priDecimals  uint8
	lines        []line
	lowestAskPos int
	synthetic    bool
	timestamp    time.Time
}

// InputLine is one raw (amount, price, side) triple as supplied by an
// exchange adapter, before sorting/coalescing.
type InputLine struct {
	Amount money.Amount
	Price  money.Amount
	IsAsk  bool
}

// New builds a Book from a flat list of input lines: validates, sorts by
// ascending price, coalesces duplicate price levels by summing signed
// amounts, and locates the bid/ask split.
func New(mkt market.Market, inputs []InputLine, volDecimals, priDecimals uint8) (*Book, error) {
	byPrice := make(map[int64]int64, len(inputs))
	order := make([]int64, 0, len(inputs))
	for _, in := range inputs {
		amtTicks, ok := in.Amount.AmountAt(volDecimals)
		if !ok {
			return nil, ErrInvalidOrderBook
		}
		priTicks, ok := in.Price.AmountAt(priDecimals)
		if !ok || priTicks <= 0 {
			return nil, ErrInvalidOrderBook
		}
		signed := amtTicks
		if signed < 0 {
			signed = -signed
		}
		if in.IsAsk {
			signed = -signed
		}
		if _, seen := byPrice[priTicks]; !seen {
			order = append(order, priTicks)
		}
		byPrice[priTicks] += signed
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	lines := make([]line, 0, len(order))
	for _, p := range order {
		lines = append(lines, line{amount: byPrice[p], price: p})
	}
	b := &Book{mkt: mkt, volDecimals: volDecimals, priDecimals: priDecimals, lines: lines}
	b.lowestAskPos = len(lines)
	for i, l := range lines {
		if l.amount < 0 {
			b.lowestAskPos = i
			break
		}
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Book) validate() error {
	for i := b.lowestAskPos; i < len(b.lines); i++ {
		if b.lines[i].amount > 0 {
			return ErrInvalidOrderBook
		}
	}
	if b.lowestAskPos > 0 && b.lowestAskPos < len(b.lines) {
		highestBid := b.lines[b.lowestAskPos-1].price
		lowestAsk := b.lines[b.lowestAskPos].price
		if lowestAsk <= highestBid {
			return ErrInvalidOrderBook
		}
	}
	return nil
}

// NewFromTicker materializes a synthetic book of up to 2*depth entries
// (depth bid levels and depth ask levels) from a best-bid/best-ask quote,
// stepping price by one tick per level and replicating the touched volume
// geometrically (halved per level away from the top). No zero-amount
// centre line is added, and bid levels stop before the price reaches
// zero. The book is marked artificially-extended.
func NewFromTicker(mkt market.Market, bidPrice, bidVol, askPrice, askVol money.Amount, depth int, volDecimals, priDecimals uint8) (*Book, error) {
	if depth < 1 {
		depth = 1
	}
	bidTicks, ok := bidPrice.AmountAt(priDecimals)
	if !ok {
		return nil, ErrInvalidOrderBook
	}
	askTicks, ok := askPrice.AmountAt(priDecimals)
	if !ok {
		return nil, ErrInvalidOrderBook
	}
	if askTicks <= bidTicks {
		return nil, ErrInvalidOrderBook
	}
	bidVolTicks, ok := bidVol.AmountAt(volDecimals)
	if !ok {
		return nil, ErrInvalidOrderBook
	}
	askVolTicks, ok := askVol.AmountAt(volDecimals)
	if !ok {
		return nil, ErrInvalidOrderBook
	}
	lines := make([]line, 0, 2*depth)
	vol := bidVolTicks
	for i := 0; i < depth; i++ {
		price := bidTicks - int64(i)
		if price <= 0 {
			break
		}
		lines = append(lines, line{amount: vol, price: price})
		vol /= 2
		if vol == 0 {
			vol = 1
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].price < lines[j].price })
	lowestAskPos := len(lines)
	vol = askVolTicks
	for i := 0; i < depth; i++ {
		price := askTicks + int64(i)
		lines = append(lines, line{amount: -vol, price: price})
		vol /= 2
		if vol == 0 {
			vol = 1
		}
	}
	b := &Book{mkt: mkt, volDecimals: volDecimals, priDecimals: priDecimals, lines: lines, lowestAskPos: lowestAskPos, synthetic: true}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Market returns the market this book belongs to.
func (b *Book) Market() market.Market { return b.mkt }

// Time returns the timestamp this book was observed at, per spec §3
// "plus ... timestamp". Zero until WithTime is called; replay engines
// set it from the exchange adapter's record before feeding the book in.
func (b *Book) Time() time.Time { return b.timestamp }

// WithTime sets this book's observation timestamp and returns the same
// Book for chaining, e.g. orderbook.New(...).WithTime(ts).
func (b *Book) WithTime(t time.Time) *Book {
	b.timestamp = t
	return b
}

// IsValid reports whether the book satisfies its invariants (no crossed
// book). A Book returned by New/NewFromTicker is always valid; this is
// exposed so callers that assemble Books by hand (e.g. exchange adapter
// test doubles) can check before feeding one to a trading engine.
func (b *Book) IsValid() bool { return b.validate() == nil }

// Empty reports whether the book has no lines at all.
func (b *Book) Empty() bool { return len(b.lines) == 0 }

// Size returns the total number of price levels.
func (b *Book) Size() int { return len(b.lines) }

// IsArtificiallyExtended reports whether this book was built from a
// ticker rather than real depth.
func (b *Book) IsArtificiallyExtended() bool { return b.synthetic }

func (b *Book) amountFromTicks(t int64) money.Amount {
	if t < 0 {
		t = -t
	}
	return money.New(t, b.mkt.Base(), b.volDecimals)
}

func (b *Book) priceFromTicks(t int64) money.Amount {
	return money.New(t, b.mkt.Quote(), b.priDecimals)
}

// HighestBidPrice returns the best bid price, or (zero, false) if there
// are no bids.
func (b *Book) HighestBidPrice() (money.Amount, bool) {
	if b.lowestAskPos == 0 {
		return money.Amount{}, false
	}
	return b.priceFromTicks(b.lines[b.lowestAskPos-1].price), true
}

// LowestAskPrice returns the best ask price, or (zero, false) if there
// are no asks.
func (b *Book) LowestAskPrice() (money.Amount, bool) {
	if b.lowestAskPos >= len(b.lines) {
		return money.Amount{}, false
	}
	return b.priceFromTicks(b.lines[b.lowestAskPos].price), true
}

// AmountAtBid returns the volume resting at the best bid.
func (b *Book) AmountAtBid() (money.Amount, bool) {
	if b.lowestAskPos == 0 {
		return money.Amount{}, false
	}
	return b.amountFromTicks(b.lines[b.lowestAskPos-1].amount), true
}

// AmountAtAsk returns the volume resting at the best ask.
func (b *Book) AmountAtAsk() (money.Amount, bool) {
	if b.lowestAskPos >= len(b.lines) {
		return money.Amount{}, false
	}
	return b.amountFromTicks(b.lines[b.lowestAskPos].amount), true
}

// AveragePrice is (highest bid + lowest ask) / 2, or (zero, false) if
// either side is empty.
func (b *Book) AveragePrice() (money.Amount, bool) {
	bid, ok := b.HighestBidPrice()
	if !ok {
		return money.Amount{}, false
	}
	ask, ok := b.LowestAskPrice()
	if !ok {
		return money.Amount{}, false
	}
	sum, err := money.Add(bid, ask)
	if err != nil {
		return money.Amount{}, false
	}
	avg, err := sum.DivScalar(2)
	if err != nil {
		return money.Amount{}, false
	}
	return avg, true
}

// At implements the "[i] relative to the limit price" query: i<0 reads
// down the bid book, i>0 up the ask book, i==0 returns the average
// price paired with a zero amount.
func (b *Book) At(i int) (price money.Amount, amount money.Amount, ok bool) {
	if i == 0 {
		avg, has := b.AveragePrice()
		if !has {
			return money.Amount{}, money.Amount{}, false
		}
		return avg, money.Amount{}, true
	}
	var idx int
	if i < 0 {
		idx = b.lowestAskPos + i
	} else {
		idx = b.lowestAskPos + i - 1
	}
	if idx < 0 || idx >= len(b.lines) {
		return money.Amount{}, money.Amount{}, false
	}
	l := b.lines[idx]
	return b.priceFromTicks(l.price), b.amountFromTicks(l.amount), true
}
