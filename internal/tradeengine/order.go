package tradeengine

import (
	"math/big"
	"time"

	"coincenter-core/internal/money"
	"coincenter-core/internal/orderbook"
)

// OrderCommon is the field set shared by OpenOrder and ClosedOrder.
// The original source models this with a common Order base class and
// inheritance (OpenedOrder/ClosedOrder : Order); per spec §9 DESIGN
// NOTES ("prefer composition... one OrderCommon struct reused in both"),
// it is embedded by value here instead.
type OrderCommon struct {
	ID            int32
	MatchedVolume money.Amount
	Price         money.Amount
	PlacedTime    time.Time
	Side          orderbook.Side
}

// OpenOrder is a resting order: created by a Place command, mutated on
// partial match, destroyed when fully matched (becomes a ClosedOrder) or
// cancelled.
type OpenOrder struct {
	OrderCommon
	RemainingVolume money.Amount
}

// OriginalVolume is the sum of matched and remaining volume at order
// placement time.
func (o OpenOrder) OriginalVolume() (money.Amount, error) {
	return money.Add(o.MatchedVolume, o.RemainingVolume)
}

// ClosedOrder is a fully matched order (or the fully-matched record of
// one partial fill before merging). Two closed orders sharing an id,
// produced by multiple partial fills over different ticks, are merged
// by MergeWith.
type ClosedOrder struct {
	OrderCommon
	MatchedTime time.Time
}

// MergeWith combines two partial fills of the same order id: matched
// volumes sum, matched time becomes the volume-weighted mean, price
// becomes the volume-weighted mean price. Ported from
// ClosedOrder::mergeWith in the original source.
func (c ClosedOrder) MergeWith(other ClosedOrder) (ClosedOrder, error) {
	totalVolume, err := money.Add(c.MatchedVolume, other.MatchedVolume)
	if err != nil {
		return ClosedOrder{}, err
	}

	avgMatchedTime := weightedAvgTime(c.MatchedTime, c.MatchedVolume, other.MatchedTime, other.MatchedVolume, totalVolume)

	avgPrice := c.Price
	if !c.Price.Equal(other.Price) {
		weighted, err := weightedAvgPrice(c.MatchedVolume, c.Price, other.MatchedVolume, other.Price, totalVolume)
		if err != nil {
			return ClosedOrder{}, err
		}
		avgPrice = weighted
	}

	return ClosedOrder{
		OrderCommon: OrderCommon{
			ID:            c.ID,
			MatchedVolume: totalVolume,
			Price:         avgPrice,
			PlacedTime:    c.PlacedTime,
			Side:          c.Side,
		},
		MatchedTime: avgMatchedTime,
	}, nil
}

// weightedAvgTime computes the volume-weighted mean of two epoch-millis
// timestamps, using both volumes rescaled to a common decimal count as
// integer weights (the greater count, or the smaller one if that would
// overflow) via a bounded big.Int intermediate to avoid overflow on the
// cross products.
func weightedAvgTime(t1 time.Time, v1 money.Amount, t2 time.Time, v2 money.Amount, total money.Amount) time.Time {
	if total.IsZero() {
		return t1
	}
	dec := v1.NbDecimals()
	if v2.NbDecimals() > dec {
		dec = v2.NbDecimals()
	}
	r1, ok1 := v1.AmountAt(dec)
	r2, ok2 := v2.AmountAt(dec)
	if !ok1 || !ok2 {
		dec = v1.NbDecimals() + v2.NbDecimals() - dec
		r1, _ = v1.AmountAt(dec)
		r2, _ = v2.AmountAt(dec)
	}
	w1 := big.NewInt(r1)
	w2 := big.NewInt(r2)
	ts1 := big.NewInt(t1.UnixMilli())
	ts2 := big.NewInt(t2.UnixMilli())

	sum := new(big.Int).Add(new(big.Int).Mul(ts1, w1), new(big.Int).Mul(ts2, w2))
	denom := new(big.Int).Add(w1, w2)
	if denom.Sign() == 0 {
		return t1
	}
	avg := new(big.Int).Quo(sum, denom)
	return time.UnixMilli(avg.Int64()).UTC()
}

// weightedAvgPrice computes (v1*p1 + v2*p2) / (v1+v2) in the quote
// currency of p1/p2.
func weightedAvgPrice(v1, p1, v2, p2, total money.Amount) (money.Amount, error) {
	n1, err := money.Mul(v1.ToNeutral(), p1)
	if err != nil {
		return money.Amount{}, err
	}
	n2, err := money.Mul(v2.ToNeutral(), p2)
	if err != nil {
		return money.Amount{}, err
	}
	sum, err := money.Add(n1, n2)
	if err != nil {
		return money.Amount{}, err
	}
	return money.Div(sum, total.ToNeutral())
}
