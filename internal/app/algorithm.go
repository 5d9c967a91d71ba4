// Package app wires the core's building blocks (exchange adapters, the
// conversion-path resolver, caches and the trading engine) into the
// concrete collaborators the orchestrator and cmd/coincenterd need: an
// orchestrator.Executor and a couple of ready-to-run algorithms.
package app

import (
	"coincenter-core/internal/tradeengine"
)

// MomentumAlgorithm is a minimal mid-price moving-average cross
// strategy, adapted from the teacher's decide() in strategy.go (MA10 vs
// MA30 regime filter) down to the two series the trading engine's
// MarketDataView actually exposes: a rolling window of past order
// books. Via Nibble, it buys with half of the available quote on an
// upward cross and sells the whole available base on a downward cross,
// mirroring the teacher's "BUY/SELL/FLAT" three-way signal.
type MomentumAlgorithm struct {
	fast, slow int
}

// NewMomentumAlgorithm builds the algorithm with the given fast/slow
// window lengths (in number of replayed books), defaulting to 10/30
// like the teacher's MA10/MA30 regime filter when non-positive.
func NewMomentumAlgorithm(fast, slow int) *MomentumAlgorithm {
	if fast <= 0 {
		fast = 10
	}
	if slow <= 0 {
		slow = 30
	}
	return &MomentumAlgorithm{fast: fast, slow: slow}
}

func (a *MomentumAlgorithm) Name() string { return "momentum-ma-cross" }

func (a *MomentumAlgorithm) Trade(view *tradeengine.MarketDataView) tradeengine.Command {
	books := view.PastOrderBooks()
	if len(books) < a.slow+1 {
		return tradeengine.Wait()
	}

	mid := make([]float64, len(books))
	for i, b := range books {
		bid, hasBid := b.HighestBidPrice()
		ask, hasAsk := b.LowestAskPrice()
		switch {
		case hasBid && hasAsk:
			mid[i] = (bid.ToDouble() + ask.ToDouble()) / 2
		case hasBid:
			mid[i] = bid.ToDouble()
		case hasAsk:
			mid[i] = ask.ToDouble()
		}
	}

	fastMA := sma(mid, a.fast)
	slowMA := sma(mid, a.slow)
	last := len(mid) - 1
	prevFast, prevSlow := fastMA[last-1], slowMA[last-1]
	curFast, curSlow := fastMA[last], slowMA[last]

	crossedUp := prevFast <= prevSlow && curFast > curSlow
	crossedDown := prevFast >= prevSlow && curFast < curSlow

	switch {
	case crossedUp:
		cmd, err := tradeengine.BuyCommand(50, tradeengine.Nibble)
		if err != nil {
			return tradeengine.Wait()
		}
		return cmd
	case crossedDown:
		cmd, err := tradeengine.SellCommand(100, tradeengine.Nibble)
		if err != nil {
			return tradeengine.Wait()
		}
		return cmd
	default:
		return tradeengine.Wait()
	}
}

// sma computes the trailing simple moving average of series at window
// n, ported from indicators.go's SMA but operating on a plain float64
// series instead of []Candle.
func sma(series []float64, n int) []float64 {
	out := make([]float64, len(series))
	sum := 0.0
	for i, v := range series {
		sum += v
		if i >= n {
			sum -= series[i-n]
		}
		window := n
		if i+1 < n {
			window = i + 1
		}
		out[i] = sum / float64(window)
	}
	return out
}
