package tradeengine

import "coincenter-core/internal/money"

// FeeConfig holds the trade-fee schedule an engine applies to matched
// volume, expressed in basis points (1 bp = 0.01%) the way an exchange's
// fee tier normally is. Ported from ExchangeConfig::applyFee's call
// sites in market-trader-engine(-state).cpp, generalized from a single
// float ratio to an exact-integer basis-point schedule so fee
// application stays on the int64 hot path.
type FeeConfig struct {
	MakerBps int64
	TakerBps int64
}

// DefaultFeeConfig mirrors a typical spot-exchange default: 10 bps
// maker, 20 bps taker.
var DefaultFeeConfig = FeeConfig{MakerBps: 10, TakerBps: 20}

func (f FeeConfig) bps(t FeeType) int64 {
	if t == FeeMaker {
		return f.MakerBps
	}
	return f.TakerBps
}

// Apply returns amount reduced by the configured fee for feeType,
// computed as amount * (10000 - bps) / 10000 with exact int64 scalar
// arithmetic (no rounding error beyond the amount's own decimals).
func (f FeeConfig) Apply(amount money.Amount, feeType FeeType) (money.Amount, error) {
	bps := f.bps(feeType)
	scaled, err := amount.MulScalar(10000 - bps)
	if err != nil {
		return money.Amount{}, err
	}
	return scaled.DivScalar(10000)
}
