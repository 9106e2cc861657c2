// Package fees implements the maker-taker fee calculation (spec.md §4.2):
// a pure function from (trade notional, liquidity role) to a fee, rounded
// with banker's rounding to 8 decimal places.
package fees

import "fenrir/internal/decimal"

// DefaultMakerBps and DefaultTakerBps are the default maker/taker fee
// rates in basis points (10 = 0.10%, 20 = 0.20%).
const (
	DefaultMakerBps int64 = 10
	DefaultTakerBps int64 = 20
)

// Calculator computes maker/taker fees for a trade. Both rates may be
// negative to model rebates, per spec.md §4.2.
type Calculator struct {
	MakerBps int64
	TakerBps int64
}

// NewCalculator builds a Calculator with the given basis-point rates.
func NewCalculator(makerBps, takerBps int64) Calculator {
	return Calculator{MakerBps: makerBps, TakerBps: takerBps}
}

// Default returns a Calculator using the spec's default rates.
func Default() Calculator {
	return NewCalculator(DefaultMakerBps, DefaultTakerBps)
}

// Compute returns (makerFee, takerFee) for a trade of the given notional
// (price * quantity), each rounded to 8dp with banker's rounding.
func (c Calculator) Compute(notional decimal.Decimal) (makerFee, takerFee decimal.Decimal) {
	makerFee = decimal.RoundBankers(decimal.BasisPoints(notional, c.MakerBps), decimal.Scale)
	takerFee = decimal.RoundBankers(decimal.BasisPoints(notional, c.TakerBps), decimal.Scale)
	return
}
