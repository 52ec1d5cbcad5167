// Package arbitrage prices venue pairs for the same underlying: spread
// percentage, round-trip economics, pair enumeration and the simulated
// risk gates.
package arbitrage

import (
	"fmt"
	"math"
	"strings"
)

// SpreadBasis selects the denominator of the spread percentage.
type SpreadBasis string

const (
	// BasisAverage divides by the mean of the two prices. Used by the
	// passive monitor.
	BasisAverage SpreadBasis = "average"
	// BasisMin divides by the cheaper leg. Used by the simulated trading
	// variant; it yields a slightly larger figure than BasisAverage.
	BasisMin SpreadBasis = "min"
)

// ParseSpreadBasis maps a config value onto a SpreadBasis.
func ParseSpreadBasis(s string) (SpreadBasis, error) {
	switch SpreadBasis(strings.ToLower(strings.TrimSpace(s))) {
	case "", BasisAverage:
		return BasisAverage, nil
	case BasisMin:
		return BasisMin, nil
	default:
		return "", fmt.Errorf("arbitrage: unknown spread basis %q (valid: average, min)", s)
	}
}

// SpreadPct returns |p1-p2| as a percentage of the basis price. Non-positive
// prices yield 0.
func SpreadPct(p1, p2 float64, basis SpreadBasis) float64 {
	if p1 <= 0 || p2 <= 0 {
		return 0
	}
	denom := (p1 + p2) / 2
	if basis == BasisMin {
		denom = math.Min(p1, p2)
	}
	return math.Abs(p1-p2) / denom * 100
}

// Economics is the fee schedule and classification thresholds applied to
// every pair.
type Economics struct {
	NotionalUSD           float64 // per leg
	FlatFeeUSD            float64 // per round trip
	FeeRate               float64 // applied to both legs' notional
	FreeMoneyMinSpreadPct float64
	MaxPlausibleSpreadPct float64
}

// DefaultEconomics is $25 a leg, $5 flat plus 0.1%.
func DefaultEconomics() Economics {
	return Economics{
		NotionalUSD:           25,
		FlatFeeUSD:            5,
		FeeRate:               0.001,
		FreeMoneyMinSpreadPct: 0.5,
		MaxPlausibleSpreadPct: 100,
	}
}

// Fees is the estimated cost of one round trip across both legs.
func (e Economics) Fees() float64 {
	return e.FlatFeeUSD + 2*e.NotionalUSD*e.FeeRate
}

// Evaluation is the pure outcome of pricing one pair.
type Evaluation struct {
	SpreadPct       float64
	Fees            float64
	Shares          float64
	PotentialProfit float64
	NetProfit       float64
	FreeMoney       bool
	Plausible       bool
}

// Evaluate prices a pair of USD prices. Plausible is false when the spread
// exceeds MaxPlausibleSpreadPct or either price is non-positive; such pairs
// are different instruments and must be discarded by the caller.
func Evaluate(p1, p2 float64, basis SpreadBasis, e Economics) Evaluation {
	if p1 <= 0 || p2 <= 0 {
		return Evaluation{}
	}
	spread := SpreadPct(p1, p2, basis)
	fees := e.Fees()
	shares := e.NotionalUSD / math.Min(p1, p2)
	potential := math.Abs(p1-p2)*shares - fees

	return Evaluation{
		SpreadPct:       spread,
		Fees:            fees,
		Shares:          shares,
		PotentialProfit: potential,
		NetProfit:       potential,
		FreeMoney:       potential > 0 && spread >= e.FreeMoneyMinSpreadPct,
		Plausible:       spread <= e.MaxPlausibleSpreadPct,
	}
}
