package arbitrage

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// RiskLimits are the execution gates of the simulated trading variant.
type RiskLimits struct {
	MinRiskReward    float64
	MaxLossPerTrade  float64
	MaxLossTotal     float64
	MaxOpenPositions int
}

// Exposure is the ledger state the gates are evaluated against.
type Exposure struct {
	Capital       float64
	OpenPositions int
	TotalLoss     float64
}

// Risk and reward are fixed fractions of the spread applied to capital.
const (
	riskFraction   = 0.5
	rewardFraction = 0.8
)

// Assess evaluates every gate for a spread against the current exposure. All
// failing gates are reported, joined with "; ".
func Assess(spreadPct float64, limits RiskLimits, ex Exposure) domain.RiskAssessment {
	risk := riskFraction * spreadPct * ex.Capital / 100
	reward := rewardFraction * spreadPct * ex.Capital / 100
	var ratio float64
	if risk > 0 {
		ratio = reward / risk
	}

	var reasons []string
	if ratio < limits.MinRiskReward {
		reasons = append(reasons, fmt.Sprintf("Risk-reward %.2f < minimum %g", ratio, limits.MinRiskReward))
	}
	if risk > limits.MaxLossPerTrade {
		reasons = append(reasons, fmt.Sprintf("Risk $%.2f > max $%g", risk, limits.MaxLossPerTrade))
	}
	if ex.OpenPositions >= limits.MaxOpenPositions {
		reasons = append(reasons, fmt.Sprintf("Max open positions reached (%d)", ex.OpenPositions))
	}
	if ex.TotalLoss >= limits.MaxLossTotal {
		reasons = append(reasons, "Total loss limit reached")
	}

	return domain.RiskAssessment{
		Valid:     len(reasons) == 0,
		Reason:    strings.Join(reasons, "; "),
		Risk:      risk,
		Reward:    reward,
		RiskRatio: ratio,
	}
}

// Gate attaches an assessment to every opportunity. Opportunities are never
// dropped here; a failed gate only makes them non-executable.
func Gate(opps []domain.Opportunity, limits RiskLimits, ex Exposure) []domain.Opportunity {
	out := make([]domain.Opportunity, len(opps))
	for i, opp := range opps {
		a := Assess(opp.SpreadPct, limits, ex)
		opp.Risk = &a
		out[i] = opp
	}
	return out
}
