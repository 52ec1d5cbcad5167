package domain

import "time"

// Opportunity is a priced venue pair for one symbol. The JSON field names are
// the hand-off contract read by the notifier process.
type Opportunity struct {
	ID                 string          `json:"id,omitempty"`
	Symbol             string          `json:"symbol"`
	Market1            string          `json:"market1"`
	Price1Orig         float64         `json:"price1_orig"`
	Price1USD          float64         `json:"price1_usd"`
	Bid1               float64         `json:"bid1"`
	Ask1               float64         `json:"ask1"`
	Market2            string          `json:"market2"`
	Price2Orig         float64         `json:"price2_orig"`
	Price2USD          float64         `json:"price2_usd"`
	Bid2               float64         `json:"bid2"`
	Ask2               float64         `json:"ask2"`
	SpreadPct          float64         `json:"spread_pct"`
	PotentialProfitUSD float64         `json:"potential_profit_usd"`
	EstimatedFees      float64         `json:"estimated_fees"`
	NetProfit          float64         `json:"net_profit"`
	IsFreeMoney        bool            `json:"is_free_money"`
	Timestamp          time.Time       `json:"timestamp"`
	Risk               *RiskAssessment `json:"risk,omitempty"`
}

// Key identifies an opportunity for de-duplication. It is direction
// sensitive: (A, B) and (B, A) are different keys.
func (o Opportunity) Key() string {
	return o.Symbol + "|" + o.Market1 + "|" + o.Market2
}

// Executable reports whether the simulated risk gates accepted the
// opportunity. Opportunities that were never assessed are not executable.
func (o Opportunity) Executable() bool {
	return o.Risk != nil && o.Risk.Valid
}

// RiskAssessment is attached by the simulated trading variant.
type RiskAssessment struct {
	Valid     bool    `json:"is_valid"`
	Reason    string  `json:"reason,omitempty"`
	Risk      float64 `json:"risk_amount"`
	Reward    float64 `json:"reward_amount"`
	RiskRatio float64 `json:"risk_reward_ratio"`
}
