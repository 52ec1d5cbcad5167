// Package ledger is the simulated trading book: a capital counter gated by
// risk thresholds, persisted in the same JSON file that configures it.
package ledger

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Book is the on-disk document. Its shape is shared with existing book
// files, so field names must not change.
type Book struct {
	Brokers        []string       `json:"brokers" validate:"min=2,dive,required"`
	Stocks         Stocks         `json:"stocks"`
	Thresholds     Thresholds     `json:"thresholds"`
	RiskManagement RiskManagement `json:"risk_management"`
	State          State          `json:"state"`
	Performance    Performance    `json:"performance"`
}

type Stocks struct {
	IDXHighLiquidity []string `json:"idx_high_liquidity" validate:"min=1,dive,required"`
}

type Thresholds struct {
	MinSpreadPct float64 `json:"min_spread_pct" validate:"gte=0"`
}

type RiskManagement struct {
	MinRiskRewardRatio float64 `json:"min_risk_reward_ratio" validate:"gte=0"`
	MaxLossPerTrade    float64 `json:"max_loss_per_trade" validate:"gt=0"`
	MaxLossTotal       float64 `json:"max_loss_total" validate:"gt=0"`
	MaxOpenPositions   int     `json:"max_open_positions" validate:"gte=1"`
}

// State holds the counters. Money fields are kept as plain numbers in the
// file; arithmetic on them goes through decimal.
type State struct {
	InitialCapital     float64 `json:"initial_capital,omitempty" validate:"gte=0"`
	CurrentCapital     float64 `json:"current_capital"`
	OpenPositions      int     `json:"open_positions" validate:"gte=0"`
	TradesExecuted     int     `json:"trades_executed" validate:"gte=0"`
	Wins               int     `json:"wins" validate:"gte=0"`
	Losses             int     `json:"losses" validate:"gte=0"`
	TotalProfit        float64 `json:"total_profit" validate:"gte=0"`
	TotalLoss          float64 `json:"total_loss" validate:"gte=0"`
	OpportunitiesFound int     `json:"opportunities_found" validate:"gte=0"`
}

type Performance struct {
	TopStocks map[string]float64 `json:"top_stocks"`
}

// DefaultCapital is the starting capital of a new book.
const DefaultCapital = 50.0

// DefaultBook returns a fresh book for the three-venue broker table.
func DefaultBook() Book {
	return Book{
		Brokers: []string{"idx", "idx_broker1", "idx_broker2"},
		Stocks: Stocks{
			IDXHighLiquidity: []string{"BBCA", "UNVR", "TLKM", "GOTO", "ADRO"},
		},
		Thresholds: Thresholds{MinSpreadPct: 0.5},
		RiskManagement: RiskManagement{
			MinRiskRewardRatio: 1.5,
			MaxLossPerTrade:    2.5,
			MaxLossTotal:       10,
			MaxOpenPositions:   3,
		},
		State: State{
			InitialCapital: DefaultCapital,
			CurrentCapital: DefaultCapital,
		},
		Performance: Performance{TopStocks: map[string]float64{}},
	}
}

var validate = validator.New()

// Validate checks the book's struct tags and reports every failing field.
func (b Book) Validate() error {
	err := validate.Struct(b)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("ledger: validate book: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed validation: %s (value: '%v')",
			e.Namespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("ledger: book validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

// initialCapital returns the capital the book started with. Books written
// before the field existed started with DefaultCapital.
func (b Book) initialCapital() float64 {
	if b.State.InitialCapital > 0 {
		return b.State.InitialCapital
	}
	return DefaultCapital
}
