package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given
// connection pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppSelectCols = `id, symbol,
	market1, price1_orig, price1_usd, bid1, ask1,
	market2, price2_orig, price2_usd, bid2, ask2,
	spread_pct, potential_profit_usd, estimated_fees, net_profit,
	is_free_money, risk, detected_at`

// Insert stores a reported opportunity. Re-inserting the same ID is a no-op.
// An opportunity without an ID is given one.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	const query = `
		INSERT INTO opportunities (` + oppSelectCols + `) VALUES (
			$1, $2,
			$3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19
		)
		ON CONFLICT (id) DO NOTHING`

	if opp.ID == "" {
		opp.ID = uuid.NewString()
	}
	risk, err := encodeRisk(opp.Risk)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}

	_, err = s.pool.Exec(ctx, query,
		opp.ID, opp.Symbol,
		opp.Market1, opp.Price1Orig, opp.Price1USD, opp.Bid1, opp.Ask1,
		opp.Market2, opp.Price2Orig, opp.Price2USD, opp.Bid2, opp.Ask2,
		opp.SpreadPct, opp.PotentialProfitUSD, opp.EstimatedFees, opp.NetProfit,
		opp.IsFreeMoney, risk, opp.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// ListSince returns opportunities detected at or after since, oldest first.
func (s *OpportunityStore) ListSince(ctx context.Context, since time.Time) ([]domain.Opportunity, error) {
	query := `SELECT ` + oppSelectCols + ` FROM opportunities
		WHERE detected_at >= $1 ORDER BY detected_at, id`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities since %s: %w", since.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list opportunities rows: %w", err)
	}
	return opps, nil
}

func scanOpportunity(row pgx.Row) (domain.Opportunity, error) {
	var opp domain.Opportunity
	var risk []byte
	if err := row.Scan(
		&opp.ID, &opp.Symbol,
		&opp.Market1, &opp.Price1Orig, &opp.Price1USD, &opp.Bid1, &opp.Ask1,
		&opp.Market2, &opp.Price2Orig, &opp.Price2USD, &opp.Bid2, &opp.Ask2,
		&opp.SpreadPct, &opp.PotentialProfitUSD, &opp.EstimatedFees, &opp.NetProfit,
		&opp.IsFreeMoney, &risk, &opp.Timestamp,
	); err != nil {
		return domain.Opportunity{}, fmt.Errorf("postgres: scan opportunity: %w", err)
	}
	r, err := decodeRisk(risk)
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("postgres: scan opportunity %s: %w", opp.ID, err)
	}
	opp.Risk = r
	return opp, nil
}

// encodeRisk returns nil for an unassessed opportunity so the column is NULL.
func encodeRisk(r *domain.RiskAssessment) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode risk: %w", err)
	}
	return b, nil
}

func decodeRisk(b []byte) (*domain.RiskAssessment, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var r domain.RiskAssessment
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode risk: %w", err)
	}
	return &r, nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)
