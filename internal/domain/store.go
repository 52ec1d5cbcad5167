package domain

import (
	"context"
	"time"
)

// OpportunityStore keeps the full history of reported opportunities.
type OpportunityStore interface {
	Insert(ctx context.Context, opp Opportunity) error
	ListSince(ctx context.Context, since time.Time) ([]Opportunity, error)
}
