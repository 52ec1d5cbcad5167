package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// DefaultRetain is how many recent opportunities the snapshot keeps.
const DefaultRetain = 20

// PersisterConfig wires a Persister.
type PersisterConfig struct {
	Snapshot *SnapshotFile
	// Log receives every recorded opportunity. It is nil for the
	// snapshot-only transport.
	Log    domain.EventLog
	Retain int
	Now    func() time.Time
	Logger *slog.Logger
}

// Persister owns the detector's view of the shared snapshot. Every mutation
// and every write happens under one lock, so a snapshot on disk is always a
// consistent copy of what was recorded.
type Persister struct {
	snapshot *SnapshotFile
	log      domain.EventLog
	retain   int
	now      func() time.Time
	logger   *slog.Logger

	mu    sync.Mutex
	state domain.ReportState
}

// NewPersister creates a Persister. It does not touch the disk until Start.
func NewPersister(cfg PersisterConfig) *Persister {
	if cfg.Retain <= 0 {
		cfg.Retain = DefaultRetain
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Persister{
		snapshot: cfg.Snapshot,
		log:      cfg.Log,
		retain:   cfg.Retain,
		now:      cfg.Now,
		logger:   cfg.Logger.With(slog.String("component", "persister")),
		state:    domain.ReportState{Opportunities: []domain.Opportunity{}},
	}
}

// Start publishes the startup message and marks the detector running. The
// retained window and the running total are carried over from a previous
// snapshot so the total never goes backwards across restarts.
func (p *Persister) Start(ctx context.Context, startupMessage string, lastSummary time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, err := p.snapshot.Load()
	switch {
	case err == nil:
		p.state.Opportunities = trimTail(prev.Opportunities, p.retain)
		p.state.TotalOpportunitiesFound = prev.TotalOpportunitiesFound
		p.logger.InfoContext(ctx, "resuming from previous snapshot",
			slog.Int("total_opportunities_found", prev.TotalOpportunitiesFound),
			slog.Int("retained", len(p.state.Opportunities)),
		)
	case errors.Is(err, domain.ErrNotFound):
	default:
		p.logger.WarnContext(ctx, "previous snapshot unreadable, starting fresh",
			slog.String("error", err.Error()),
		)
	}

	ls := lastSummary.UTC()
	p.state.LastSummaryTime = &ls
	p.state.StartupMessage = startupMessage
	p.state.SummaryMessage = ""
	p.state.MonitoringStatus = domain.StatusRunning
	return p.writeLocked()
}

// Record adds an accepted opportunity to the retained window and, when an
// event log is configured, appends it there before returning.
func (p *Persister) Record(ctx context.Context, opp domain.Opportunity) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.log != nil {
		if err := p.log.Append(ctx, opp); err != nil {
			return fmt.Errorf("handoff: record %s: %w", opp.Symbol, err)
		}
	}
	p.state.Opportunities = trimTail(append(p.state.Opportunities, opp), p.retain)
	p.state.TotalOpportunitiesFound++
	return nil
}

// SetSummary publishes a new summary message generated at at.
func (p *Persister) SetSummary(msg string, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	at = at.UTC()
	p.state.SummaryMessage = msg
	p.state.LastSummaryTime = &at
}

// Save writes the current state with the running status.
func (p *Persister) Save(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state.MonitoringStatus = domain.StatusRunning
	return p.writeLocked()
}

// Stop writes the final state with the stopped status.
func (p *Persister) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state.MonitoringStatus = domain.StatusStopped
	if err := p.writeLocked(); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "final snapshot written",
		slog.Int("total_opportunities_found", p.state.TotalOpportunitiesFound),
	)
	return nil
}

// State returns a copy of the in-memory snapshot.
func (p *Persister) State() domain.ReportState {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.state
	st.Opportunities = append([]domain.Opportunity(nil), p.state.Opportunities...)
	return st
}

func (p *Persister) writeLocked() error {
	p.state.LastUpdate = p.now().UTC()
	if err := p.snapshot.Save(p.state); err != nil {
		return fmt.Errorf("handoff: save snapshot: %w", err)
	}
	return nil
}

// trimTail keeps the last n elements of opps in a slice it owns.
func trimTail(opps []domain.Opportunity, n int) []domain.Opportunity {
	if len(opps) <= n {
		return opps
	}
	out := make([]domain.Opportunity, n)
	copy(out, opps[len(opps)-n:])
	return out
}
