// Package checkpoint implements the notifier pass: read what the detector
// published, deliver what has not been delivered yet, and remember how far
// delivery got.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/notify"
	"github.com/alanyoungcy/arbwatch/internal/report"
)

// SnapshotReader loads the detector's snapshot.
type SnapshotReader interface {
	Load() (domain.ReportState, error)
}

// CursorStore persists the delivery cursor.
type CursorStore interface {
	Load() (domain.Cursor, error)
	Save(domain.Cursor) error
}

// Notifier delivers one message for an event type.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Message is one delivered notification.
type Message struct {
	Kind        string
	Text        string
	Opportunity *domain.Opportunity
}

// Result describes a completed pass.
type Result struct {
	Found              bool
	Status             domain.MonitoringStatus
	TotalOpportunities int
	Messages           []Message
}

// Config wires a Consumer. With a nil Log the consumer diffs the snapshot's
// opportunity window by count; otherwise new opportunities are read from the
// log after the cursor's position.
type Config struct {
	Snapshot  SnapshotReader
	Cursor    CursorStore
	Log       domain.EventLog
	BatchSize int
	Notifier  Notifier
	Logger    *slog.Logger
}

// Consumer runs one read-diff-emit-persist pass per call to Run.
type Consumer struct {
	snapshot SnapshotReader
	cursor   CursorStore
	log      domain.EventLog
	batch    int
	notifier Notifier
	logger   *slog.Logger
}

// NewConsumer creates a Consumer.
func NewConsumer(cfg Config) *Consumer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Consumer{
		snapshot: cfg.Snapshot,
		cursor:   cfg.Cursor,
		log:      cfg.Log,
		batch:    cfg.BatchSize,
		notifier: cfg.Notifier,
		logger:   cfg.Logger.With(slog.String("component", "checkpoint")),
	}
}

// Run delivers, in order, the startup message if it was never delivered,
// every new opportunity, and the summary if it changed since the last pass.
// The cursor is saved after the pass. When a delivery fails the pass stops
// there, the cursor keeps everything delivered before the failure, and the
// failed item is retried on the next pass. An item counts as delivered only
// when every sender accepted it, so the retry also goes to the channels that
// took it the first time: delivery is at least once per channel. A missing
// snapshot is not an error: the detector simply has not started yet.
func (c *Consumer) Run(ctx context.Context) (Result, error) {
	state, err := c.snapshot.Load()
	if errors.Is(err, domain.ErrNotFound) {
		c.logger.WarnContext(ctx, "monitor state file not found, nothing to deliver")
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("checkpoint: load snapshot: %w", err)
	}

	cur, err := c.cursor.Load()
	if err != nil {
		return Result{}, fmt.Errorf("checkpoint: load cursor: %w", err)
	}

	res := Result{
		Found:              true,
		Status:             state.MonitoringStatus,
		TotalOpportunities: state.TotalOpportunitiesFound,
	}

	runErr := c.deliver(ctx, state, &cur, &res)

	if err := c.cursor.Save(cur); err != nil {
		return res, errors.Join(runErr, fmt.Errorf("checkpoint: save cursor: %w", err))
	}
	if runErr != nil {
		return res, runErr
	}

	c.logger.InfoContext(ctx, "checkpoint pass complete",
		slog.String("monitoring_status", string(state.MonitoringStatus)),
		slog.Int("total_opportunities_found", state.TotalOpportunitiesFound),
		slog.Int("delivered", len(res.Messages)),
	)
	return res, nil
}

func (c *Consumer) deliver(ctx context.Context, state domain.ReportState, cur *domain.Cursor, res *Result) error {
	if !cur.StartupSent && state.StartupMessage != "" {
		if err := c.send(ctx, res, Message{Kind: notify.EventStartup, Text: state.StartupMessage}); err != nil {
			return err
		}
		cur.StartupSent = true
	}

	var err error
	if c.log != nil {
		err = c.deliverFromLog(ctx, cur, res)
	} else {
		err = c.deliverFromSnapshot(ctx, state, cur, res)
	}
	if err != nil {
		return err
	}

	if state.SummaryMessage != "" && !domain.SameTime(cur.LastSummaryTime, state.LastSummaryTime) {
		if err := c.send(ctx, res, Message{Kind: notify.EventSummary, Text: state.SummaryMessage}); err != nil {
			return err
		}
		cur.LastSummaryTime = state.LastSummaryTime
	}
	return nil
}

// deliverFromSnapshot compares the retained window's length with the count
// delivered last time. Once the window is full its length stops growing, so
// this mode can miss opportunities; the warning makes that visible.
func (c *Consumer) deliverFromSnapshot(ctx context.Context, state domain.ReportState, cur *domain.Cursor, res *Result) error {
	count := len(state.Opportunities)
	if state.TotalOpportunitiesFound > count {
		c.logger.WarnContext(ctx, "snapshot window is saturated, older opportunities are not retained",
			slog.Int("total_opportunities_found", state.TotalOpportunitiesFound),
			slog.Int("retained", count),
			slog.Int("cursor_count", cur.LastOpportunityCount),
		)
	}
	if count <= cur.LastOpportunityCount {
		return nil
	}

	for i := cur.LastOpportunityCount; i < count; i++ {
		opp := state.Opportunities[i]
		if err := c.sendOpportunity(ctx, res, opp); err != nil {
			return err
		}
		cur.LastOpportunityCount = i + 1
	}
	return nil
}

func (c *Consumer) deliverFromLog(ctx context.Context, cur *domain.Cursor, res *Result) error {
	recs, err := c.log.ReadFrom(ctx, cur.LogPosition, c.batch)
	if err != nil {
		return fmt.Errorf("checkpoint: read event log: %w", err)
	}
	for _, rec := range recs {
		if err := c.sendOpportunity(ctx, res, rec.Opportunity); err != nil {
			return err
		}
		cur.LogPosition = rec.Position
		cur.LastOpportunityCount++
	}
	return nil
}

func (c *Consumer) sendOpportunity(ctx context.Context, res *Result, opp domain.Opportunity) error {
	return c.send(ctx, res, Message{
		Kind:        notify.EventOpportunity,
		Text:        report.FormatOpportunity(opp),
		Opportunity: &opp,
	})
}

func (c *Consumer) send(ctx context.Context, res *Result, msg Message) error {
	if err := c.notifier.Notify(ctx, msg.Kind, "", msg.Text); err != nil {
		return fmt.Errorf("checkpoint: deliver %s: %w", msg.Kind, err)
	}
	res.Messages = append(res.Messages, msg)
	return nil
}
