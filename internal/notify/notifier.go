// Package notify delivers alert text to operators. Notifications are
// dispatched to every registered sender (Telegram, Discord, console) and can
// be filtered by event type so a channel only receives the alerts it wants.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Event types published by the detector and the notifier.
const (
	EventStartup     = "startup"
	EventOpportunity = "opportunity"
	EventSummary     = "summary"
	EventDailyReport = "daily_report"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification. The title may be empty, in which case
	// only the message body is delivered.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. Notify only
// forwards events in the allowed set; NotifyAll bypasses the filter.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. If
// events is empty, all event types are allowed.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Len returns the number of configured senders.
func (n *Notifier) Len() int { return len(n.senders) }

// Has reports whether a sender with the given name is configured.
func (n *Notifier) Has(name string) bool {
	for _, s := range n.senders {
		if s.Name() == name {
			return true
		}
	}
	return false
}

// Notify sends a notification to all senders if the event type is allowed.
// A filtered event is not an error.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}

	return n.dispatch(ctx, event, title, message)
}

// NotifyAll sends a notification to all senders regardless of event type.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, "", title, message)
}

// dispatch delivers to every sender. A single sender failure does not stop
// delivery to the rest; all failures are returned joined. Senders keep no
// per-message record, so a caller that retries after a partial failure
// delivers again to the senders that already succeeded.
func (n *Notifier) dispatch(ctx context.Context, event, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("event", event),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d of %d sender(s) failed: %w", len(errs), len(n.senders), errors.Join(errs...))
	}
	return nil
}
