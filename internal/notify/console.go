package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ConsoleSender writes each notification to a stream, framed the way an
// operator reading a terminal or a cron mail expects.
type ConsoleSender struct {
	w  io.Writer
	mu sync.Mutex
	n  int
}

// NewConsoleSender creates a ConsoleSender writing to w.
func NewConsoleSender(w io.Writer) *ConsoleSender {
	return &ConsoleSender{w: w}
}

// Send writes one framed message.
func (c *ConsoleSender) Send(_ context.Context, title, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.n++
	header := fmt.Sprintf("--- Message %d ---", c.n)
	if title != "" {
		header = fmt.Sprintf("--- Message %d (%s) ---", c.n, title)
	}
	if _, err := fmt.Fprintf(c.w, "\n%s\n%s\n%s\n", header, message, strings.Repeat("-", 60)); err != nil {
		return fmt.Errorf("console: write: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (c *ConsoleSender) Name() string {
	return "console"
}
