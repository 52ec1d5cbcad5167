package handoff

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// FileLog is an append-only JSON-lines opportunity log. Positions are byte
// offsets rendered as decimal strings; the empty position is the start of
// the file.
type FileLog struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

var _ domain.EventLog = (*FileLog)(nil)

// NewFileLog returns a FileLog stored at path.
func NewFileLog(path string, logger *slog.Logger) *FileLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileLog{path: path, logger: logger.With(slog.String("component", "event_log"))}
}

// Append writes opp as one line and syncs it to disk.
func (l *FileLog) Append(_ context.Context, opp domain.Opportunity) error {
	line, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("handoff: encode log entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("handoff: create log dir: %w: %w", domain.ErrPersistence, err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("handoff: open log: %w: %w", domain.ErrPersistence, err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("handoff: append log: %w: %w", domain.ErrPersistence, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("handoff: sync log: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// ReadFrom returns up to limit complete records after position. A limit of
// zero or less means no limit. A trailing partial line, left by a writer
// that has not finished, is not returned and will be read on the next call.
// A position past the end of the file means the log was truncated or
// recreated; reading then restarts from the beginning.
func (l *FileLog) ReadFrom(ctx context.Context, position string, limit int) ([]domain.LogRecord, error) {
	offset, err := parseOffset(position)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("handoff: open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("handoff: stat log: %w", err)
	}
	if offset > info.Size() {
		l.logger.WarnContext(ctx, "log position is past the end of the log, reading from the start",
			slog.String("path", l.path),
			slog.Int64("position", offset),
			slog.Int64("size", info.Size()),
		)
		offset = 0
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("handoff: seek log: %w", err)
	}

	var (
		records []domain.LogRecord
		r       = bufio.NewReader(f)
		pos     = offset
	)
	for limit <= 0 || len(records) < limit {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		line, err := r.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return records, fmt.Errorf("handoff: read log: %w", err)
		}
		start := pos
		pos += int64(len(line))

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var opp domain.Opportunity
		if err := json.Unmarshal(line, &opp); err != nil {
			return records, fmt.Errorf("handoff: decode log entry at offset %d: %w", start, err)
		}
		records = append(records, domain.LogRecord{
			Position:    strconv.FormatInt(pos, 10),
			Opportunity: opp,
		})
	}
	return records, nil
}

func parseOffset(position string) (int64, error) {
	if position == "" {
		return 0, nil
	}
	off, err := strconv.ParseInt(position, 10, 64)
	if err != nil || off < 0 {
		return 0, fmt.Errorf("handoff: invalid log position %q", position)
	}
	return off, nil
}
