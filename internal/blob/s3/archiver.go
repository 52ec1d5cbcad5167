package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// multipartThreshold is the payload size above which exports are uploaded
// with the multipart manager.
const multipartThreshold = 8 << 20

// Archiver uploads rendered reports and opportunity exports. Keys are laid
// out by kind and date under an optional prefix:
//
//	reports/summary/2026/03/02/100000.txt
//	reports/daily/2026/03/02/230000.txt
//	archive/opportunities/2026-03-02T100000.jsonl
type Archiver struct {
	writer domain.BlobWriter
	prefix string
	logger *slog.Logger
}

// NewArchiver creates an Archiver writing through w. prefix may be empty.
func NewArchiver(w domain.BlobWriter, prefix string, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		writer: w,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveReport uploads a rendered text report of the given kind ("summary",
// "daily") and returns its key.
func (a *Archiver) ArchiveReport(ctx context.Context, kind string, at time.Time, text string) (string, error) {
	if kind == "" {
		return "", fmt.Errorf("s3blob: archive report: empty kind")
	}
	key := a.key(reportPath(kind, at))
	if err := a.writer.Put(ctx, key, strings.NewReader(text), "text/plain; charset=utf-8"); err != nil {
		return "", fmt.Errorf("s3blob: archive %s report: %w", kind, err)
	}
	a.logger.DebugContext(ctx, "report archived", slog.String("key", key))
	return key, nil
}

// ArchiveOpportunities serializes opps to JSONL and uploads them. Nothing is
// written for an empty slice, in which case the returned key is empty.
func (a *Archiver) ArchiveOpportunities(ctx context.Context, at time.Time, opps []domain.Opportunity) (string, error) {
	if len(opps) == 0 {
		return "", nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive opportunities marshal: %w", err)
	}

	key := a.key(archivePath("opportunities", at))
	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(buf), 0)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive opportunities upload: %w", err)
	}

	a.logger.InfoContext(ctx, "opportunities archived",
		slog.String("key", key),
		slog.Int("count", len(opps)),
	)
	return key, nil
}

func (a *Archiver) key(p string) string {
	if a.prefix == "" {
		return p
	}
	return a.prefix + "/" + p
}

func reportPath(kind string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("reports/%s/%s/%s.txt", kind, at.Format("2006/01/02"), at.Format("150405"))
}

// archivePath builds the key for an export, partitioned by the export time.
func archivePath(kind string, at time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, at.UTC().Format("2006-01-02T150405"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
