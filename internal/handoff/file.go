// Package handoff implements the file and log channels shared by the
// detector and the notifier: the status snapshot, the notifier cursor, the
// append-only opportunity log and a file lock for single-instance runs.
package handoff

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// WriteJSON atomically replaces path with the indented JSON encoding of v.
// Readers see either the old or the new file, never a partial one.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("handoff: encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("handoff: create dir: %w: %w", domain.ErrPersistence, err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("handoff: write %s: %w: %w", filepath.Base(path), domain.ErrPersistence, err)
	}
	return nil
}

// ReadJSON decodes path into v. A missing file yields domain.ErrNotFound.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("handoff: read %s: %w", filepath.Base(path), domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("handoff: read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("handoff: decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// SnapshotFile is the detector's status snapshot on disk.
type SnapshotFile struct {
	path string
}

// NewSnapshotFile returns a SnapshotFile stored at path.
func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

// Path returns the file location.
func (s *SnapshotFile) Path() string { return s.path }

// Load reads the snapshot. It returns domain.ErrNotFound when the detector
// has not written one yet.
func (s *SnapshotFile) Load() (domain.ReportState, error) {
	var st domain.ReportState
	if err := ReadJSON(s.path, &st); err != nil {
		return domain.ReportState{}, err
	}
	return st, nil
}

// Save atomically replaces the snapshot.
func (s *SnapshotFile) Save(st domain.ReportState) error {
	if st.Opportunities == nil {
		st.Opportunities = []domain.Opportunity{}
	}
	return WriteJSON(s.path, st)
}

// CursorFile is the notifier's delivery cursor on disk.
type CursorFile struct {
	path string
}

// NewCursorFile returns a CursorFile stored at path.
func NewCursorFile(path string) *CursorFile {
	return &CursorFile{path: path}
}

// Load reads the cursor. A missing file is a fresh cursor, not an error.
func (c *CursorFile) Load() (domain.Cursor, error) {
	var cur domain.Cursor
	err := ReadJSON(c.path, &cur)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Cursor{}, nil
	}
	if err != nil {
		return domain.Cursor{}, err
	}
	return cur, nil
}

// Save atomically replaces the cursor.
func (c *CursorFile) Save(cur domain.Cursor) error {
	return WriteJSON(c.path, cur)
}
