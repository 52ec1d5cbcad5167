package handoff

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// PIDLock keeps a second notifier pass from running while one is in
// progress when no shared lock service is configured. Exclusion comes from
// an OS lock on the file, which the kernel drops when the holder exits; the
// PID written into the file is only for operators.
type PIDLock struct {
	path string
	lock *flock.Flock
}

// NewPIDLock returns a lock backed by the file at path.
func NewPIDLock(path string) *PIDLock {
	return &PIDLock{path: path, lock: flock.New(path)}
}

// Acquire takes the lock without waiting. It returns domain.ErrLockHeld when
// another pass holds it.
func (p *PIDLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("handoff: create lock dir: %w", err)
	}
	ok, err := p.lock.TryLock()
	if err != nil {
		return fmt.Errorf("handoff: lock %s: %w", p.path, err)
	}
	if !ok {
		return fmt.Errorf("handoff: notifier already running (%s): %w", p.path, domain.ErrLockHeld)
	}
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = p.lock.Unlock()
		return fmt.Errorf("handoff: write pid: %w", err)
	}
	return nil
}

// Release clears the recorded PID and drops the lock. The file itself stays
// so every pass locks the same inode.
func (p *PIDLock) Release() error {
	if !p.lock.Locked() {
		return nil
	}
	_ = os.Truncate(p.path, 0)
	if err := p.lock.Unlock(); err != nil {
		return fmt.Errorf("handoff: unlock %s: %w", p.path, err)
	}
	return nil
}
