package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/pkg/process"
)

// Lock takes the per-session advisory lock by writing this process's PID to
// the session's lock file. It guards against two invocations mutating the
// same session at once, for example a stop racing a repair. A lock file whose
// PID is dead is stale and gets replaced.
//
// The returned release function removes the lock file and is safe to call
// more than once.
func (s *Store) Lock(jobID string) (func(), error) {
	dir := s.Dir(jobID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create session directory")
	}
	path := filepath.Join(dir, lockFile)

	if content, err := os.ReadFile(path); err == nil {
		pidStr := strings.TrimSpace(string(content))
		if pid, err := strconv.Atoi(pidStr); err == nil {
			if process.IsProcessAlive(pid) {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					fmt.Sprintf("session %s is busy: locked by process %d", jobID, pid))
			}
			_ = os.Remove(path)
		}
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to write session lock")
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		_ = os.Remove(path)
	}
	return release, nil
}
