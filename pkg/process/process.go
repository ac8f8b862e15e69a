// Package process checks on and stops the detached ssh forwards hyakvnc
// leaves behind. Their PIDs are persisted in session records, so by the time
// anyone asks, the process may be long gone or belong to another user's
// session on a shared login node.
package process

import (
	"os"
	"syscall"
)

// IsProcessAlive reports whether a forward recorded under the given PID is
// still running.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	// os.FindProcess never fails on Unix, even for dead PIDs.
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 probes for existence without delivering anything. ESRCH means
	// the forward is gone; EPERM means the PID was recycled by another user's
	// process, which still counts as "not ours to report dead" here because
	// the caller will verify the local port separately.
	err = process.Signal(syscall.Signal(0))

	return err == nil || os.IsPermission(err)
}

// Terminate sends SIGTERM to the forward with the given PID. A forward that
// already exited, for example when its login-node session ended, is not an
// error.
func Terminate(pid int) error {
	if pid <= 0 {
		return nil
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		if err == syscall.ESRCH || os.IsNotExist(err) {
			return nil
		}
		// os.Process.Signal wraps errors; treat "already finished" as done.
		if err.Error() == "os: process already finished" {
			return nil
		}
		return err
	}
	return nil
}
