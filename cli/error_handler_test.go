package cli

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyakvnc/hyakvnc/errors"
)

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	defer func() { os.Stderr = orig }()

	fn()

	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestHandleSubmitTimeoutNamesJob(t *testing.T) {
	h := NewErrorHandler(false)
	out := captureStderr(t, func() {
		h.Handle(errors.SubmitTimeout("1001", 2*time.Minute))
	})
	assert.Contains(t, out, "Job 1001 did not start within 2m0s.")
	assert.Contains(t, out, "hyakvnc repair")
}

func TestHandleStoreCorruptionNamesJob(t *testing.T) {
	h := NewErrorHandler(false)
	out := captureStderr(t, func() {
		h.Handle(errors.StoreCorruption("1001", "yaml: control characters are not allowed"))
	})
	assert.Contains(t, out, "1001")
	assert.Contains(t, out, "squeue --me")
}

func TestHandleMissingPasswordPointsAtPasswd(t *testing.T) {
	h := NewErrorHandler(false)
	out := captureStderr(t, func() {
		h.Handle(errors.PasswordFileMissing("/home/u/.vnc/passwd"))
	})
	assert.Contains(t, out, "hyakvnc passwd")
}

func TestHandleSessionNotFoundGuidance(t *testing.T) {
	h := NewErrorHandler(false)
	out := captureStderr(t, func() {
		h.Handle(errors.SessionNotFound("2002"))
	})
	assert.Contains(t, out, "hyakvnc status")
}

func TestHandleReturnsErrorUnchanged(t *testing.T) {
	h := NewErrorHandler(false)
	err := errors.JobVanished("1001")
	out := captureStderr(t, func() {
		got := h.Handle(err)
		assert.Equal(t, err, got)
	})
	assert.Contains(t, out, "hyakvnc stop")
}

func TestExitCodeMapping(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitNoSessions, ExitCode(errors.SessionNotFound("1")))
	assert.Equal(t, ExitNoSessions, ExitCode(errors.AmbiguousSelection(3)))
	assert.Equal(t, ExitToolUnavailable, ExitCode(errors.CommandNotFound("sbatch")))
	assert.Equal(t, ExitFailure, ExitCode(errors.JobVanished("1")))
}
