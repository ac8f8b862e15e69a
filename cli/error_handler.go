package cli

import (
	"fmt"
	"os"

	"github.com/hyakvnc/hyakvnc/errors"
)

// Exit codes. They are part of the scripting surface: wrappers key on them.
const (
	ExitOK = 0
	// ExitFailure covers any failed operation.
	ExitFailure = 1
	// ExitNoSessions means the selector matched nothing.
	ExitNoSessions = 2
	// ExitToolUnavailable means a required external tool is missing, most
	// likely because the command ran off the login node.
	ExitToolUnavailable = 3
)

// ErrorHandler provides user-facing error messages with recovery guidance.
type ErrorHandler struct {
	Verbose bool
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{Verbose: verbose}
}

// Handle prints a message tailored to the error's code and returns the error
// unchanged for exit-code mapping.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeSessionNotFound:
		fmt.Fprintf(os.Stderr, "No session matched. Run 'hyakvnc status' to list sessions.\n")

	case errors.ErrCodeAmbiguousSelection:
		fmt.Fprintf(os.Stderr, "Several sessions exist; name one by job id or session name.\n")
		fmt.Fprintf(os.Stderr, "Run 'hyakvnc status' to list them.\n")

	case errors.ErrCodeCommandNotFound:
		if sessErr, ok := err.(*errors.SessionError); ok {
			fmt.Fprintf(os.Stderr, "Required command %q was not found.\n", sessErr.Details["command"])
		}
		fmt.Fprintf(os.Stderr, "hyakvnc must run on a login node with the Slurm tools on PATH.\n")

	case errors.ErrCodePasswordFileMissing:
		fmt.Fprintf(os.Stderr, "No VNC password is set, and the server will not start without one.\n")
		fmt.Fprintf(os.Stderr, "Run 'hyakvnc passwd' first.\n")

	case errors.ErrCodeSubmitTimeout:
		if sessErr, ok := err.(*errors.SessionError); ok {
			fmt.Fprintf(os.Stderr, "Job %v did not start within %v.\n",
				sessErr.Details["job_id"], sessErr.Details["timeout"])
		}
		fmt.Fprintf(os.Stderr, "The job is still queued; 'hyakvnc status' will show it once it runs,\n")
		fmt.Fprintf(os.Stderr, "and 'hyakvnc repair' can finish the setup. 'hyakvnc stop' releases it.\n")

	case errors.ErrCodeEndpointDiscoveryTimeout:
		fmt.Fprintf(os.Stderr, "The VNC server did not announce itself in time.\n")
		if sessErr, ok := err.(*errors.SessionError); ok {
			fmt.Fprintf(os.Stderr, "Check the capture file %v for errors, then 'hyakvnc repair' or 'hyakvnc stop'.\n",
				sessErr.Details["capture_file"])
		}

	case errors.ErrCodeJobVanished:
		fmt.Fprintf(os.Stderr, "The scheduler no longer reports the job; the allocation is gone.\n")
		fmt.Fprintf(os.Stderr, "Run 'hyakvnc stop' to clean up the session record.\n")

	case errors.ErrCodeStoreCorruption:
		if sessErr, ok := err.(*errors.SessionError); ok {
			fmt.Fprintf(os.Stderr, "Session record for job %v is unreadable: %v\n",
				sessErr.Details["job_id"], sessErr.Message)
		}
		fmt.Fprintf(os.Stderr, "A job may still be running under it. Check 'squeue --me' before removing the directory.\n")

	case errors.ErrCodeConfigNotFound, errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)

	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	if h.Verbose {
		if sessErr, ok := err.(*errors.SessionError); ok {
			fmt.Fprintf(os.Stderr, "\nError details:\n%s\n", sessErr.ToJSON())
		}
	}
	return err
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeSessionNotFound, errors.ErrCodeAmbiguousSelection:
		return ExitNoSessions
	case errors.ErrCodeCommandNotFound:
		return ExitToolUnavailable
	default:
		return ExitFailure
	}
}
