package errors

import (
	"fmt"
	"os/exec"
	"time"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *SessionError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *SessionError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// SchedulerRejected creates an error for a submission the scheduler refused.
// The caller must not assume a job exists after seeing this error.
func SchedulerRejected(reason string, err error) *SessionError {
	return Wrap(err, ErrCodeSchedulerRejected, fmt.Sprintf("scheduler rejected submission: %s", reason))
}

// JobVanished creates an error for a job the scheduler no longer knows about
func JobVanished(jobID string) *SessionError {
	return New(ErrCodeJobVanished, fmt.Sprintf("job %s is no longer known to the scheduler", jobID)).
		WithDetail("job_id", jobID)
}

// SubmitTimeout creates an error for a job that did not start within the bound
func SubmitTimeout(jobID string, timeout time.Duration) *SessionError {
	return New(ErrCodeSubmitTimeout,
		fmt.Sprintf("job %s did not start running within %s", jobID, timeout)).
		WithDetail("job_id", jobID).
		WithDetail("timeout", timeout.String())
}

// ContainerLaunchFailed creates an error for a failed in-container app launch
func ContainerLaunchFailed(app, node string, err error) *SessionError {
	return Wrap(err, ErrCodeContainerLaunchFailed,
		fmt.Sprintf("failed to launch app '%s' on node %s", app, node)).
		WithDetail("app", app).
		WithDetail("node", node)
}

// PasswordFileMissing creates an error for a missing VNC password file
func PasswordFileMissing(path string) *SessionError {
	return New(ErrCodePasswordFileMissing,
		fmt.Sprintf("no VNC password file at %s", path)).
		WithDetail("path", path)
}

// EndpointDiscoveryTimeout creates an error for an endpoint that never appeared
func EndpointDiscoveryTimeout(jobID string, timeout time.Duration) *SessionError {
	return New(ErrCodeEndpointDiscoveryTimeout,
		fmt.Sprintf("no VNC endpoint discovered for job %s within %s", jobID, timeout)).
		WithDetail("job_id", jobID).
		WithDetail("timeout", timeout.String())
}

// PathEstablishFailed creates an error for a forward that never accepted a connection
func PathEstablishFailed(local string, attempts int, err error) *SessionError {
	return Wrap(err, ErrCodePathEstablishFailed,
		fmt.Sprintf("forwarded path on %s did not accept a connection after %d attempts", local, attempts)).
		WithDetail("local", local).
		WithDetail("attempts", attempts)
}

// SessionNotFound creates an error for an unknown session selector
func SessionNotFound(jobID string) *SessionError {
	return New(ErrCodeSessionNotFound, fmt.Sprintf("no session found for job %s", jobID)).
		WithDetail("job_id", jobID)
}

// AmbiguousSelection creates an error when a selector matches several sessions
func AmbiguousSelection(count int) *SessionError {
	return New(ErrCodeAmbiguousSelection,
		fmt.Sprintf("%d sessions match; pass a job id or --all", count)).
		WithDetail("count", count)
}

// StoreCorruption creates an error for a record/directory mismatch
func StoreCorruption(jobID, reason string) *SessionError {
	return New(ErrCodeStoreCorruption,
		fmt.Sprintf("session store corrupt for job %s: %s", jobID, reason)).
		WithDetail("job_id", jobID)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *SessionError {
	sessErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		sessErr = sessErr.WithDetail("exit_code", exitErr.ExitCode())
	}

	return sessErr
}

// CommandNotFound creates an error for a missing external tool
func CommandNotFound(cmd string) *SessionError {
	return New(ErrCodeCommandNotFound, fmt.Sprintf("required command not found: %s", cmd)).
		WithDetail("command", cmd)
}
