package errors

import (
	"fmt"
	"testing"
	"time"
)

func TestSessionError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeSessionNotFound, "session not found")
	if err.Code != ErrCodeSessionNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeSessionNotFound, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeCommandFailed, "command failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeCommandFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeSessionNotFound) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("job_id", "1001").WithDetail("port", 5901)
	if detailed.Details["job_id"] != "1001" {
		t.Error("WithDetail should add details")
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *SessionError
		code ErrorCode
	}{
		{"SchedulerRejected", SchedulerRejected("bad partition", fmt.Errorf("exit 1")), ErrCodeSchedulerRejected},
		{"JobVanished", JobVanished("1001"), ErrCodeJobVanished},
		{"SubmitTimeout", SubmitTimeout("1001", 2*time.Minute), ErrCodeSubmitTimeout},
		{"ContainerLaunchFailed", ContainerLaunchFailed("vnc", "n001", fmt.Errorf("exit 255")), ErrCodeContainerLaunchFailed},
		{"EndpointDiscoveryTimeout", EndpointDiscoveryTimeout("1001", time.Minute), ErrCodeEndpointDiscoveryTimeout},
		{"PathEstablishFailed", PathEstablishFailed("localhost:5901", 5, fmt.Errorf("refused")), ErrCodePathEstablishFailed},
		{"SessionNotFound", SessionNotFound("1001"), ErrCodeSessionNotFound},
		{"AmbiguousSelection", AmbiguousSelection(3), ErrCodeAmbiguousSelection},
		{"StoreCorruption", StoreCorruption("1001", "directory without record"), ErrCodeStoreCorruption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.Error() == "" {
				t.Error("error message should not be empty")
			}
		})
	}
}

func TestTimeoutErrorsNameTheBound(t *testing.T) {
	// Timeouts must state the configured bound that was exceeded so the
	// user can decide whether to raise it and retry.
	err := SubmitTimeout("1001", 90*time.Second)
	if err.Details["timeout"] != "1m30s" {
		t.Errorf("expected timeout detail, got %v", err.Details["timeout"])
	}

	disc := EndpointDiscoveryTimeout("1001", 45*time.Second)
	if disc.Details["timeout"] != "45s" {
		t.Errorf("expected timeout detail, got %v", disc.Details["timeout"])
	}
}

func TestGetCodeUnwrapsStandardWrapping(t *testing.T) {
	inner := JobVanished("2002")
	outer := fmt.Errorf("while reconciling: %w", inner)

	if GetCode(outer) != ErrCodeJobVanished {
		t.Errorf("expected JOB_VANISHED through fmt wrapping, got %s", GetCode(outer))
	}
	if !Is(outer, ErrCodeJobVanished) {
		t.Error("Is should see through fmt wrapping")
	}
}
