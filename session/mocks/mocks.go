// Package mocks provides function-field test doubles for the session
// manager's collaborators. Each method delegates to the corresponding field
// when set and returns a zero value otherwise, so tests only stub what they
// exercise.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/hyakvnc/hyakvnc/apptainer"
	"github.com/hyakvnc/hyakvnc/slurm"
	"github.com/hyakvnc/hyakvnc/tunnel"
)

// SlurmClient is a mock slurm.Client.
type SlurmClient struct {
	mu sync.Mutex

	SubmitFunc           func(ctx context.Context, spec slurm.JobSpec) (string, error)
	WaitUntilRunningFunc func(ctx context.Context, jobID string, timeout time.Duration) (*slurm.Allocation, error)
	QueryFunc            func(ctx context.Context, jobID string) ([]slurm.Allocation, error)
	CancelFunc           func(ctx context.Context, jobID string) error

	SubmittedSpecs []slurm.JobSpec
	CancelledJobs  []string
}

func (c *SlurmClient) Submit(ctx context.Context, spec slurm.JobSpec) (string, error) {
	c.mu.Lock()
	c.SubmittedSpecs = append(c.SubmittedSpecs, spec)
	c.mu.Unlock()
	if c.SubmitFunc != nil {
		return c.SubmitFunc(ctx, spec)
	}
	return "", nil
}

func (c *SlurmClient) WaitUntilRunning(ctx context.Context, jobID string, timeout time.Duration) (*slurm.Allocation, error) {
	if c.WaitUntilRunningFunc != nil {
		return c.WaitUntilRunningFunc(ctx, jobID, timeout)
	}
	return &slurm.Allocation{JobID: jobID, State: slurm.StateRunning}, nil
}

func (c *SlurmClient) Query(ctx context.Context, jobID string) ([]slurm.Allocation, error) {
	if c.QueryFunc != nil {
		return c.QueryFunc(ctx, jobID)
	}
	return nil, nil
}

func (c *SlurmClient) Cancel(ctx context.Context, jobID string) error {
	c.mu.Lock()
	c.CancelledJobs = append(c.CancelledJobs, jobID)
	c.mu.Unlock()
	if c.CancelFunc != nil {
		return c.CancelFunc(ctx, jobID)
	}
	return nil
}

// Cancelled returns a copy of the cancelled job ids.
func (c *SlurmClient) Cancelled() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.CancelledJobs...)
}

// Launcher is a mock apptainer.Launcher.
type Launcher struct {
	mu sync.Mutex

	RunAppFunc func(ctx context.Context, spec apptainer.AppSpec) error

	LaunchedApps []apptainer.AppSpec
}

func (l *Launcher) RunApp(ctx context.Context, spec apptainer.AppSpec) error {
	l.mu.Lock()
	l.LaunchedApps = append(l.LaunchedApps, spec)
	l.mu.Unlock()
	if l.RunAppFunc != nil {
		return l.RunAppFunc(ctx, spec)
	}
	return nil
}

// Launched returns a copy of the launched app specs.
func (l *Launcher) Launched() []apptainer.AppSpec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]apptainer.AppSpec(nil), l.LaunchedApps...)
}

// TunnelManager is a mock tunnel.Manager.
type TunnelManager struct {
	mu sync.Mutex

	OpenFunc  func(ctx context.Context, spec tunnel.OpenSpec) (*tunnel.Path, error)
	ProbeFunc func(path *tunnel.Path) bool
	CloseFunc func(path *tunnel.Path) error

	OpenedSpecs []tunnel.OpenSpec
	ClosedPaths []*tunnel.Path
}

func (m *TunnelManager) Open(ctx context.Context, spec tunnel.OpenSpec) (*tunnel.Path, error) {
	m.mu.Lock()
	m.OpenedSpecs = append(m.OpenedSpecs, spec)
	m.mu.Unlock()
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, spec)
	}
	return &tunnel.Path{
		LocalPort:    5901,
		Hop:          spec.Hop,
		RemotePort:   spec.RemotePort,
		RemoteSocket: spec.RemoteSocket,
		PID:          1,
	}, nil
}

func (m *TunnelManager) Probe(path *tunnel.Path) bool {
	if m.ProbeFunc != nil {
		return m.ProbeFunc(path)
	}
	return false
}

func (m *TunnelManager) Close(path *tunnel.Path) error {
	m.mu.Lock()
	m.ClosedPaths = append(m.ClosedPaths, path)
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc(path)
	}
	return nil
}

// Closed returns a copy of the closed paths.
func (m *TunnelManager) Closed() []*tunnel.Path {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*tunnel.Path(nil), m.ClosedPaths...)
}

// Runner is a mock remote.Runner.
type Runner struct {
	RunFunc func(ctx context.Context, node string, cmd string) ([]byte, error)
}

func (r *Runner) Run(ctx context.Context, node string, cmd string) ([]byte, error) {
	if r.RunFunc != nil {
		return r.RunFunc(ctx, node, cmd)
	}
	return nil, nil
}
