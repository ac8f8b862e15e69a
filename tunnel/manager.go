// Package tunnel supervises forwarded network paths from the login node to
// VNC endpoints inside compute allocations.
//
// The underlying transport is an external remote-login tool invoked as a
// subprocess, so a path is modeled as a supervised background process with
// explicit open/probe/close, not as a protocol object.
package tunnel

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/hyakvnc/hyakvnc/command"
	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/pkg/process"
	"github.com/sirupsen/logrus"
)

// Path is one active forwarded route. It is persisted in the session record
// so liveness can be probed and the path torn down across process restarts.
type Path struct {
	// LocalPort is the listening port on the login node.
	LocalPort int `yaml:"local_port" json:"local_port"`
	// Hop is the intermediate host the forward runs through (the compute node).
	Hop string `yaml:"hop" json:"hop"`
	// RemotePort is set for tcp endpoints, RemoteSocket for unix sockets;
	// exactly one of the two is meaningful.
	RemotePort   int    `yaml:"remote_port,omitempty" json:"remote_port,omitempty"`
	RemoteSocket string `yaml:"remote_socket,omitempty" json:"remote_socket,omitempty"`
	// PID identifies the process maintaining the path.
	PID int `yaml:"pid" json:"pid"`
}

// LocalAddr returns the local dial address of the path.
func (p *Path) LocalAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", p.LocalPort)
}

// RemoteString renders the remote end for display and comparison.
func (p *Path) RemoteString() string {
	if p.RemoteSocket != "" {
		return p.RemoteSocket
	}
	return fmt.Sprintf("127.0.0.1:%d", p.RemotePort)
}

// OpenSpec describes a forward to establish.
type OpenSpec struct {
	// LocalPort, when zero, is allocated as the lowest free port from the
	// manager's base port.
	LocalPort    int
	Hop          string
	RemotePort   int
	RemoteSocket string
}

// Manager opens, probes, and closes forwarded paths.
type Manager interface {
	Open(ctx context.Context, spec OpenSpec) (*Path, error)
	Probe(path *Path) bool
	Close(path *Path) error
}

// SSHManager supervises ssh -N -L subprocesses.
type SSHManager struct {
	exec           command.Executor
	binary         string
	basePort       int
	verifyAttempts int
	verifyDelay    time.Duration
	logger         *logrus.Entry
}

// NewSSHManager returns a Manager forwarding through the given binary
// (normally ssh). verifyAttempts and verifyDelay bound the local liveness
// check after the subprocess starts; these are local failures, not
// scheduler-scale waits.
func NewSSHManager(exec command.Executor, binary string, basePort, verifyAttempts int, verifyDelay time.Duration, logger *logrus.Entry) *SSHManager {
	if binary == "" {
		binary = "ssh"
	}
	if basePort <= 0 {
		basePort = 5900
	}
	if verifyAttempts <= 0 {
		verifyAttempts = 10
	}
	if verifyDelay <= 0 {
		verifyDelay = time.Second
	}
	return &SSHManager{
		exec:           exec,
		binary:         binary,
		basePort:       basePort,
		verifyAttempts: verifyAttempts,
		verifyDelay:    verifyDelay,
		logger:         logger,
	}
}

// Open starts the forwarding subprocess and returns once the local endpoint
// has accepted a connection attempt.
func (m *SSHManager) Open(ctx context.Context, spec OpenSpec) (*Path, error) {
	localPort := spec.LocalPort
	if localPort == 0 {
		port, err := FreePort(m.basePort)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodePathEstablishFailed, "no local port available")
		}
		localPort = port
	}

	var forward string
	if spec.RemoteSocket != "" {
		forward = fmt.Sprintf("%d:%s", localPort, spec.RemoteSocket)
	} else {
		forward = fmt.Sprintf("%d:127.0.0.1:%d", localPort, spec.RemotePort)
	}

	// The subprocess is detached into its own session so it outlives this
	// process; it is found again later through the persisted PID.
	cmd := m.exec.Command(m.binary,
		"-o", "BatchMode=yes",
		"-o", "ExitOnForwardFailure=yes",
		"-N", "-L", forward, spec.Hop)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	m.logger.WithFields(logrus.Fields{"forward": forward, "hop": spec.Hop}).Debug("Starting forward process")

	if err := cmd.Start(); err != nil {
		return nil, errors.PathEstablishFailed(fmt.Sprintf("127.0.0.1:%d", localPort), 0, err)
	}
	pid := cmd.Process.Pid
	// Reap the child if it dies while we are still around.
	go func() { _ = cmd.Wait() }()

	path := &Path{
		LocalPort:    localPort,
		Hop:          spec.Hop,
		RemotePort:   spec.RemotePort,
		RemoteSocket: spec.RemoteSocket,
		PID:          pid,
	}

	if err := m.verify(ctx, path); err != nil {
		_ = m.Close(path)
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{"local": path.LocalAddr(), "remote": path.RemoteString(), "pid": pid}).
		Info("Connection path established")
	return path, nil
}

// verify waits until the local endpoint accepts a connection, within the
// fixed retry budget.
func (m *SSHManager) verify(ctx context.Context, path *Path) error {
	var lastErr error
	for attempt := 0; attempt < m.verifyAttempts; attempt++ {
		if !process.IsProcessAlive(path.PID) {
			return errors.PathEstablishFailed(path.LocalAddr(), attempt,
				fmt.Errorf("forward process %d exited", path.PID))
		}
		conn, err := net.DialTimeout("tcp", path.LocalAddr(), m.verifyDelay)
		if err == nil {
			conn.Close()
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.verifyDelay):
		}
	}
	return errors.PathEstablishFailed(path.LocalAddr(), m.verifyAttempts, lastErr)
}

// Probe reports whether the path is alive: the maintaining process must be
// running and the local endpoint must accept connections. Both must hold; a
// recorded path is never assumed alive.
func (m *SSHManager) Probe(path *Path) bool {
	if path == nil || !process.IsProcessAlive(path.PID) {
		return false
	}
	conn, err := net.DialTimeout("tcp", path.LocalAddr(), m.verifyDelay)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Close terminates the maintaining process. Closing an already-dead path is
// not an error.
func (m *SSHManager) Close(path *Path) error {
	if path == nil || path.PID <= 0 {
		return nil
	}
	if err := process.Terminate(path.PID); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal,
			fmt.Sprintf("failed to terminate forward process %d", path.PID))
	}
	m.logger.WithField("pid", path.PID).Debug("Connection path closed")
	return nil
}
