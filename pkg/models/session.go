// Package models holds the session types shared by the store and the
// lifecycle manager.
package models

import (
	"fmt"
	"time"

	"github.com/hyakvnc/hyakvnc/slurm"
	"github.com/hyakvnc/hyakvnc/tunnel"
)

// SessionState is the persisted lifecycle position of a session. BROKEN is
// deliberately absent: it is a condition computed at observation time, never
// stored.
type SessionState string

const (
	StateNew                SessionState = "NEW"
	StateSubmitted          SessionState = "SUBMITTED"
	StateAllocated          SessionState = "ALLOCATED"
	StateEndpointDiscovered SessionState = "ENDPOINT_DISCOVERED"
	StateReachable          SessionState = "REACHABLE"
	StateStopping           SessionState = "STOPPING"
	StateTerminated         SessionState = "TERMINATED"
)

// Endpoint is where the VNC server listens inside the allocation: either a
// host/port pair or a filesystem socket local to the compute node.
type Endpoint struct {
	Host   string `yaml:"host,omitempty" json:"host,omitempty"`
	Port   int    `yaml:"port,omitempty" json:"port,omitempty"`
	Socket string `yaml:"socket,omitempty" json:"socket,omitempty"`
}

// String renders the endpoint for logs and instructions.
func (e *Endpoint) String() string {
	if e == nil {
		return "<none>"
	}
	if e.Socket != "" {
		return e.Socket
	}
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Matches reports whether a connection path terminates at this endpoint.
func (e *Endpoint) Matches(path *tunnel.Path) bool {
	if e == nil || path == nil {
		return false
	}
	if e.Socket != "" {
		return path.RemoteSocket == e.Socket
	}
	return path.RemotePort == e.Port
}

// Session is the unit the user manages: one VNC session bound to exactly one
// scheduler job.
type Session struct {
	JobID          string           `yaml:"job_id" json:"job_id"`
	Name           string           `yaml:"name" json:"name"`
	State          SessionState     `yaml:"state" json:"state"`
	Allocation     slurm.Allocation `yaml:"allocation" json:"allocation"`
	ContainerImage string           `yaml:"container_image" json:"container_image"`
	Endpoint       *Endpoint        `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	ConnectionPath *tunnel.Path     `yaml:"connection_path,omitempty" json:"connection_path,omitempty"`
	CreatedAt      time.Time        `yaml:"created_at" json:"created_at"`

	// Directory is the session's private state directory. It is derived from
	// the store root and job id on load, not persisted.
	Directory string `yaml:"-" json:"directory,omitempty"`
}
