// Package session orchestrates the VNC session lifecycle: job submission,
// container app launch, endpoint discovery, connection path management, and
// reconciliation between persisted records and observed scheduler state.
package session

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/hyakvnc/hyakvnc/apptainer"
	"github.com/hyakvnc/hyakvnc/config"
	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/logging"
	"github.com/hyakvnc/hyakvnc/pkg/models"
	"github.com/hyakvnc/hyakvnc/remote"
	"github.com/hyakvnc/hyakvnc/slurm"
	"github.com/hyakvnc/hyakvnc/store"
	"github.com/hyakvnc/hyakvnc/tunnel"
)

// Chooser resolves an ambiguous selector by picking one session from
// candidates, typically by prompting the user. Returning an error aborts the
// operation.
type Chooser func(candidates []*models.Session) (*models.Session, error)

// Manager ties the scheduler, container launcher, tunnel manager, and session
// store together behind the lifecycle operations.
type Manager struct {
	cfg      *config.Config
	slurm    slurm.Client
	launcher apptainer.Launcher
	tunnels  tunnel.Manager
	runner   remote.Runner
	store    *store.Store
	logger   *logrus.Entry

	// Choose, when set, resolves an empty selector that matches more than one
	// session. When nil such a selector is an error.
	Choose Chooser
}

// NewManager wires a manager from its collaborators.
func NewManager(cfg *config.Config, sl slurm.Client, launcher apptainer.Launcher, tunnels tunnel.Manager, runner remote.Runner, st *store.Store) *Manager {
	return &Manager{
		cfg:      cfg,
		slurm:    sl,
		launcher: launcher,
		tunnels:  tunnels,
		runner:   runner,
		store:    st,
		logger:   logging.NewLogger("session"),
	}
}

// Store exposes the underlying session store, mainly for commands that need
// orphan listings.
func (m *Manager) Store() *store.Store {
	return m.store
}

// List returns all persisted sessions.
func (m *Manager) List() ([]*models.Session, error) {
	return m.store.List()
}

// Resolve maps a selector to exactly one session. The selector is matched
// against job ids first, then session names. An empty selector resolves to
// the only session when exactly one exists; with several it defers to the
// Choose hook or fails as ambiguous.
func (m *Manager) Resolve(selector string) (*models.Session, error) {
	if selector != "" {
		if sess, err := m.store.Get(selector); err == nil {
			return sess, nil
		} else if errors.GetCode(err) == errors.ErrCodeStoreCorruption {
			return nil, err
		}
		sessions, err := m.store.List()
		if err != nil {
			return nil, err
		}
		for _, sess := range sessions {
			if sess.Name == selector {
				return sess, nil
			}
		}
		return nil, errors.SessionNotFound(selector)
	}

	sessions, err := m.store.List()
	if err != nil {
		return nil, err
	}
	switch len(sessions) {
	case 0:
		return nil, errors.SessionNotFound("")
	case 1:
		return sessions[0], nil
	default:
		if m.Choose != nil {
			return m.Choose(sessions)
		}
		return nil, errors.AmbiguousSelection(len(sessions))
	}
}

// refreshAllocation queries the scheduler for the session's job. A nil
// allocation with a nil error means the scheduler no longer knows the job.
func (m *Manager) refreshAllocation(ctx context.Context, sess *models.Session) (*slurm.Allocation, error) {
	allocs, err := m.slurm.Query(ctx, sess.JobID)
	if err != nil {
		return nil, err
	}
	for i := range allocs {
		if allocs[i].JobID == sess.JobID {
			return &allocs[i], nil
		}
	}
	return nil, nil
}
