package session

import (
	"context"

	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/pkg/models"
)

// Show returns connection details for a session, repairing it first when the
// allocation runs but the path is down. The returned session carries the
// path the user should actually connect to, which may differ from what was
// recorded before the call.
func (m *Manager) Show(ctx context.Context, sess *models.Session) (*models.Session, error) {
	alloc, err := m.refreshAllocation(ctx, sess)
	if err != nil {
		return nil, err
	}
	if alloc == nil || !alloc.Running() {
		return nil, errors.New(errors.ErrCodeJobVanished, "allocation is not running; the session cannot be connected to").
			WithDetail("job_id", sess.JobID)
	}
	sess.Allocation = *alloc

	if !sess.Endpoint.Matches(sess.ConnectionPath) || !m.tunnels.Probe(sess.ConnectionPath) {
		result, err := m.Repair(ctx, sess)
		if err != nil {
			return nil, err
		}
		sess = result.Session
	}
	if sess.ConnectionPath == nil {
		return nil, errors.New(errors.ErrCodeInternal, "session has no connection path after repair")
	}
	return sess, nil
}
