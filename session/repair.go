package session

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hyakvnc/hyakvnc/pkg/models"
)

// RepairResult reports what a repair did to one session.
type RepairResult struct {
	Session  *models.Session
	Repaired bool
	// Reason explains a no-op repair.
	Reason string
	Err    error
}

// Repair restores reachability for a session whose allocation still runs but
// whose connection path died. The endpoint is re-read from the capture file
// in case the server restarted, and the path is reopened on a freshly
// allocated local port; the old port is gone for good, so the user must
// reconnect their viewer to the new one.
//
// A session whose allocation is not running cannot be repaired and is
// reported as a no-op; stop is the only move left.
func (m *Manager) Repair(ctx context.Context, sess *models.Session) (*RepairResult, error) {
	release, err := m.store.Lock(sess.JobID)
	if err != nil {
		return nil, err
	}
	defer release()

	alloc, err := m.refreshAllocation(ctx, sess)
	if err != nil {
		return nil, err
	}
	if alloc == nil || !alloc.Running() {
		return &RepairResult{Session: sess, Reason: "allocation is not running"}, nil
	}
	sess.Allocation = *alloc

	if sess.Endpoint.Matches(sess.ConnectionPath) && m.tunnels.Probe(sess.ConnectionPath) {
		return &RepairResult{Session: sess, Reason: "session is already reachable"}, nil
	}

	if sess.ConnectionPath != nil {
		if err := m.tunnels.Close(sess.ConnectionPath); err != nil {
			m.logger.WithField("job_id", sess.JobID).WithError(err).Warn("Failed to close stale connection path")
		}
		sess.ConnectionPath = nil
	}

	endpoint, err := m.discoverEndpoint(ctx, sess)
	if err != nil {
		return nil, err
	}
	sess.Endpoint = endpoint
	sess.State = models.StateEndpointDiscovered
	if err := m.store.Save(sess); err != nil {
		return nil, err
	}

	path, err := m.openPath(ctx, sess)
	if err != nil {
		return nil, err
	}
	sess.ConnectionPath = path
	sess.State = models.StateReachable
	if err := m.store.Save(sess); err != nil {
		return nil, err
	}

	m.logger.WithField("job_id", sess.JobID).WithField("local", path.LocalAddr()).Info("Session repaired")
	return &RepairResult{Session: sess, Repaired: true}, nil
}

// RepairAll repairs every persisted session concurrently, bounded by the
// configured worker count.
func (m *Manager) RepairAll(ctx context.Context) ([]*RepairResult, error) {
	sessions, err := m.store.List()
	if err != nil {
		return nil, err
	}

	results := make([]*RepairResult, len(sessions))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(m.cfg.Workers)
	for i, sess := range sessions {
		i, sess := i, sess
		group.Go(func() error {
			result, err := m.Repair(ctx, sess)
			if err != nil {
				result = &RepairResult{Session: sess, Err: err}
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
