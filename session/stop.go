package session

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hyakvnc/hyakvnc/apptainer"
	"github.com/hyakvnc/hyakvnc/pkg/models"
)

// StopOptions influence session teardown.
type StopOptions struct {
	// NoCancel tears down the local side of the session but leaves the
	// scheduler job running.
	NoCancel bool
}

// StopResult is the outcome of stopping one session.
type StopResult struct {
	JobID string
	Name  string
	Err   error
}

// Stop tears a session down: close the connection path, run the cleanup app
// inside the allocation, cancel the job, and remove the record. Teardown is
// ordered so the user-facing surface disappears first and the record last;
// a failure partway leaves the record in place for a retry.
//
// The cleanup app is best effort. A node that already lost the job rejects
// the ssh, and cancellation makes the point moot.
func (m *Manager) Stop(ctx context.Context, sess *models.Session, opts StopOptions) error {
	release, err := m.store.Lock(sess.JobID)
	if err != nil {
		return err
	}
	defer release()

	sess.State = models.StateStopping
	if err := m.store.Save(sess); err != nil {
		return err
	}

	if sess.ConnectionPath != nil {
		if err := m.tunnels.Close(sess.ConnectionPath); err != nil {
			m.logger.WithField("job_id", sess.JobID).WithError(err).Warn("Failed to close connection path")
		}
		sess.ConnectionPath = nil
	}

	alloc, err := m.refreshAllocation(ctx, sess)
	if err != nil {
		m.logger.WithField("job_id", sess.JobID).WithError(err).Warn("Scheduler query failed during stop")
	}
	if alloc != nil && alloc.Running() && m.cfg.Container.CleanupApp != "" {
		cleanup := apptainer.AppSpec{
			Node:      alloc.Node(),
			Image:     sess.ContainerImage,
			App:       m.cfg.Container.CleanupApp,
			BindPaths: m.cfg.Container.BindPaths,
		}
		if err := m.launcher.RunApp(ctx, cleanup); err != nil {
			m.logger.WithField("job_id", sess.JobID).WithError(err).Warn("Cleanup app failed")
		}
	}

	if !opts.NoCancel {
		if err := m.slurm.Cancel(ctx, sess.JobID); err != nil {
			return err
		}
	}

	if err := m.store.Delete(sess.JobID); err != nil {
		return err
	}
	m.logger.WithField("job_id", sess.JobID).Info("Session stopped")
	return nil
}

// StopAll stops every persisted session concurrently, bounded by the
// configured worker count. One session's failure never blocks the others;
// per-session outcomes are reported so the caller can decide the exit.
func (m *Manager) StopAll(ctx context.Context, opts StopOptions) ([]StopResult, error) {
	sessions, err := m.store.List()
	if err != nil {
		return nil, err
	}

	results := make([]StopResult, len(sessions))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(m.cfg.Workers)
	for i, sess := range sessions {
		i, sess := i, sess
		group.Go(func() error {
			results[i] = StopResult{
				JobID: sess.JobID,
				Name:  sess.Name,
				Err:   m.Stop(ctx, sess, opts),
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
