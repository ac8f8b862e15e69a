package session

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hyakvnc/hyakvnc/pkg/models"
	"github.com/hyakvnc/hyakvnc/slurm"
)

// Observation is one session's reconciled view: the persisted record against
// what the scheduler and the connection path actually report. Broken is
// computed here and never persisted.
type Observation struct {
	Session *models.Session `json:"session" yaml:"session"`

	// JobKnown is false when the scheduler no longer reports the job.
	JobKnown bool           `json:"job_known" yaml:"job_known"`
	JobState slurm.JobState `json:"job_state" yaml:"job_state"`
	TimeLeft string         `json:"time_left,omitempty" yaml:"time_left,omitempty"`

	// PathAlive reports whether the recorded connection path passed a live
	// probe. VNCActive is derived strictly from that probe, never from the
	// persisted state.
	PathAlive bool `json:"path_alive" yaml:"path_alive"`
	VNCActive bool `json:"vnc_active" yaml:"vnc_active"`

	// Broken means the allocation is running but the session is not usable:
	// the endpoint was never discovered or the path is dead.
	Broken bool `json:"broken" yaml:"broken"`
}

// Observe reconciles one session against the scheduler and the path probe.
// The record's allocation snapshot is refreshed when the job is still known;
// a vanished job leaves the record untouched for the user to stop explicitly.
func (m *Manager) Observe(ctx context.Context, sess *models.Session) (*Observation, error) {
	alloc, err := m.refreshAllocation(ctx, sess)
	if err != nil {
		return nil, err
	}
	return m.observeWith(sess, alloc), nil
}

// ObserveAll reconciles every persisted session. The scheduler is queried
// once for all jobs; path probes run concurrently, bounded by the configured
// worker count.
func (m *Manager) ObserveAll(ctx context.Context) ([]*Observation, error) {
	sessions, err := m.store.List()
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	allocs, err := m.slurm.Query(ctx, "")
	if err != nil {
		return nil, err
	}
	byJob := make(map[string]*slurm.Allocation, len(allocs))
	for i := range allocs {
		byJob[allocs[i].JobID] = &allocs[i]
	}

	observations := make([]*Observation, len(sessions))
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(m.cfg.Workers)
	for i, sess := range sessions {
		i, sess := i, sess
		group.Go(func() error {
			observations[i] = m.observeWith(sess, byJob[sess.JobID])
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return observations, nil
}

// UnadoptedJobs returns scheduler jobs that carry this tool's name prefix
// but have no session record, typically because the record's directory was
// lost. They cannot be re-adopted automatically (endpoint discovery depends
// on the capture file that lived in the lost directory), so they are
// surfaced for the user to cancel or finish manually.
func (m *Manager) UnadoptedJobs(ctx context.Context) ([]slurm.Allocation, error) {
	sessions, err := m.store.List()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(sessions))
	for _, sess := range sessions {
		known[sess.JobID] = true
	}

	allocs, err := m.slurm.Query(ctx, "")
	if err != nil {
		return nil, err
	}
	var unadopted []slurm.Allocation
	for _, alloc := range allocs {
		if !known[alloc.JobID] {
			unadopted = append(unadopted, alloc)
		}
	}
	return unadopted, nil
}

func (m *Manager) observeWith(sess *models.Session, alloc *slurm.Allocation) *Observation {
	obs := &Observation{
		Session:  sess,
		JobState: slurm.StateUnknown,
	}
	if alloc != nil {
		obs.JobKnown = true
		obs.JobState = alloc.State
		obs.TimeLeft = alloc.TimeLeft
		sess.Allocation = *alloc
		if err := m.store.Save(sess); err != nil {
			m.logger.WithField("job_id", sess.JobID).WithError(err).Warn("Failed to refresh session record")
		}
	}

	// A path whose remote end no longer matches the session's endpoint is
	// stale and must never count as active, even if its process survives.
	if sess.ConnectionPath != nil && sess.Endpoint.Matches(sess.ConnectionPath) {
		obs.PathAlive = m.tunnels.Probe(sess.ConnectionPath)
	}
	obs.VNCActive = obs.PathAlive && sess.Endpoint != nil
	obs.Broken = obs.JobState == slurm.StateRunning && (sess.Endpoint == nil || !obs.PathAlive)
	return obs
}
