package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hyakvnc/hyakvnc/apptainer"
	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/pkg/models"
	"github.com/hyakvnc/hyakvnc/slurm"
	"github.com/hyakvnc/hyakvnc/tunnel"
)

// CreateOptions influence a single create. Resource settings come from the
// resolved configuration; commands apply flag overrides there before the
// manager is built.
type CreateOptions struct {
	// Name is the session name. When empty a name is generated from the
	// configured job prefix and a random suffix.
	Name string
}

// Create provisions a new session end to end: submit the job, wait for the
// allocation, launch the VNC app into it, discover the endpoint, and open
// the connection path. The session record is persisted immediately after
// submission and again after every state advance, so a crash at any point
// leaves a record pointing at the job instead of an orphaned allocation.
//
// Failures after submission never cancel the job: the allocation may be
// expensive to reacquire, and repair or stop can pick the session up from
// whatever state was reached.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (*models.Session, error) {
	// The VNC server will not start without ~/.vnc/passwd, so catch the
	// missing file here instead of burning an allocation on a doomed launch.
	passwdPath, err := apptainer.PasswordFilePath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(passwdPath); err != nil {
		return nil, errors.PasswordFileMissing(passwdPath)
	}

	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("%s-%s", m.cfg.JobPrefix, uuid.NewString()[:8])
	}

	spec := slurm.JobSpec{
		Name:      name,
		Account:   m.cfg.Slurm.Account,
		Partition: m.cfg.Slurm.Partition,
		CPUs:      m.cfg.Slurm.CPUs,
		Memory:    m.cfg.Slurm.Memory,
		GPUs:      m.cfg.Slurm.GPUs,
		TimeLimit: m.cfg.Slurm.TimeLimit,
		// %j expands to the job id, landing the scheduler output inside the
		// session directory created right after submission.
		OutputPath: filepath.Join(m.store.Root(), "%j", "slurm.out"),
	}

	jobID, err := m.slurm.Submit(ctx, spec)
	if err != nil {
		return nil, err
	}

	sess := &models.Session{
		JobID:          jobID,
		Name:           name,
		State:          models.StateSubmitted,
		ContainerImage: m.cfg.Container.Image,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.store.Save(sess); err != nil {
		return sess, err
	}

	release, err := m.store.Lock(jobID)
	if err != nil {
		return sess, err
	}
	defer release()

	alloc, err := m.slurm.WaitUntilRunning(ctx, jobID, m.cfg.Slurm.SubmitTimeout.Std())
	if err != nil {
		return sess, err
	}
	sess.Allocation = *alloc
	sess.State = models.StateAllocated
	if err := m.store.Save(sess); err != nil {
		return sess, err
	}

	if err := m.launchVNCApp(ctx, sess); err != nil {
		return sess, err
	}

	endpoint, err := m.discoverEndpoint(ctx, sess)
	if err != nil {
		return sess, err
	}
	sess.Endpoint = endpoint
	sess.State = models.StateEndpointDiscovered
	if err := m.store.Save(sess); err != nil {
		return sess, err
	}

	path, err := m.openPath(ctx, sess)
	if err != nil {
		return sess, err
	}
	sess.ConnectionPath = path
	sess.State = models.StateReachable
	if err := m.store.Save(sess); err != nil {
		return sess, err
	}

	m.logger.WithFields(logrus.Fields{
		"job_id":   sess.JobID,
		"name":     sess.Name,
		"endpoint": sess.Endpoint.String(),
		"local":    path.LocalAddr(),
	}).Info("Session is reachable")
	return sess, nil
}

// launchVNCApp starts the configured VNC app inside the container on the
// allocation's node, detached, with its output appended to the session's
// capture file for endpoint discovery.
func (m *Manager) launchVNCApp(ctx context.Context, sess *models.Session) error {
	spec := apptainer.AppSpec{
		Node:       sess.Allocation.Node(),
		Image:      sess.ContainerImage,
		App:        m.cfg.Container.VNCApp,
		BindPaths:  m.cfg.Container.BindPaths,
		OutputPath: m.store.CapturePath(sess.JobID),
		Detach:     true,
	}
	if gpus := sess.Allocation.GPUs; gpus != "" && gpus != "0" {
		spec.ExtraArgs = append(spec.ExtraArgs, "--nv")
	}
	if m.cfg.Container.Xstartup != "" {
		spec.Args = append(spec.Args, "-xstartup", m.cfg.Container.Xstartup)
	}
	return m.launcher.RunApp(ctx, spec)
}

// openPath establishes a fresh connection path to the session's endpoint.
// The local port is always newly allocated; stale ports from earlier paths
// are never reused.
func (m *Manager) openPath(ctx context.Context, sess *models.Session) (*tunnel.Path, error) {
	if sess.Endpoint == nil {
		return nil, errors.New(errors.ErrCodeInternal, "session has no endpoint to connect to")
	}
	spec := tunnel.OpenSpec{
		Hop:          sess.Allocation.Node(),
		RemotePort:   sess.Endpoint.Port,
		RemoteSocket: sess.Endpoint.Socket,
	}
	return m.tunnels.Open(ctx, spec)
}
