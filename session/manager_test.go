package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyakvnc/hyakvnc/apptainer"
	"github.com/hyakvnc/hyakvnc/config"
	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/pkg/models"
	"github.com/hyakvnc/hyakvnc/session/mocks"
	"github.com/hyakvnc/hyakvnc/slurm"
	"github.com/hyakvnc/hyakvnc/store"
	"github.com/hyakvnc/hyakvnc/tunnel"
)

type testFixture struct {
	manager  *Manager
	store    *store.Store
	slurm    *mocks.SlurmClient
	launcher *mocks.Launcher
	tunnels  *mocks.TunnelManager
	runner   *mocks.Runner
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("HYAKVNC_STATE_DIR", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		JobPrefix: "hyakvnc",
		LoginHost: "login.cluster.edu",
		Workers:   2,
	}
	cfg.Slurm.Account = "lab"
	cfg.Slurm.Partition = "gpu"
	cfg.Slurm.CPUs = 4
	cfg.Slurm.Memory = "16G"
	cfg.Slurm.GPUs = "0"
	cfg.Slurm.TimeLimit = "4:00:00"
	cfg.Slurm.SubmitTimeout = config.Duration(time.Second)
	cfg.Container.Image = "/containers/desktop.sif"
	cfg.Container.VNCApp = "vncserver"
	cfg.Container.CleanupApp = "vncserver-kill"
	cfg.Container.BindPaths = []string{"/tmp", "/gscratch"}
	cfg.Container.DiscoveryTimeout = config.Duration(2 * time.Second)

	f := &testFixture{
		store:    st,
		slurm:    &mocks.SlurmClient{},
		launcher: &mocks.Launcher{},
		tunnels:  &mocks.TunnelManager{},
		runner:   &mocks.Runner{},
	}
	f.manager = NewManager(cfg, f.slurm, f.launcher, f.tunnels, f.runner, st)
	return f
}

func runningAllocation(jobID, node string) slurm.Allocation {
	return slurm.Allocation{
		JobID:    jobID,
		State:    slurm.StateRunning,
		Nodes:    []string{node},
		CPUs:     "4",
		Memory:   "16G",
		GPUs:     "0",
		TimeLeft: "3:58:00",
	}
}

// seedPasswordFile writes the ~/.vnc/passwd create insists on.
func seedPasswordFile(t *testing.T) {
	t.Helper()
	path, err := apptainer.PasswordFilePath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("obfuscated"), 0o600))
}

func (f *testFixture) seedSession(t *testing.T, sess *models.Session) *models.Session {
	t.Helper()
	require.NoError(t, f.store.Save(sess))
	return sess
}

func TestCreateProvisionsSession(t *testing.T) {
	f := newFixture(t)
	seedPasswordFile(t)

	f.slurm.SubmitFunc = func(_ context.Context, spec slurm.JobSpec) (string, error) {
		return "1001", nil
	}
	f.slurm.WaitUntilRunningFunc = func(_ context.Context, jobID string, _ time.Duration) (*slurm.Allocation, error) {
		alloc := runningAllocation(jobID, "n001")
		return &alloc, nil
	}
	f.launcher.RunAppFunc = func(_ context.Context, spec apptainer.AppSpec) error {
		banner := "Listening for VNC connections on Unix socket /jobs/1001/vnc/socket.uds\n"
		return os.WriteFile(spec.OutputPath, []byte(banner), 0o600)
	}

	sess, err := f.manager.Create(context.Background(), CreateOptions{})
	require.NoError(t, err)

	assert.Equal(t, "1001", sess.JobID)
	assert.Contains(t, sess.Name, "hyakvnc-")
	assert.Equal(t, models.StateReachable, sess.State)
	require.NotNil(t, sess.Endpoint)
	assert.Equal(t, "/jobs/1001/vnc/socket.uds", sess.Endpoint.Socket)
	require.NotNil(t, sess.ConnectionPath)
	assert.Equal(t, 5901, sess.ConnectionPath.LocalPort)
	assert.Equal(t, "n001", sess.ConnectionPath.Hop)
	assert.Equal(t, "/jobs/1001/vnc/socket.uds", sess.ConnectionPath.RemoteSocket)

	// Submission carried the configured resources.
	require.Len(t, f.slurm.SubmittedSpecs, 1)
	spec := f.slurm.SubmittedSpecs[0]
	assert.Equal(t, "lab", spec.Account)
	assert.Equal(t, 4, spec.CPUs)
	assert.Equal(t, "16G", spec.Memory)

	// The record on disk matches what was returned.
	persisted, err := f.store.Get("1001")
	require.NoError(t, err)
	assert.Equal(t, models.StateReachable, persisted.State)
	require.NotNil(t, persisted.ConnectionPath)
	assert.Equal(t, 5901, persisted.ConnectionPath.LocalPort)

	assert.Empty(t, f.slurm.Cancelled())
}

func TestCreateAddsGPUBinding(t *testing.T) {
	f := newFixture(t)
	seedPasswordFile(t)

	f.slurm.SubmitFunc = func(_ context.Context, _ slurm.JobSpec) (string, error) { return "1002", nil }
	f.slurm.WaitUntilRunningFunc = func(_ context.Context, jobID string, _ time.Duration) (*slurm.Allocation, error) {
		alloc := runningAllocation(jobID, "g001")
		alloc.GPUs = "a40:2"
		return &alloc, nil
	}
	f.launcher.RunAppFunc = func(_ context.Context, spec apptainer.AppSpec) error {
		return os.WriteFile(spec.OutputPath, []byte("New 'g001:2 (user)' desktop is g001:2\n"), 0o600)
	}

	sess, err := f.manager.Create(context.Background(), CreateOptions{Name: "hyakvnc-gpu"})
	require.NoError(t, err)

	apps := f.launcher.Launched()
	require.Len(t, apps, 1)
	assert.Contains(t, apps[0].ExtraArgs, "--nv")
	assert.Equal(t, "vncserver", apps[0].App)

	// Display :2 maps to port 5902.
	require.NotNil(t, sess.Endpoint)
	assert.Equal(t, 5902, sess.Endpoint.Port)
	assert.Equal(t, "g001", sess.Endpoint.Host)
}

func TestCreateKeepsAllocationOnDiscoveryTimeout(t *testing.T) {
	f := newFixture(t)
	seedPasswordFile(t)
	f.manager.cfg.Container.DiscoveryTimeout = config.Duration(150 * time.Millisecond)

	f.slurm.SubmitFunc = func(_ context.Context, _ slurm.JobSpec) (string, error) { return "1003", nil }
	f.slurm.WaitUntilRunningFunc = func(_ context.Context, jobID string, _ time.Duration) (*slurm.Allocation, error) {
		alloc := runningAllocation(jobID, "n002")
		return &alloc, nil
	}
	// The app starts but never writes a banner.

	_, err := f.manager.Create(context.Background(), CreateOptions{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeEndpointDiscoveryTimeout, errors.GetCode(err))

	// The allocation was not cancelled and the record survived at the last
	// persisted state, so repair or stop can pick it up.
	assert.Empty(t, f.slurm.Cancelled())
	persisted, err := f.store.Get("1003")
	require.NoError(t, err)
	assert.Equal(t, models.StateAllocated, persisted.State)
}

func TestCreateRefusesWithoutPasswordFile(t *testing.T) {
	f := newFixture(t)
	// No ~/.vnc/passwd seeded.

	_, err := f.manager.Create(context.Background(), CreateOptions{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePasswordFileMissing, errors.GetCode(err))

	// Nothing was submitted: the check runs before the scheduler is touched.
	assert.Empty(t, f.slurm.SubmittedSpecs)
}

func TestStopTearsDownCompletely(t *testing.T) {
	f := newFixture(t)

	sess := f.seedSession(t, &models.Session{
		JobID:          "1001",
		Name:           "hyakvnc-a",
		State:          models.StateReachable,
		Allocation:     runningAllocation("1001", "n001"),
		ContainerImage: "/containers/desktop.sif",
		Endpoint:       &models.Endpoint{Socket: "/jobs/1001/vnc/socket.uds"},
		ConnectionPath: &tunnel.Path{LocalPort: 5901, Hop: "n001", RemoteSocket: "/jobs/1001/vnc/socket.uds", PID: 7},
	})
	f.slurm.QueryFunc = func(_ context.Context, _ string) ([]slurm.Allocation, error) {
		return []slurm.Allocation{runningAllocation("1001", "n001")}, nil
	}

	require.NoError(t, f.manager.Stop(context.Background(), sess, StopOptions{}))

	// Path closed, cleanup app ran on the node, exactly one cancel, record gone.
	require.Len(t, f.tunnels.Closed(), 1)
	apps := f.launcher.Launched()
	require.Len(t, apps, 1)
	assert.Equal(t, "vncserver-kill", apps[0].App)
	assert.Equal(t, "n001", apps[0].Node)
	assert.Equal(t, []string{"1001"}, f.slurm.Cancelled())

	_, err := f.store.Get("1001")
	assert.Equal(t, errors.ErrCodeSessionNotFound, errors.GetCode(err))
}

func TestStopNoCancelLeavesJob(t *testing.T) {
	f := newFixture(t)

	sess := f.seedSession(t, &models.Session{
		JobID: "1004", Name: "hyakvnc-b", State: models.StateReachable,
		ConnectionPath: &tunnel.Path{LocalPort: 5905, PID: 7},
	})

	require.NoError(t, f.manager.Stop(context.Background(), sess, StopOptions{NoCancel: true}))
	assert.Empty(t, f.slurm.Cancelled())
	_, err := f.store.Get("1004")
	assert.Equal(t, errors.ErrCodeSessionNotFound, errors.GetCode(err))
}

func TestStopAllContinuesPastFailures(t *testing.T) {
	f := newFixture(t)

	f.seedSession(t, &models.Session{JobID: "2001", Name: "hyakvnc-x", State: models.StateReachable})
	f.seedSession(t, &models.Session{JobID: "2002", Name: "hyakvnc-y", State: models.StateReachable})
	f.slurm.CancelFunc = func(_ context.Context, jobID string) error {
		if jobID == "2001" {
			return fmt.Errorf("scancel: connection refused")
		}
		return nil
	}

	results, err := f.manager.StopAll(context.Background(), StopOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	byJob := map[string]StopResult{}
	for _, r := range results {
		byJob[r.JobID] = r
	}
	assert.Error(t, byJob["2001"].Err)
	assert.NoError(t, byJob["2002"].Err)

	// The failed session's record survives for a retry; the other is gone.
	_, err = f.store.Get("2001")
	require.NoError(t, err)
	_, err = f.store.Get("2002")
	assert.Equal(t, errors.ErrCodeSessionNotFound, errors.GetCode(err))
}

func TestRepairIsNoOpWhenJobNotRunning(t *testing.T) {
	f := newFixture(t)

	sess := f.seedSession(t, &models.Session{JobID: "3001", Name: "hyakvnc-c", State: models.StateReachable})
	// Scheduler no longer knows the job.

	result, err := f.manager.Repair(context.Background(), sess)
	require.NoError(t, err)
	assert.False(t, result.Repaired)
	assert.Equal(t, "allocation is not running", result.Reason)

	// The record is retained; only stop removes it.
	_, err = f.store.Get("3001")
	require.NoError(t, err)
}

func TestRepairReopensDeadPath(t *testing.T) {
	f := newFixture(t)

	sess := f.seedSession(t, &models.Session{
		JobID:          "1001",
		Name:           "hyakvnc-d",
		State:          models.StateReachable,
		Allocation:     runningAllocation("1001", "n001"),
		ContainerImage: "/containers/desktop.sif",
		Endpoint:       &models.Endpoint{Socket: "/jobs/1001/vnc/socket.uds"},
		ConnectionPath: &tunnel.Path{LocalPort: 5901, Hop: "n001", RemoteSocket: "/jobs/1001/vnc/socket.uds", PID: 7},
	})
	banner := "Listening for VNC connections on Unix socket /jobs/1001/vnc/socket.uds\n"
	require.NoError(t, os.WriteFile(f.store.CapturePath("1001"), []byte(banner), 0o600))

	f.slurm.QueryFunc = func(_ context.Context, _ string) ([]slurm.Allocation, error) {
		return []slurm.Allocation{runningAllocation("1001", "n001")}, nil
	}
	f.tunnels.ProbeFunc = func(_ *tunnel.Path) bool { return false }
	f.tunnels.OpenFunc = func(_ context.Context, spec tunnel.OpenSpec) (*tunnel.Path, error) {
		return &tunnel.Path{LocalPort: 5902, Hop: spec.Hop, RemoteSocket: spec.RemoteSocket, PID: 9}, nil
	}

	result, err := f.manager.Repair(context.Background(), sess)
	require.NoError(t, err)
	assert.True(t, result.Repaired)

	// The dead path was torn down and a fresh local port issued.
	require.Len(t, f.tunnels.Closed(), 1)
	assert.Equal(t, 5901, f.tunnels.Closed()[0].LocalPort)
	assert.Equal(t, 5902, result.Session.ConnectionPath.LocalPort)

	persisted, err := f.store.Get("1001")
	require.NoError(t, err)
	assert.Equal(t, models.StateReachable, persisted.State)
	assert.Equal(t, 5902, persisted.ConnectionPath.LocalPort)
}

func TestRepairSkipsHealthySession(t *testing.T) {
	f := newFixture(t)

	sess := f.seedSession(t, &models.Session{
		JobID:          "4001",
		Name:           "hyakvnc-e",
		State:          models.StateReachable,
		Allocation:     runningAllocation("4001", "n003"),
		Endpoint:       &models.Endpoint{Host: "n003", Port: 5901},
		ConnectionPath: &tunnel.Path{LocalPort: 5901, Hop: "n003", RemotePort: 5901, PID: 7},
	})
	f.slurm.QueryFunc = func(_ context.Context, _ string) ([]slurm.Allocation, error) {
		return []slurm.Allocation{runningAllocation("4001", "n003")}, nil
	}
	f.tunnels.ProbeFunc = func(_ *tunnel.Path) bool { return true }

	result, err := f.manager.Repair(context.Background(), sess)
	require.NoError(t, err)
	assert.False(t, result.Repaired)
	assert.Equal(t, "session is already reachable", result.Reason)
	assert.Empty(t, f.tunnels.Closed())
}

func TestShowRepairsThenRendersConnectionSteps(t *testing.T) {
	f := newFixture(t)

	sess := f.seedSession(t, &models.Session{
		JobID:          "1001",
		Name:           "hyakvnc-show",
		State:          models.StateReachable,
		Allocation:     runningAllocation("1001", "n001"),
		ContainerImage: "/containers/desktop.sif",
		Endpoint:       &models.Endpoint{Host: "n001", Port: 5901},
		ConnectionPath: &tunnel.Path{LocalPort: 5899, Hop: "n001", RemotePort: 5901, PID: 7},
	})
	banner := "Listening for VNC connections on TCP port 5901\n"
	require.NoError(t, os.WriteFile(f.store.CapturePath("1001"), []byte(banner), 0o600))

	f.slurm.QueryFunc = func(_ context.Context, _ string) ([]slurm.Allocation, error) {
		return []slurm.Allocation{runningAllocation("1001", "n001")}, nil
	}
	// The recorded path is dead, so show must repair before rendering.
	f.tunnels.ProbeFunc = func(_ *tunnel.Path) bool { return false }
	f.tunnels.OpenFunc = func(_ context.Context, spec tunnel.OpenSpec) (*tunnel.Path, error) {
		return &tunnel.Path{LocalPort: 5901, Hop: spec.Hop, RemotePort: spec.RemotePort, PID: 9}, nil
	}

	shown, err := f.manager.Show(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, f.tunnels.Closed(), 1)
	assert.Equal(t, 5901, shown.ConnectionPath.LocalPort)

	out := Instructions(shown, f.manager.cfg.LoginHost)
	assert.Contains(t, out, "ssh -N -f -L 5901:127.0.0.1:5901 login.cluster.edu")
	assert.Contains(t, out, "vnc://127.0.0.1:5901")
	assert.Contains(t, out, "n001")
	assert.Contains(t, out, "job 1001")
}

func TestShowFailsWhenJobNotRunning(t *testing.T) {
	f := newFixture(t)

	sess := f.seedSession(t, &models.Session{JobID: "1005", Name: "hyakvnc-gone", State: models.StateReachable})
	// Scheduler no longer reports the job.

	_, err := f.manager.Show(context.Background(), sess)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeJobVanished, errors.GetCode(err))
}

func TestObserveActiveOnlyFromProbe(t *testing.T) {
	f := newFixture(t)

	sess := f.seedSession(t, &models.Session{
		JobID:          "1001",
		Name:           "hyakvnc-f",
		State:          models.StateReachable,
		Allocation:     runningAllocation("1001", "n001"),
		Endpoint:       &models.Endpoint{Socket: "/jobs/1001/vnc/socket.uds"},
		ConnectionPath: &tunnel.Path{LocalPort: 5901, Hop: "n001", RemoteSocket: "/jobs/1001/vnc/socket.uds", PID: 7},
	})
	f.slurm.QueryFunc = func(_ context.Context, _ string) ([]slurm.Allocation, error) {
		return []slurm.Allocation{runningAllocation("1001", "n001")}, nil
	}

	// Persisted state says reachable, but the probe is the only truth.
	f.tunnels.ProbeFunc = func(_ *tunnel.Path) bool { return false }
	obs, err := f.manager.Observe(context.Background(), sess)
	require.NoError(t, err)
	assert.False(t, obs.VNCActive)
	assert.True(t, obs.Broken)
	assert.Equal(t, "3:58:00", obs.TimeLeft)

	f.tunnels.ProbeFunc = func(_ *tunnel.Path) bool { return true }
	obs, err = f.manager.Observe(context.Background(), sess)
	require.NoError(t, err)
	assert.True(t, obs.VNCActive)
	assert.False(t, obs.Broken)
}

func TestObserveStalePathNeverActive(t *testing.T) {
	f := newFixture(t)

	// The recorded path forwards to a socket the endpoint no longer names,
	// left over from before a server restart. Its ssh process still runs.
	sess := f.seedSession(t, &models.Session{
		JobID:          "1001",
		Name:           "hyakvnc-j",
		State:          models.StateReachable,
		Allocation:     runningAllocation("1001", "n001"),
		Endpoint:       &models.Endpoint{Socket: "/jobs/1001/vnc/socket.uds"},
		ConnectionPath: &tunnel.Path{LocalPort: 5901, Hop: "n001", RemoteSocket: "/jobs/1001/vnc/old.uds", PID: 7},
	})
	f.slurm.QueryFunc = func(_ context.Context, _ string) ([]slurm.Allocation, error) {
		return []slurm.Allocation{runningAllocation("1001", "n001")}, nil
	}
	f.tunnels.ProbeFunc = func(_ *tunnel.Path) bool { return true }

	obs, err := f.manager.Observe(context.Background(), sess)
	require.NoError(t, err)
	assert.False(t, obs.PathAlive)
	assert.False(t, obs.VNCActive)
	assert.True(t, obs.Broken)
}

func TestRepairReplacesStalePath(t *testing.T) {
	f := newFixture(t)

	sess := f.seedSession(t, &models.Session{
		JobID:          "1001",
		Name:           "hyakvnc-k",
		State:          models.StateReachable,
		Allocation:     runningAllocation("1001", "n001"),
		ContainerImage: "/containers/desktop.sif",
		Endpoint:       &models.Endpoint{Host: "n001", Port: 5901},
		ConnectionPath: &tunnel.Path{LocalPort: 5901, Hop: "n001", RemotePort: 5999, PID: 7},
	})
	banner := "Listening for VNC connections on TCP port 5901\n"
	require.NoError(t, os.WriteFile(f.store.CapturePath("1001"), []byte(banner), 0o600))

	f.slurm.QueryFunc = func(_ context.Context, _ string) ([]slurm.Allocation, error) {
		return []slurm.Allocation{runningAllocation("1001", "n001")}, nil
	}
	// The stale path's process is alive, but it forwards to the wrong port.
	f.tunnels.ProbeFunc = func(_ *tunnel.Path) bool { return true }
	f.tunnels.OpenFunc = func(_ context.Context, spec tunnel.OpenSpec) (*tunnel.Path, error) {
		return &tunnel.Path{LocalPort: 5902, Hop: spec.Hop, RemotePort: spec.RemotePort, PID: 9}, nil
	}

	result, err := f.manager.Repair(context.Background(), sess)
	require.NoError(t, err)
	assert.True(t, result.Repaired)
	require.Len(t, f.tunnels.Closed(), 1)
	assert.Equal(t, 5999, f.tunnels.Closed()[0].RemotePort)
	assert.Equal(t, 5901, result.Session.ConnectionPath.RemotePort)
}

func TestObserveVanishedJobRetainsRecord(t *testing.T) {
	f := newFixture(t)

	sess := f.seedSession(t, &models.Session{
		JobID:          "5001",
		Name:           "hyakvnc-g",
		State:          models.StateReachable,
		ConnectionPath: &tunnel.Path{LocalPort: 5903, PID: 1 << 30},
	})
	// Query returns nothing: the scheduler forgot the job.

	obs, err := f.manager.Observe(context.Background(), sess)
	require.NoError(t, err)
	assert.False(t, obs.JobKnown)
	assert.Equal(t, slurm.StateUnknown, obs.JobState)
	assert.False(t, obs.VNCActive)
	assert.False(t, obs.Broken)

	_, err = f.store.Get("5001")
	require.NoError(t, err)
}

func TestObserveAllQueriesSchedulerOnce(t *testing.T) {
	f := newFixture(t)

	f.seedSession(t, &models.Session{JobID: "6001", Name: "hyakvnc-h", State: models.StateReachable})
	f.seedSession(t, &models.Session{JobID: "6002", Name: "hyakvnc-i", State: models.StateSubmitted})

	queries := 0
	f.slurm.QueryFunc = func(_ context.Context, jobID string) ([]slurm.Allocation, error) {
		queries++
		assert.Empty(t, jobID)
		return []slurm.Allocation{runningAllocation("6001", "n001")}, nil
	}

	observations, err := f.manager.ObserveAll(context.Background())
	require.NoError(t, err)
	require.Len(t, observations, 2)
	assert.Equal(t, 1, queries)

	byJob := map[string]*Observation{}
	for _, obs := range observations {
		byJob[obs.Session.JobID] = obs
	}
	assert.True(t, byJob["6001"].JobKnown)
	assert.False(t, byJob["6002"].JobKnown)
}

func TestUnadoptedJobs(t *testing.T) {
	f := newFixture(t)

	f.seedSession(t, &models.Session{JobID: "9001", Name: "hyakvnc-known", State: models.StateReachable})
	f.slurm.QueryFunc = func(_ context.Context, _ string) ([]slurm.Allocation, error) {
		return []slurm.Allocation{
			runningAllocation("9001", "n001"),
			runningAllocation("9002", "n002"),
		}, nil
	}

	unadopted, err := f.manager.UnadoptedJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, unadopted, 1)
	assert.Equal(t, "9002", unadopted[0].JobID)
}

func TestResolveBySelector(t *testing.T) {
	f := newFixture(t)

	f.seedSession(t, &models.Session{JobID: "7001", Name: "hyakvnc-one", State: models.StateReachable})
	f.seedSession(t, &models.Session{JobID: "7002", Name: "hyakvnc-two", State: models.StateReachable})

	byID, err := f.manager.Resolve("7001")
	require.NoError(t, err)
	assert.Equal(t, "hyakvnc-one", byID.Name)

	byName, err := f.manager.Resolve("hyakvnc-two")
	require.NoError(t, err)
	assert.Equal(t, "7002", byName.JobID)

	_, err = f.manager.Resolve("nope")
	assert.Equal(t, errors.ErrCodeSessionNotFound, errors.GetCode(err))

	// Empty selector with several sessions is ambiguous without a chooser.
	_, err = f.manager.Resolve("")
	assert.Equal(t, errors.ErrCodeAmbiguousSelection, errors.GetCode(err))

	f.manager.Choose = func(candidates []*models.Session) (*models.Session, error) {
		return candidates[1], nil
	}
	chosen, err := f.manager.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "7002", chosen.JobID)
}

func TestResolveSingleSessionNeedsNoSelector(t *testing.T) {
	f := newFixture(t)
	f.seedSession(t, &models.Session{JobID: "8001", Name: "hyakvnc-solo", State: models.StateReachable})

	sess, err := f.manager.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "8001", sess.JobID)
}

func TestResolveEmptyStore(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Resolve("")
	assert.Equal(t, errors.ErrCodeSessionNotFound, errors.GetCode(err))
}
