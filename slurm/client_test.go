package slurm

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor satisfies command.Executor by running a canned shell script
// in place of each external binary.
type fakeExecutor struct {
	scripts map[string]string
}

func (f *fakeExecutor) Command(name string, args ...string) *exec.Cmd {
	return f.CommandContext(context.Background(), name, args...)
}

func (f *fakeExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	script, ok := f.scripts[name]
	if !ok {
		script = "echo unexpected binary >&2; exit 127"
	}
	return exec.CommandContext(ctx, "sh", "-c", script)
}

func newTestClient(scripts map[string]string, poll time.Duration) *CLIClient {
	return NewCLIClient(&fakeExecutor{scripts: scripts}, "hyakvnc", poll, logging.NewLogger("slurm-test"))
}

func TestSubmit(t *testing.T) {
	client := newTestClient(map[string]string{"sbatch": "echo 1001"}, 0)

	jobID, err := client.Submit(context.Background(), JobSpec{
		Name: "hyakvnc-test", CPUs: 2, Memory: "4G", TimeLimit: "4:00:00", OutputPath: "/tmp/out",
	})
	require.NoError(t, err)
	assert.Equal(t, "1001", jobID)
}

func TestSubmitRejected(t *testing.T) {
	client := newTestClient(map[string]string{"sbatch": "echo 'sbatch: error: invalid account' >&2; exit 1"}, 0)

	_, err := client.Submit(context.Background(), JobSpec{Name: "hyakvnc-test", CPUs: 1, Memory: "1G", TimeLimit: "1:00:00", OutputPath: "/tmp/out"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSchedulerRejected, errors.GetCode(err))
}

func TestSubmitUnparsableOutput(t *testing.T) {
	client := newTestClient(map[string]string{"sbatch": "echo not-a-job-id"}, 0)

	_, err := client.Submit(context.Background(), JobSpec{Name: "hyakvnc-test", CPUs: 1, Memory: "1G", TimeLimit: "1:00:00", OutputPath: "/tmp/out"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSchedulerRejected, errors.GetCode(err))
}

func TestQueryFiltersByPrefix(t *testing.T) {
	client := newTestClient(map[string]string{
		"squeue": `printf '1001|hyakvnc-a|RUNNING|n001|2|4G|4:00:00|3:00:00|(null)\n1002|unrelated|RUNNING|n002|2|4G|4:00:00|3:00:00|(null)\n'`,
	}, 0)

	allocs, err := client.Query(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, "1001", allocs[0].JobID)
}

func TestQueryUnknownJobIsEmpty(t *testing.T) {
	client := newTestClient(map[string]string{
		"squeue": "echo 'slurm_load_jobs error: Invalid job id specified' >&2; exit 1",
	}, 0)

	allocs, err := client.Query(context.Background(), "9999")
	require.NoError(t, err)
	assert.Empty(t, allocs)
}

func TestCancelIdempotent(t *testing.T) {
	client := newTestClient(map[string]string{
		"scancel": "echo 'scancel: error: Invalid job id 9999' >&2; exit 1",
	}, 0)

	assert.NoError(t, client.Cancel(context.Background(), "9999"))
}

func TestWaitUntilRunning(t *testing.T) {
	client := newTestClient(map[string]string{
		"squeue": `printf '1001|hyakvnc-a|RUNNING|n001|2|4G|4:00:00|4:00:00|(null)\n'`,
	}, 10*time.Millisecond)

	alloc, err := client.WaitUntilRunning(context.Background(), "1001", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "n001", alloc.Node())
}

func TestWaitUntilRunningVanished(t *testing.T) {
	client := newTestClient(map[string]string{"squeue": "true"}, 10*time.Millisecond)

	_, err := client.WaitUntilRunning(context.Background(), "1001", time.Second)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeJobVanished, errors.GetCode(err))
}

func TestWaitUntilRunningTimeout(t *testing.T) {
	client := newTestClient(map[string]string{
		"squeue": `printf '1001|hyakvnc-a|PENDING|(Resources)|2|4G|4:00:00|4:00:00|(null)\n'`,
	}, 20*time.Millisecond)

	_, err := client.WaitUntilRunning(context.Background(), "1001", 50*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSubmitTimeout, errors.GetCode(err))
}
