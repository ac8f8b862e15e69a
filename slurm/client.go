// Package slurm issues submit/query/cancel operations against the Slurm
// batch scheduler and parses its output into structured job records.
package slurm

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hyakvnc/hyakvnc/command"
	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/sirupsen/logrus"
)

// Client is the scheduler contract the session lifecycle manager depends on.
type Client interface {
	// Submit submits a batch job and returns the scheduler-assigned job id.
	// After an error the caller must not assume a job exists.
	Submit(ctx context.Context, spec JobSpec) (string, error)

	// WaitUntilRunning polls the job state at a fixed interval until the job
	// is running, the job disappears, or the timeout elapses.
	WaitUntilRunning(ctx context.Context, jobID string, timeout time.Duration) (*Allocation, error)

	// Query returns the current allocation for jobID, or, with an empty id,
	// all of the current user's jobs whose name carries the session prefix.
	// An id unknown to the scheduler yields an empty result, not an error.
	Query(ctx context.Context, jobID string) ([]Allocation, error)

	// Cancel cancels a job. Cancelling a finished or unknown job is a no-op.
	Cancel(ctx context.Context, jobID string) error
}

// squeueFormat selects the fields parseAllocations expects, pipe-separated:
// job id, name, state, nodelist, cpus, memory, time limit, time left, gres.
const squeueFormat = "%i|%j|%T|%N|%C|%m|%l|%L|%b"

// CLIClient talks to Slurm through its command-line tools.
type CLIClient struct {
	exec         command.Executor
	prefix       string
	user         string
	pollInterval time.Duration
	logger       *logrus.Entry
}

// NewCLIClient returns a Client using sbatch/squeue/scancel. The prefix
// filters Query results down to jobs this tool owns.
func NewCLIClient(exec command.Executor, prefix string, pollInterval time.Duration, logger *logrus.Entry) *CLIClient {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &CLIClient{
		exec:         exec,
		prefix:       prefix,
		user:         os.Getenv("USER"),
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Submit submits the job with sbatch and parses the job id from --parsable
// output.
func (c *CLIClient) Submit(ctx context.Context, spec JobSpec) (string, error) {
	args := []string{
		"--parsable",
		"--job-name", spec.Name,
		"--cpus-per-task", fmt.Sprintf("%d", spec.CPUs),
		"--mem", spec.Memory,
		"--time", spec.TimeLimit,
		"--output", spec.OutputPath,
	}
	if spec.Account != "" {
		args = append(args, "--account", spec.Account)
	}
	if spec.Partition != "" {
		args = append(args, "--partition", spec.Partition)
	}
	if spec.GPUs != "" && spec.GPUs != "0" {
		args = append(args, "--gpus", spec.GPUs)
	}
	// The batch script only holds the allocation open; the VNC server is
	// launched into it separately.
	args = append(args, "--wrap", "sleep infinity")

	c.logger.WithField("jobName", spec.Name).Debug("Submitting batch job")

	cmd := c.exec.CommandContext(ctx, "sbatch", args...)
	out, err := cmd.Output()
	if err != nil {
		if isNotFound(err) {
			return "", errors.CommandNotFound("sbatch")
		}
		return "", errors.SchedulerRejected(exitDetail(err), err)
	}

	jobID := parseSubmitOutput(string(out))
	if jobID == "" {
		return "", errors.SchedulerRejected(fmt.Sprintf("unparsable sbatch output %q", strings.TrimSpace(string(out))), nil)
	}

	c.logger.WithField("jobID", jobID).Info("Job submitted")
	return jobID, nil
}

// WaitUntilRunning polls squeue until the job runs, vanishes, or the timeout
// elapses. Cancellation through ctx leaves the session exactly as it was.
func (c *CLIClient) WaitUntilRunning(ctx context.Context, jobID string, timeout time.Duration) (*Allocation, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		allocs, err := c.Query(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if len(allocs) == 0 {
			return nil, errors.JobVanished(jobID)
		}
		alloc := allocs[0]
		switch alloc.State {
		case StateRunning:
			c.logger.WithFields(logrus.Fields{"jobID": jobID, "node": alloc.Node()}).Info("Allocation is running")
			return &alloc, nil
		case StateTerminated:
			return nil, errors.JobVanished(jobID)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, errors.SubmitTimeout(jobID, timeout)
		case <-ticker.C:
		}
	}
}

// Query lists jobs via squeue. With a job id it returns at most one
// allocation; with an empty id it returns every job of the current user whose
// name starts with the configured prefix.
func (c *CLIClient) Query(ctx context.Context, jobID string) ([]Allocation, error) {
	args := []string{"--noheader", "--format", squeueFormat}
	if c.user != "" {
		args = append(args, "--user", c.user)
	}
	if jobID != "" {
		args = append(args, "--job", jobID)
	}

	cmd := c.exec.CommandContext(ctx, "squeue", args...)
	out, err := cmd.Output()
	if err != nil {
		if isNotFound(err) {
			return nil, errors.CommandNotFound("squeue")
		}
		// squeue exits non-zero for ids it has already forgotten; that is an
		// empty result, not a failure.
		if jobID != "" {
			return nil, nil
		}
		return nil, errors.CommandFailed("squeue", err)
	}

	allocs := parseAllocations(string(out))
	if jobID == "" {
		filtered := allocs[:0]
		for _, a := range allocs {
			if strings.HasPrefix(a.Name, c.prefix) {
				filtered = append(filtered, a)
			}
		}
		allocs = filtered
	}
	return allocs, nil
}

// Cancel cancels the job with scancel. Unknown and already-finished jobs are
// treated as cancelled.
func (c *CLIClient) Cancel(ctx context.Context, jobID string) error {
	cmd := c.exec.CommandContext(ctx, "scancel", jobID)
	if out, err := cmd.CombinedOutput(); err != nil {
		if isNotFound(err) {
			return errors.CommandNotFound("scancel")
		}
		// scancel complains about unknown ids; idempotency means that is fine.
		c.logger.WithFields(logrus.Fields{"jobID": jobID, "output": strings.TrimSpace(string(out))}).
			Debug("scancel reported an error, treating job as already cancelled")
	}
	return nil
}

func isNotFound(err error) bool {
	var execErr *exec.Error
	if ok := asExecError(err, &execErr); ok {
		return execErr.Err == exec.ErrNotFound
	}
	return false
}

func asExecError(err error, target **exec.Error) bool {
	for err != nil {
		if e, ok := err.(*exec.Error); ok {
			*target = e
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

func exitDetail(err error) string {
	if exitErr, ok := err.(*exec.ExitError); ok {
		msg := strings.TrimSpace(string(exitErr.Stderr))
		if msg != "" {
			return msg
		}
		return exitErr.String()
	}
	return err.Error()
}
