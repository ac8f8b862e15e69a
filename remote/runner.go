// Package remote runs commands on compute nodes from the login node.
package remote

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hyakvnc/hyakvnc/command"
	"github.com/sirupsen/logrus"
)

// Runner executes a shell command on a remote node and returns its combined
// output. Intracluster ssh is the production transport; tests substitute
// their own Runner.
type Runner interface {
	Run(ctx context.Context, node string, cmd string) ([]byte, error)
}

// SSHRunner runs commands over ssh with batch-friendly options.
type SSHRunner struct {
	exec   command.Executor
	logger *logrus.Entry
}

// NewSSHRunner returns a Runner using the ssh binary.
func NewSSHRunner(exec command.Executor, logger *logrus.Entry) *SSHRunner {
	return &SSHRunner{exec: exec, logger: logger}
}

// Run executes cmd on node. BatchMode keeps a missing key from degenerating
// into a password prompt inside a non-interactive pipeline.
func (r *SSHRunner) Run(ctx context.Context, node string, cmd string) ([]byte, error) {
	r.logger.WithFields(logrus.Fields{"node": node, "cmd": cmd}).Debug("Running remote command")

	ssh := r.exec.CommandContext(ctx, "ssh",
		"-o", "BatchMode=yes",
		"-o", "StrictHostKeyChecking=accept-new",
		node, cmd)
	out, err := ssh.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return out, fmt.Errorf("remote command on %s exited %d: %s",
				node, exitErr.ExitCode(), strings.TrimSpace(string(out)))
		}
		return out, err
	}
	return out, nil
}
