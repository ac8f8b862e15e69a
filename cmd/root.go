// Package cmd implements the hyakvnc subcommands.
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hyakvnc/hyakvnc/apptainer"
	"github.com/hyakvnc/hyakvnc/cli"
	"github.com/hyakvnc/hyakvnc/command"
	"github.com/hyakvnc/hyakvnc/config"
	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/logging"
	"github.com/hyakvnc/hyakvnc/pkg/models"
	"github.com/hyakvnc/hyakvnc/pkg/paths"
	"github.com/hyakvnc/hyakvnc/remote"
	"github.com/hyakvnc/hyakvnc/session"
	"github.com/hyakvnc/hyakvnc/slurm"
	"github.com/hyakvnc/hyakvnc/store"
	"github.com/hyakvnc/hyakvnc/tunnel"
)

// buildManager wires a session manager from the resolved configuration.
func buildManager(c *cobra.Command, cfg *config.Config) (*session.Manager, error) {
	exec := &command.RealExecutor{}
	logger := logging.NewLogger("hyakvnc")

	slurmClient := slurm.NewCLIClient(exec, cfg.JobPrefix, cfg.Slurm.PollInterval.Std(), logger)
	runner := remote.NewSSHRunner(exec, logger)
	launcher := apptainer.NewCLILauncher(runner, cfg.Container.Binary, logger)
	tunnels := tunnel.NewSSHManager(exec, cfg.Tunnel.Binary, cfg.Tunnel.BasePort,
		cfg.Tunnel.VerifyAttempts, cfg.Tunnel.VerifyDelay.Std(), logger)

	st, err := store.New(paths.SessionsDir())
	if err != nil {
		return nil, err
	}

	mgr := session.NewManager(cfg, slurmClient, launcher, tunnels, runner, st)
	if isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stderr.Fd()) {
		mgr.Choose = promptForSession
	}
	return mgr, nil
}

// promptForSession asks the user to pick one session from several. Only used
// when both stdin and stderr are terminals.
func promptForSession(candidates []*models.Session) (*models.Session, error) {
	fmt.Fprintln(os.Stderr, "Several sessions exist:")
	for i, sess := range candidates {
		fmt.Fprintf(os.Stderr, "  [%d] %s (job %s, %s)\n", i+1, sess.Name, sess.JobID, sess.State)
	}
	fmt.Fprint(os.Stderr, "Select a session: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return nil, errors.AmbiguousSelection(len(candidates))
	}
	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || choice < 1 || choice > len(candidates) {
		return nil, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("invalid selection %q", strings.TrimSpace(line)))
	}
	return candidates[choice-1], nil
}

// handleError prints guidance for err and returns it for exit-code mapping.
func handleError(c *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	opts := cli.GetOptions(c)
	return cli.NewErrorHandler(opts.Verbose).Handle(err)
}
