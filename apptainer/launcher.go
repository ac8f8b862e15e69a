// Package apptainer starts named container apps inside a compute allocation.
package apptainer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/remote"
	"github.com/sirupsen/logrus"
)

// AppSpec describes one in-container app launch.
type AppSpec struct {
	// Node is the compute node that owns the allocation.
	Node string
	// Image is the .sif path or remote reference.
	Image string
	// App is the named %app entry point inside the image.
	App string
	// BindPaths are mounted into the container.
	BindPaths []string
	// Env is exported into the container environment.
	Env map[string]string
	// ExtraArgs are passed to apptainer run, e.g. --nv for GPU binding.
	ExtraArgs []string
	// Args are passed to the app itself.
	Args []string
	// OutputPath, when set, receives the app's combined output. It must be on
	// a shared filesystem when the login node needs to read it.
	OutputPath string
	// Detach launches the app in the background and returns immediately.
	Detach bool
}

// Launcher starts container apps on allocated nodes.
type Launcher interface {
	RunApp(ctx context.Context, spec AppSpec) error
}

// CLILauncher issues apptainer commands through a remote.Runner.
type CLILauncher struct {
	runner remote.Runner
	binary string
	logger *logrus.Entry
}

// NewCLILauncher returns a Launcher using the given apptainer binary.
func NewCLILauncher(runner remote.Runner, binary string, logger *logrus.Entry) *CLILauncher {
	if binary == "" {
		binary = "apptainer"
	}
	return &CLILauncher{runner: runner, binary: binary, logger: logger}
}

// RunApp starts the named app inside the image on the allocation's node.
// There is no retry: the caller decides whether a failed launch is worth the
// allocation it leaves behind.
func (l *CLILauncher) RunApp(ctx context.Context, spec AppSpec) error {
	cmd := l.buildCommand(spec)
	l.logger.WithFields(logrus.Fields{"node": spec.Node, "app": spec.App}).Info("Launching container app")

	if out, err := l.runner.Run(ctx, spec.Node, cmd); err != nil {
		return errors.ContainerLaunchFailed(spec.App, spec.Node, err).
			WithDetail("output", strings.TrimSpace(string(out)))
	}
	return nil
}

// buildCommand renders the remote shell command for the launch.
func (l *CLILauncher) buildCommand(spec AppSpec) string {
	var parts []string

	// Environment exports sorted for a stable command line.
	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("APPTAINERENV_%s=%q", k, spec.Env[k]))
	}

	parts = append(parts, l.binary, "run", "--app", spec.App)
	for _, arg := range spec.ExtraArgs {
		parts = append(parts, arg)
	}
	if len(spec.BindPaths) > 0 {
		parts = append(parts, "-B", strings.Join(spec.BindPaths, ","))
	}
	parts = append(parts, spec.Image)
	parts = append(parts, spec.Args...)

	cmd := strings.Join(parts, " ")
	if spec.OutputPath != "" {
		cmd = fmt.Sprintf("%s >> %q 2>&1", cmd, spec.OutputPath)
	}
	if spec.Detach {
		cmd = fmt.Sprintf("nohup sh -c '%s' >/dev/null 2>&1 &", strings.ReplaceAll(cmd, "'", `'\''`))
	}
	return cmd
}
