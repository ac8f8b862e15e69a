package command

import (
	"context"
	"os/exec"
)

// Executor creates exec.Cmd instances. Everything hyakvnc runs is an external
// tool: sbatch, squeue, scancel, apptainer, ssh. Injecting the executor lets
// tests point those names at stub binaries on a fabricated PATH without
// touching the callers.
type Executor interface {
	// Command creates an exec.Cmd for the given tool and arguments.
	Command(name string, args ...string) *exec.Cmd

	// CommandContext is Command bound to a context, used for anything that
	// waits on the scheduler or a remote node.
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// RealExecutor runs commands through os/exec. It is the only Executor used
// outside tests.
type RealExecutor struct{}

// Command creates a standard exec.Cmd.
func (e *RealExecutor) Command(name string, args ...string) *exec.Cmd {
	return exec.Command(name, args...)
}

// CommandContext creates a standard context-aware exec.Cmd.
func (e *RealExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}
