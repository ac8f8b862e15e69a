package apptainer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyakvnc/hyakvnc/command"
	"github.com/hyakvnc/hyakvnc/errors"
)

// PasswordFilePath returns the path the VNC server reads its password from,
// ~/.vnc/passwd. The server refuses to start without it, so session creation
// checks this file before submitting anything.
func PasswordFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to resolve home directory")
	}
	return filepath.Join(home, ".vnc", "passwd"), nil
}

// WritePasswordFile sets the VNC password by running vncpasswd inside the
// container on the local host. The password travels over stdin, never argv,
// and the file lands in ~/.vnc/passwd with owner-only permissions. The VNC
// server reads it from there on its next start; running sessions keep their
// old password until restarted.
func WritePasswordFile(ctx context.Context, exec command.Executor, binary, image, password string) error {
	if binary == "" {
		binary = "apptainer"
	}
	passwdPath, err := PasswordFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(passwdPath), 0o700); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create ~/.vnc")
	}

	cmd := exec.CommandContext(ctx, binary, "exec", image, "vncpasswd", "-f")
	cmd.Stdin = strings.NewReader(password + "\n")
	out, err := cmd.Output()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeContainerLaunchFailed, fmt.Sprintf("vncpasswd failed in image %s", image))
	}
	if err := os.WriteFile(passwdPath, out, 0o600); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write VNC password file")
	}
	return nil
}
