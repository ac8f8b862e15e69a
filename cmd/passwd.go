package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hyakvnc/hyakvnc/apptainer"
	"github.com/hyakvnc/hyakvnc/cli"
	"github.com/hyakvnc/hyakvnc/command"
	"github.com/hyakvnc/hyakvnc/errors"
)

// NewPasswdCmd creates the passwd command.
func NewPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Set the VNC password",
		Long: `Set the VNC password used by new sessions. The password is hashed by
vncpasswd inside the container and written to ~/.vnc/passwd. Sessions that
are already running keep the old password until their server restarts.`,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(c)
			if err != nil {
				return handleError(c, err)
			}

			fmt.Fprint(os.Stderr, "New VNC password: ")
			password, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return handleError(c, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read password"))
			}
			fmt.Fprint(os.Stderr, "Repeat password: ")
			confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return handleError(c, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read password"))
			}
			if string(password) != string(confirm) {
				return handleError(c, errors.New(errors.ErrCodeInvalidInput, "passwords do not match"))
			}
			if len(password) < 6 {
				return handleError(c, errors.New(errors.ErrCodeInvalidInput, "password must be at least 6 characters"))
			}

			err = apptainer.WritePasswordFile(c.Context(), &command.RealExecutor{},
				cfg.Container.Binary, cfg.Container.Image, string(password))
			if err != nil {
				return handleError(c, err)
			}
			fmt.Println("VNC password updated.")
			return nil
		},
	}
}
