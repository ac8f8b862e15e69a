package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hyakvnc/hyakvnc/cli"
	"github.com/hyakvnc/hyakvnc/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return cli.NewVersionCommand("hyakvnc", cli.VersionInfo{
		Version:   version.Version,
		Commit:    version.Commit,
		BuildDate: version.BuildDate,
		BuildArch: version.BuildArch,
	})
}
