package main

import (
	"os"

	"github.com/hyakvnc/hyakvnc/cli"
	"github.com/hyakvnc/hyakvnc/cmd"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"hyakvnc",
		"Manage VNC sessions on batch-scheduled HPC clusters",
	)

	rootCmd.AddCommand(cmd.NewCreateCmd())
	rootCmd.AddCommand(cmd.NewStatusCmd())
	rootCmd.AddCommand(cmd.NewShowCmd())
	rootCmd.AddCommand(cmd.NewStopCmd())
	rootCmd.AddCommand(cmd.NewRepairCmd())
	rootCmd.AddCommand(cmd.NewPasswdCmd())
	rootCmd.AddCommand(cmd.NewConfigCmd())
	rootCmd.AddCommand(cmd.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
