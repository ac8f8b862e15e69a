package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyakvnc/hyakvnc/cli"
	"github.com/hyakvnc/hyakvnc/session"
)

// NewCreateCmd creates the create command.
func NewCreateCmd() *cobra.Command {
	var (
		name      string
		image     string
		account   string
		partition string
		cpus      int
		memory    string
		gpus      string
		timeLimit string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new VNC session",
		Long: `Create a new VNC session: submit a batch job, wait for the allocation,
start the VNC server inside the container, and open a connection path to it.

Resource flags override the configuration for this session only.`,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(c)
			if err != nil {
				return handleError(c, err)
			}
			if image != "" {
				cfg.Container.Image = image
			}
			if account != "" {
				cfg.Slurm.Account = account
			}
			if partition != "" {
				cfg.Slurm.Partition = partition
			}
			if cpus > 0 {
				cfg.Slurm.CPUs = cpus
			}
			if memory != "" {
				cfg.Slurm.Memory = memory
			}
			if gpus != "" {
				cfg.Slurm.GPUs = gpus
			}
			if timeLimit != "" {
				cfg.Slurm.TimeLimit = timeLimit
			}
			if err := cfg.Validate(); err != nil {
				return handleError(c, err)
			}

			mgr, err := buildManager(c, cfg)
			if err != nil {
				return handleError(c, err)
			}

			sess, err := mgr.Create(c.Context(), session.CreateOptions{Name: name})
			if err != nil {
				return handleError(c, err)
			}

			if cli.GetOptions(c).JSONOutput {
				out, err := json.MarshalIndent(sess, "", "  ")
				if err != nil {
					return handleError(c, err)
				}
				fmt.Println(string(out))
				return nil
			}
			fmt.Println(session.Instructions(sess, cfg.LoginHost))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Session name (generated when empty)")
	cmd.Flags().StringVar(&image, "image", "", "Container image override")
	cmd.Flags().StringVar(&account, "account", "", "Scheduler account override")
	cmd.Flags().StringVar(&partition, "partition", "", "Scheduler partition override")
	cmd.Flags().IntVar(&cpus, "cpus", 0, "CPU count override")
	cmd.Flags().StringVar(&memory, "mem", "", "Memory override, e.g. 16G")
	cmd.Flags().StringVar(&gpus, "gpus", "", "GPU request override, e.g. a40:2")
	cmd.Flags().StringVar(&timeLimit, "time", "", "Time limit override, e.g. 4:00:00")
	return cmd
}
