package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyakvnc/hyakvnc/cli"
	"github.com/hyakvnc/hyakvnc/session"
)

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [session]",
		Short: "Show connection instructions for a session",
		Long: `Show how to connect to a session. When the allocation is running but the
connection path died, the path is repaired first and the instructions point
at the new local port.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(c)
			if err != nil {
				return handleError(c, err)
			}
			mgr, err := buildManager(c, cfg)
			if err != nil {
				return handleError(c, err)
			}

			selector := ""
			if len(args) == 1 {
				selector = args[0]
			}
			sess, err := mgr.Resolve(selector)
			if err != nil {
				return handleError(c, err)
			}
			sess, err = mgr.Show(c.Context(), sess)
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
	return cmd
}
