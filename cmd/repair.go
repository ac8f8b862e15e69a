package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyakvnc/hyakvnc/cli"
	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/session"
)

// NewRepairCmd creates the repair command.
func NewRepairCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "repair [session]",
		Short: "Restore reachability for sessions with a dead connection path",
		Long: `Repair re-reads the VNC endpoint and reopens the connection path for
sessions whose allocation still runs. The path always gets a fresh local
port; reconnect your viewer to the port printed afterwards.`,
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

			if all {
				results, err := mgr.RepairAll(c.Context())
				if err != nil {
					return handleError(c, err)
				}
				if len(results) == 0 {
					return handleError(c, errors.SessionNotFound(""))
				}
				var failed int
				for _, result := range results {
					printRepairResult(result)
					if result.Err != nil {
						failed++
					}
				}
				if failed > 0 {
					return handleError(c, errors.New(errors.ErrCodeInternal,
						fmt.Sprintf("%d of %d sessions failed to repair", failed, len(results))))
				}
				return nil
			}

			selector := ""
			if len(args) == 1 {
				selector = args[0]
			}
			sess, err := mgr.Resolve(selector)
			if err != nil {
				return handleError(c, err)
			}
			result, err := mgr.Repair(c.Context(), sess)
			if err != nil {
				return handleError(c, err)
			}
			printRepairResult(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Repair every session")
	return cmd
}

func printRepairResult(result *session.RepairResult) {
	sess := result.Session
	switch {
	case result.Err != nil:
		fmt.Printf("repair %s (job %s): %v\n", sess.Name, sess.JobID, result.Err)
	case result.Repaired:
		fmt.Printf("Repaired %s (job %s): now listening on %s\n",
			sess.Name, sess.JobID, sess.ConnectionPath.LocalAddr())
	default:
		fmt.Printf("Skipped %s (job %s): %s\n", sess.Name, sess.JobID, result.Reason)
	}
}
