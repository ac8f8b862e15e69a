package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyakvnc/hyakvnc/cli"
	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/session"
)

// NewStopCmd creates the stop command.
func NewStopCmd() *cobra.Command {
	var (
		all      bool
		noCancel bool
	)

	cmd := &cobra.Command{
		Use:   "stop [session]",
		Short: "Stop a session and release its allocation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(c)
			if err != nil {
				return handleError(c, err)
			}
			mgr, err := buildManager(c, cfg)
			if err != nil {
				return handleError(c, err)
			}
			opts := session.StopOptions{NoCancel: noCancel}

			if all {
				results, err := mgr.StopAll(c.Context(), opts)
				if err != nil {
					return handleError(c, err)
				}
				if len(results) == 0 {
					return handleError(c, errors.SessionNotFound(""))
				}
				var failed int
				for _, result := range results {
					if result.Err != nil {
						failed++
						fmt.Printf("stop %s (job %s): %v\n", result.Name, result.JobID, result.Err)
						continue
					}
					fmt.Printf("Stopped %s (job %s)\n", result.Name, result.JobID)
				}
				if failed > 0 {
					return handleError(c, errors.New(errors.ErrCodeInternal,
						fmt.Sprintf("%d of %d sessions failed to stop", failed, len(results))))
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
			if err := mgr.Stop(c.Context(), sess, opts); err != nil {
				return handleError(c, err)
			}
			fmt.Printf("Stopped %s (job %s)\n", sess.Name, sess.JobID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Stop every session")
	cmd.Flags().BoolVar(&noCancel, "no-cancel", false, "Tear down locally but leave the job running")
	return cmd
}
