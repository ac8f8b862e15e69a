package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hyakvnc/hyakvnc/cli"
	"github.com/hyakvnc/hyakvnc/session"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [session]",
		Short: "Show session state reconciled against the scheduler",
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

			var observations []*session.Observation
			if len(args) == 1 {
				sess, err := mgr.Resolve(args[0])
				if err != nil {
					return handleError(c, err)
				}
				obs, err := mgr.Observe(c.Context(), sess)
				if err != nil {
					return handleError(c, err)
				}
				observations = []*session.Observation{obs}
			} else {
				observations, err = mgr.ObserveAll(c.Context())
				if err != nil {
					return handleError(c, err)
				}
			}

			if cli.GetOptions(c).JSONOutput {
				out, err := json.MarshalIndent(observations, "", "  ")
				if err != nil {
					return handleError(c, err)
				}
				fmt.Println(string(out))
				return nil
			}

			if len(observations) == 0 {
				fmt.Println("No sessions.")
			} else {
				renderObservations(observations)
			}

			if orphans, err := mgr.Store().Orphans(); err == nil && len(orphans) > 0 {
				fmt.Printf("\nUnreadable session directories (check 'squeue --me' before removing): %v\n", orphans)
			}
			if unadopted, err := mgr.UnadoptedJobs(c.Context()); err == nil && len(unadopted) > 0 {
				fmt.Println("\nScheduler jobs with no session record:")
				for _, alloc := range unadopted {
					fmt.Printf("  job %s (%s, %s) on %s; cancel with 'scancel %s' if unwanted\n",
						alloc.JobID, alloc.Name, alloc.State, alloc.Node(), alloc.JobID)
				}
			}
			return nil
		},
	}
	return cmd
}

func renderObservations(observations []*session.Observation) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tNAME\tJOB STATE\tTIME LEFT\tNODE\tVNC\tLOCAL")
	for _, obs := range observations {
		sess := obs.Session

		jobState := string(obs.JobState)
		if !obs.JobKnown {
			jobState = "gone"
		}
		vnc := "inactive"
		switch {
		case obs.VNCActive:
			vnc = "active"
		case obs.Broken:
			vnc = "broken"
		}
		local := "-"
		if sess.ConnectionPath != nil {
			local = sess.ConnectionPath.LocalAddr()
		}
		node := sess.Allocation.Node()
		if node == "" {
			node = "-"
		}
		timeLeft := obs.TimeLeft
		if timeLeft == "" {
			timeLeft = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			sess.JobID, sess.Name, jobState, timeLeft, node, vnc, local)
	}
	w.Flush()
}
