package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/store"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect stored meeting requests",
	}
	cmd.AddCommand(newJobsListCmd())
	cmd.AddCommand(newJobsShowCmd())
	return cmd
}

func newJobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored jobs with their state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ids, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			jobs := make([]*job.Job, 0, len(ids))
			for _, id := range ids {
				j, err := st.Read(cmd.Context(), id)
				if err != nil {
					return err
				}
				jobs = append(jobs, j)
			}
			return printJobs(cmd.OutOrStdout(), jobs)
		},
	}
}

func newJobsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Print a stored job as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			j, err := st.Read(cmd.Context(), args[0])
			if errors.Is(err, job.ErrNotFound) {
				return fmt.Errorf("job %s not found", args[0])
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(j)
		},
	}
}

// openStore opens the configured store directly, without the rest of the
// gatekeeper.
func openStore() (store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.Store.Type, cfg.Store.Path, newLogger(os.Stderr, false, false))
}

func printJobs(w io.Writer, jobs []*job.Job) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tREQUESTER\tMESSAGES\tUPDATED")
	for _, j := range jobs {
		requester := j.Requester
		if requester == "" {
			requester = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", j.ID, j.State, requester, len(j.Messages), j.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
