package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yourusername/linkedin-connector/internal/connection"
	"github.com/yourusername/linkedin-connector/internal/storage"
)

var errJournalDisabled = errors.New("run journal is disabled: set database.path in the config")

func newHistoryCmd(configPath *string) *cobra.Command {
	var (
		limit   int
		details bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if a.store == nil {
				return errJournalDisabled
			}
			return printHistory(cmd, a.store, limit, details)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	cmd.Flags().BoolVar(&details, "details", false, "list every attempt of each run")
	return cmd
}

func printHistory(cmd *cobra.Command, store *storage.Store, limit int, details bool) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	stats, err := store.GetStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %d runs, %d attempts (%d sent, %d pending, %d failed)\n\n",
		styleBrand.Render("Journal"),
		stats["total_runs"],
		stats["total_attempts"],
		stats[string(connection.OutcomeSent)],
		stats[string(connection.OutcomePending)],
		stats[string(connection.OutcomeFailed)],
	)

	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	for _, run := range runs {
		printRun(w, run)
		if !details {
			continue
		}
		attempts, err := store.Attempts(ctx, run.ID)
		if err != nil {
			return err
		}
		for _, at := range attempts {
			fmt.Fprintf(w, "      %s  %s  %s\n",
				at.AttemptedAt.Format(connection.TimestampLayout),
				outcomeStyle(at.Outcome).Render(fmt.Sprintf("%-9s", at.Outcome)),
				at.ProfileURL,
			)
		}
	}
	return nil
}

func printRun(w io.Writer, run storage.Run) {
	state := styleSuccess.Render("finished")
	switch {
	case run.FinishedAt == nil:
		state = styleWarning.Render("running")
	case run.Error != "":
		state = styleError.Render("failed: " + run.Error)
	}
	fmt.Fprintf(w, "  %s  %s  %d/%d  %s\n",
		styleLabel.Render(run.StartedAt.Format(connection.TimestampLayout)),
		run.ID,
		run.Processed,
		run.Requested,
		state,
	)
}
