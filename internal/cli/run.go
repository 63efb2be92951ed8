package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/linkedin-connector/internal/batch"
	"github.com/yourusername/linkedin-connector/internal/connection"
	"github.com/yourusername/linkedin-connector/internal/logger"
	"github.com/yourusername/linkedin-connector/internal/report"
)

const bannerCountdown = 5

type runOptions struct {
	csvPath string
	limit   int
	out     string
	yes     bool
}

func newRunCmd(configPath *string) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send connection requests for the profiles in a CSV",
		Example: `  linkedin-connector run --csv profiles.csv --limit 10
  linkedin-connector run --csv profiles.csv --out results.csv --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBatch(ctx, cmd, *configPath, opts)
		},
	}

	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "CSV with profile_url and invite_msg columns")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "number of profiles to process (default: run.default_limit capped by the row count)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "report path (default: run.report_path)")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "skip the warning banner")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}

func runBatch(ctx context.Context, cmd *cobra.Command, configPath string, opts runOptions) error {
	a, err := setup(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	tasks, err := readTasks(opts.csvPath)
	if err != nil {
		return err
	}

	limit := opts.limit
	if limit == 0 {
		limit = batch.DefaultLimit(len(tasks), a.cfg.Run.DefaultLimit)
	}
	out := opts.out
	if out == "" {
		out = a.cfg.Run.ReportPath
	}

	runner, err := a.runner()
	if err != nil {
		return err
	}

	if !opts.yes {
		if err := displayWarningBanner(ctx, cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	logger.Info("Starting run", "csv", opts.csvPath, "rows", len(tasks), "limit", limit)
	results, runErr := runner.Run(ctx, tasks, limit, batch.LogObserver{})

	if len(results) > 0 {
		if err := writeReport(out, results); err != nil {
			return errors.Join(runErr, err)
		}
		printSummary(cmd.OutOrStdout(), results, out)
	}

	if runErr != nil {
		return fmt.Errorf("run stopped after %d of %d profiles: %w", len(results), limit, runErr)
	}
	return nil
}

func readTasks(path string) ([]connection.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()

	tasks, err := report.LoadTasks(f)
	if err != nil {
		return nil, fmt.Errorf("invalid CSV %s: %w", path, err)
	}
	return tasks, nil
}

func writeReport(path string, results []connection.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := report.Write(f, results); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	logger.Info("Report saved", "path", path, "rows", len(results))
	return nil
}

func printSummary(w io.Writer, results []connection.Result, out string) {
	counts := make(map[connection.Outcome]int)
	fmt.Fprintln(w)
	for _, row := range results {
		counts[row.Outcome]++
		fmt.Fprintf(w, "  %s  %s\n",
			outcomeStyle(string(row.Outcome)).Render(fmt.Sprintf("%-9s", row.Outcome)),
			row.ProfileURL,
		)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %d sent, %d pending, %d failed\n",
		styleLabel.Render("Summary"),
		counts[connection.OutcomeSent],
		counts[connection.OutcomePending],
		counts[connection.OutcomeFailed],
	)
	fmt.Fprintf(w, "  %s  %s\n", styleLabel.Render("Report"), out)
}

func displayWarningBanner(ctx context.Context, w io.Writer) error {
	fmt.Fprintln(w, styleBanner.Render(styleWarning.Render("WARNING: automated use of LinkedIn")+`

This tool drives a real browser session with your LinkedIn account.
Automating LinkedIn violates its User Agreement and may get the
account restricted. Use it on accounts you are willing to risk and
keep batches small.

Press Ctrl+C at any time to stop. Results gathered so far are saved.`))

	fmt.Fprintf(w, "%s ", styleBrand.Render("Starting in"))
	for i := bannerCountdown; i > 0; i-- {
		fmt.Fprintf(w, "%d... ", i)
		select {
		case <-ctx.Done():
			fmt.Fprintln(w)
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	fmt.Fprintln(w)
	return nil
}
