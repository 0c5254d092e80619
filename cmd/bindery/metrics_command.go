package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"bindery/internal/metrics"
	"bindery/internal/textutil"
)

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show conversion history and aggregate statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := metrics.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Attempts:   %d (%.0f%% success)\n", stats.TotalAttempts, stats.SuccessRate*100)
			fmt.Fprintf(out, "Completed:  %d\n", stats.Completed)
			fmt.Fprintf(out, "Retried:    %d\n", stats.Retried)
			fmt.Fprintf(out, "Failed:     %d\n", stats.FailedTerminally)
			fmt.Fprintf(out, "Output:     %s\n", humanize.IBytes(uint64(stats.TotalOutputBytes)))
			fmt.Fprintf(out, "Time spent: %s\n", (time.Duration(stats.TotalDurationSeconds) * time.Second).String())

			rows, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return nil
			}
			fmt.Fprintln(out)

			tbl := newBookTable("When", "Book", "Outcome", "Duration", "Error")
			for _, row := range rows {
				tbl.addRow(
					row.RecordedAt.Local().Format("2006-01-02 15:04"),
					textutil.BookTitle(row.JobKey),
					textutil.StatusLabel(row.Outcome),
					fmt.Sprintf("%.1fs", row.DurationSeconds),
					truncate(row.ErrorMessage, 50),
				)
			}
			fmt.Fprintln(out, tbl.render())
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of recent attempts to show")
	return cmd
}
