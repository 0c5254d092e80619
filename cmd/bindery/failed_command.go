package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bindery/internal/quarantine"
	"bindery/internal/textutil"
)

func newFailedCommand(ctx *commandContext) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List quarantined books and why they failed",
		Long: "Reads the quarantine records directly from disk, so it works " +
			"whether or not the daemon is running.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			records, err := quarantine.Scan(cfg.Paths.QuarantineDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No quarantined books.")
				return nil
			}

			tbl := newBookTable("Book", "Class", "Attempts", "Failed At", "Reason")
			for _, record := range records {
				tbl.addRow(
					textutil.BookTitle(record.JobKey),
					record.Classification,
					fmt.Sprintf("%d/%d", record.RetryCount, record.MaxRetries),
					record.FailedAt.Local().Format("2006-01-02 15:04"),
					truncate(record.Reason, 60),
				)
			}
			fmt.Fprintln(out, tbl.render())

			if verbose {
				for _, record := range records {
					fmt.Fprintf(out, "\n%s\n", textutil.BookTitle(record.JobKey))
					fmt.Fprintf(out, "  path:     %s\n", record.Path)
					fmt.Fprintf(out, "  reason:   %s\n", record.Reason)
					fmt.Fprintf(out, "  recovery: %s\n", record.RecoveryHint)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show full reasons and recovery hints")
	return cmd
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
