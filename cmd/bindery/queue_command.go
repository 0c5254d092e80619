package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bindery/internal/registry"
	"bindery/internal/textutil"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List the jobs the daemon is tracking",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if statusFilter != "" {
				if _, ok := registry.ParseStatus(statusFilter); !ok {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
			}

			queue, err := newAPIClient(cfg).queue(statusFilter)
			if err != nil {
				return err
			}
			if len(queue.Jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tracked jobs.")
				return nil
			}

			tbl := newBookTable("Book", "Status", "Size", "Attempts", "Next Retry")
			for _, job := range queue.Jobs {
				retry := fmt.Sprintf("%d/%d", job.RetryCount, job.MaxRetries)
				next := ""
				if job.NextRetryAt != nil {
					if wait := time.Until(*job.NextRetryAt); wait > 0 {
						next = "in " + wait.Round(time.Second).String()
					} else {
						next = "now"
					}
				}
				tbl.addRow(
					textutil.BookTitle(job.Key),
					textutil.StatusLabel(job.Status),
					job.Size,
					retry,
					next,
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tbl.render())
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by job status (new, stable, processing, needs_retry, failed)")
	return cmd
}
