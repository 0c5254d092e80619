package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"bindery/internal/textutil"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and tracked job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client := newAPIClient(cfg)
			health, err := client.health()
			if err != nil {
				return err
			}
			status, err := client.status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon:   %s (pid %d)\n", health.Status, status.PID)
			if !health.LastTick.IsZero() {
				fmt.Fprintf(out, "Last tick: %s (%d total)\n", health.LastTick.Local().Format("2006-01-02 15:04:05"), health.TickCount)
			}
			if health.LastError != "" {
				fmt.Fprintf(out, "Last error: %s\n", health.LastError)
			}
			fmt.Fprintf(out, "Inbox:    %s\n", status.InboxDir)
			fmt.Fprintf(out, "Output:   %s\n", status.OutputDir)
			fmt.Fprintln(out)

			statuses := make([]string, 0, len(status.JobCounts))
			for name := range status.JobCounts {
				statuses = append(statuses, name)
			}
			sort.Strings(statuses)
			counts := newBookTable("Status", "Jobs")
			for _, name := range statuses {
				counts.addRow(textutil.StatusLabel(name), fmt.Sprintf("%d", status.JobCounts[name]))
			}
			counts.addRow("Total", fmt.Sprintf("%d", status.TotalTracked))
			fmt.Fprintln(out, counts.render())

			depTable := newBookTable("Dependency", "Command", "State")
			for _, dep := range status.Dependencies {
				state := "missing"
				if dep.Available {
					state = "ok"
				} else if dep.Optional {
					state = "missing (optional)"
				}
				depTable.addRow(dep.Name, dep.Command, state)
			}
			fmt.Fprintln(out, depTable.render())
			return nil
		},
	}
}
