package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"bindery/internal/daemon"
	"bindery/internal/logging"
	"bindery/internal/preflight"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bindery daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			if !skipPreflight {
				results := preflight.RunAll(cmd.Context(), cfg)
				if !preflight.Passed(results) {
					var failed []string
					for _, result := range results {
						if !result.Passed {
							failed = append(failed, fmt.Sprintf("%s: %s", result.Name, result.Detail))
						}
					}
					return fmt.Errorf("preflight checks failed:\n  %s", strings.Join(failed, "\n  "))
				}
				for _, status := range preflight.CheckSystemDeps(cfg) {
					if !status.Optional && !status.Available {
						return fmt.Errorf("missing required dependency %s: %s", status.Name, status.Detail)
					}
				}
			}

			d, err := daemon.New(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := d.Close(); err != nil {
					logger.Warn("daemon close failed", logging.Error(err))
				}
			}()

			runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bindery daemon running (inbox: %s)\n", cfg.Paths.InboxDir)
			if addr := d.APIAddr(); addr != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "api listening on http://%s\n", addr)
			}

			<-runCtx.Done()
			d.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip environment checks before starting")
	return cmd
}
