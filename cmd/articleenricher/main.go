package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ArticleEnricher/internal/app"
	"ArticleEnricher/internal/config"
	"ArticleEnricher/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "articleenricher:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "articleenricher",
		Short:         "Enrich generated articles before publishing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config (defaults to $ARTICLE_ENRICHER_CONFIG)")

	setup := func(cmd *cobra.Command) (*app.Application, error) {
		cfg := config.Load()
		if configPath != "" {
			cfg = config.LoadFile(configPath)
		}
		logger := logging.NewWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
		application, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			logger.Error("application setup failed", "error", err)
			return nil, err
		}
		return application, nil
	}

	var asJSON bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Enrich every pending draft once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := setup(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			report, err := application.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("batch failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			_, err = fmt.Fprintf(out, "run %s: enriched %d, skipped %d, rejected %d, failed %d\n",
				report.RunID, len(report.Enriched), len(report.Skipped), len(report.Rejected), len(report.Failed))
			return err
		},
	}
	runCmd.Flags().BoolVar(&asJSON, "json", false, "print the batch report as JSON")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run batches on the configured cron expression until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := setup(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Schedule(cmd.Context())
		},
	}

	root.AddCommand(runCmd, scheduleCmd)
	return root
}
