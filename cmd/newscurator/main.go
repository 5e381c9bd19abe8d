// Package main provides the newscurator CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deusflow/newscurator/internal/app"
	"github.com/deusflow/newscurator/internal/config"
	"github.com/deusflow/newscurator/internal/feedback"
	"github.com/deusflow/newscurator/internal/logger"
	"github.com/deusflow/newscurator/internal/metrics"
	"github.com/deusflow/newscurator/internal/storage"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd creates the root command for the newscurator CLI.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "newscurator",
		Short:        "Curate daily tech and sports news",
		Long:         "Newscurator collects news from RSS, NewsAPI, Hacker News and Reddit, ranks it with an LLM and stores the daily selection.",
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.SetVersionTemplate("newscurator version {{.Version}}\n")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newInsightsCmd())
	rootCmd.AddCommand(newFeedbackCmd())
	rootCmd.AddCommand(newDBCheckCmd())

	return rootCmd
}

// setup loads configuration and installs the logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	return cfg, logger.Init(), nil
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Store, error) {
	return storage.Open(ctx, cfg.DatabaseURL, cfg.StoreFile, log.With("component", "storage"))
}

// newRunCmd creates the run subcommand.
func newRunCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect, rank and store one selection",
		Long:  "Run the curation pipeline once and print the selected articles.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.EnableHTTPMonitoring {
				go func() {
					if err := metrics.Serve(ctx, ":"+cfg.MonitoringPort, metrics.Global, log.With("component", "monitoring")); err != nil {
						log.Error("monitoring server failed", "error", err)
					}
				}()
			}

			store, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cls, closeCls, err := app.BuildClassifier(ctx, cfg, log.With("component", "classifier"))
			if err != nil {
				return err
			}
			defer func() { _ = closeCls() }()

			pipeline := app.NewPipeline(app.Deps{
				Config:     cfg.Pipeline(),
				Adapters:   app.BuildAdapters(cfg, log),
				Enricher:   app.BuildEnricher(cfg, log),
				Classifier: cls,
				Store:      store,
				Health:     metrics.Global,
				Log:        log.With("component", "pipeline"),
			})

			rep, err := pipeline.Run(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return writeReportJSON(cmd.OutOrStdout(), rep)
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}

// newInsightsCmd creates the insights subcommand.
func newInsightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Show what past feedback says about categories, sources and keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			in := feedback.NewAnalyzer(store, log.With("component", "feedback")).Insights(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(in)
		},
	}
}

// parseRating maps up/down/clear to the stored feedback value.
func parseRating(s string) (int, error) {
	switch strings.ToLower(s) {
	case "up", "+1", "1", "like":
		return 1, nil
	case "down", "-1", "dislike":
		return -1, nil
	case "clear", "0", "none":
		return 0, nil
	default:
		return 0, fmt.Errorf("invalid rating %q: must be 'up', 'down' or 'clear'", s)
	}
}

// newFeedbackCmd creates the feedback subcommand.
func newFeedbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feedback <url> <up|down|clear>",
		Short: "Rate a stored article",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := parseRating(args[1])
			if err != nil {
				return err
			}
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SetFeedback(cmd.Context(), args[0], rating); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("%s has not been selected yet", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s for %s\n", args[1], args[0])
			return nil
		},
	}
}

// newDBCheckCmd creates the dbcheck subcommand.
func newDBCheckCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "dbcheck",
		Short: "Check the article store and show recent selections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cfg.DatabaseURL != "" {
				fmt.Fprintf(out, "Database: %s\n", maskPassword(cfg.DatabaseURL))
			} else {
				fmt.Fprintf(out, "Store file: %s\n", cfg.StoreFile)
			}

			store, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer func() { _ = store.Close() }()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}
			recent, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to get recent articles: %w", err)
			}
			printDBCheck(out, stats, recent)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of recent articles to show")

	return cmd
}
