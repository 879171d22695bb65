package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/ochairo/reposync/internal/domain/interfaces"
	"github.com/ochairo/reposync/internal/domain/services"
	"github.com/ochairo/reposync/internal/external-adapters/prometheus"
)

type syncOptions struct {
	feedURL         string
	dryRun          bool
	summaryFile     string
	metricsTextfile string
}

func newSyncCmd(global *globalOptions) *cobra.Command {
	opts := &syncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization pass",
		Long: heredoc.Doc(`
			Fetch the latest release, download new artifacts into their buckets,
			sign every artifact, ingest Debian and RPM packages and rebuild the
			RPM repository metadata.

			Exit status: 0 on success, 1 when the run was aborted (feed or
			download failure), 2 on configuration errors, 3 when one or more
			buckets failed to publish.
		`),
		Example: heredoc.Doc(`
			# Regular run from cron
			reposync sync --config /etc/reposync/reposync.yml

			# Show what would be executed without running any tool
			reposync sync --dry-run --log-level debug
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.feedURL, "feed-url", "",
		"Release feed endpoint (overrides config and REPOSYNC_FEED_URL)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false,
		"Log external commands and signatures instead of executing them")
	cmd.Flags().StringVar(&opts.summaryFile, "summary-file", "",
		"Write a JSON run summary to this path")
	cmd.Flags().StringVar(&opts.metricsTextfile, "metrics-textfile", "",
		"Write Prometheus metrics to this path (overrides config)")

	return cmd
}

func runSync(cmd *cobra.Command, global *globalOptions, opts *syncOptions) error {
	cfg, err := loadConfig(cmd, global)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("feed-url") {
		cfg.Feed.URL = opts.feedURL
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = opts.dryRun
	}
	if cmd.Flags().Changed("metrics-textfile") {
		cfg.Metrics.Textfile = opts.metricsTextfile
	}
	if err := cfg.Validate(); err != nil {
		return usageError(fmt.Errorf("invalid configuration: %w", err))
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	recorder := prometheus.NewRecorder()
	orchestrator, err := newSyncOrchestrator(cfg, recorder, logger)
	if err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return err
		}
		return &exitError{code: services.ExitFatal, err: err}
	}

	logger.Info("starting sync",
		interfaces.F("root", cfg.Root),
		interfaces.F("feed", cfg.Feed.URL),
		interfaces.F("dry_run", cfg.DryRun),
	)

	result, syncErr := orchestrator.Sync(cmd.Context())
	summary := result.Summary

	fmt.Fprint(cmd.OutOrStdout(), summary.String())

	if opts.summaryFile != "" {
		if err := writeSummary(opts.summaryFile, summary); err != nil {
			logger.Error("failed to write summary", interfaces.F("error", err))
		}
	}
	if cfg.Metrics.Textfile != "" {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Error("failed to write metrics", interfaces.F("error", err))
		}
	}

	if summary.Fatal() != nil && summary.FatalTransient() {
		logger.Warn("feed failure looks transient, the next run should retry it")
	}

	if code := result.ExitCode(); code != services.ExitOK {
		// errors were already logged and summarized
		return &exitError{code: code}
	}
	if syncErr != nil {
		return &exitError{code: services.ExitFatal, err: syncErr}
	}
	return nil
}

// writeSummary writes the run summary as indented JSON
func writeSummary(path string, summary *services.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create summary directory: %w", err)
	}
	//nolint:gosec // G306: summary is read by monitoring
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
