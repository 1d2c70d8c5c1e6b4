package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shipconf/internal/archive"
	"shipconf/internal/config"
	"shipconf/internal/history"
	"shipconf/internal/identifier"
	"shipconf/internal/importer"
	"shipconf/internal/logging"
	"shipconf/internal/metrics"
	"shipconf/internal/notifications"
	"shipconf/internal/services"
	"shipconf/internal/services/acumatica"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import every document in the input folder",
		Long: "Log in once, attach every document found in the input folder to its shipment, " +
			"move each document to the output or problem folder, then log out.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			imp, cleanup, err := buildImporter(cfg, logger, dryRun)
			if err != nil {
				return err
			}
			defer cleanup()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var summary *importer.Summary
			if dryRun {
				summary, err = imp.DryRun(runCtx)
			} else {
				summary, err = imp.Run(runCtx)
			}
			if summary != nil {
				printRunSummary(cmd.OutOrStdout(), summary)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve identifiers only; no login, upload or archival")
	return cmd
}

// buildImporter wires the production collaborators. The returned cleanup
// closes the history store.
func buildImporter(cfg *config.Config, logger *slog.Logger, dryRun bool) (*importer.Importer, func(), error) {
	cleanup := func() {}

	resolver, err := identifier.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}

	var session importer.Session
	if !dryRun {
		client, err := acumatica.NewClient(cfg.API.BaseURL,
			acumatica.WithTimeout(time.Duration(cfg.API.TimeoutSeconds)*time.Second),
		)
		if err != nil {
			return nil, cleanup, services.Wrap(services.ErrConfiguration, "run", "api client", cfg.API.BaseURL, err)
		}
		session = client
	}

	var opts []importer.Option
	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			// The ledger never decides the batch outcome.
			logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions or disable [history]"),
			)
		} else {
			opts = append(opts, importer.WithLedger(store))
			cleanup = func() {
				if err := store.Close(); err != nil {
					logger.Warn("close run history", logging.Error(err))
				}
			}
		}
	}
	if cfg.Metrics.TextfilePath != "" {
		recorder, err := metrics.New(cfg.Metrics.TextfilePath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("init metrics: %w", err)
		}
		opts = append(opts, importer.WithMetrics(recorder))
	}
	if cfg.Notifications.NtfyTopic != "" {
		opts = append(opts, importer.WithNotifier(notifications.NewService(cfg)))
	}

	imp, err := importer.New(cfg, session, resolver, archive.NewFromConfig(cfg), logger, opts...)
	if err != nil {
		return nil, cleanup, err
	}
	return imp, cleanup, nil
}

func printRunSummary(out io.Writer, summary *importer.Summary) {
	colorize := shouldColorize(out)

	if len(summary.Files) > 0 {
		rows := make([][]string, 0, len(summary.Files))
		for _, f := range summary.Files {
			failed := f.Err != nil
			detail := filepath.Base(f.Destination)
			if summary.DryRun {
				detail = ""
			}
			if failed {
				detail = f.Stage + ": " + f.Err.Error()
			}
			rows = append(rows, []string{
				f.Document.Name,
				f.Resolution.ShipmentID,
				string(f.Resolution.Source),
				outcomeLabel(failed, colorize),
				detail,
			})
		}
		fmt.Fprintln(out, renderTable([]column{
			{Header: "File"},
			{Header: "Shipment"},
			{Header: "Source"},
			{Header: "Outcome"},
			{Header: "Detail", Width: 60},
		}, rows))
	} else if summary.Err == nil {
		fmt.Fprintln(out, "No documents in the input folder.")
	}

	mode := "Run"
	if summary.DryRun {
		mode = "Dry run"
	}
	fmt.Fprintf(out, "%s %s: %d succeeded, %d failed in %s\n",
		mode, shortRunID(summary.RunID), summary.Succeeded, summary.Failed,
		summary.Duration().Round(time.Millisecond))
	if summary.Err != nil && errors.Is(summary.Err, services.ErrAuth) && summary.Succeeded+summary.Failed == 0 {
		fmt.Fprintln(out, "Nothing was processed; the input folder is unchanged.")
	}
}
