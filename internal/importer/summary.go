package importer

import (
	"context"
	"time"

	"shipconf/internal/archive"
	"shipconf/internal/document"
	"shipconf/internal/history"
	"shipconf/internal/identifier"
	"shipconf/internal/logging"
	"shipconf/internal/notifications"
	"shipconf/internal/services"
)

// FileResult is the tagged outcome of one document.
type FileResult struct {
	Document    document.Document
	Resolution  identifier.Resolution
	Outcome     archive.Outcome
	Stage       string
	Destination string
	Err         error
}

// Summary describes one batch run.
type Summary struct {
	RunID      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Files      []FileResult
	Succeeded  int
	Failed     int
	Err        error
}

// Duration is the run's wall time.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s *Summary) add(result FileResult) {
	s.Files = append(s.Files, result)
	if result.Outcome == archive.Failed {
		s.Failed++
	} else {
		s.Succeeded++
	}
}

func (i *Importer) startRun(ctx context.Context, dryRun bool) *Summary {
	summary := &Summary{
		RunID:     i.newRunID(),
		DryRun:    dryRun,
		StartedAt: i.now(),
	}
	if i.ledger != nil {
		if err := i.ledger.StartRun(ctx, summary.RunID, summary.StartedAt, dryRun); err != nil {
			i.ledgerFailed(ctx, err)
		}
	}
	logging.WithContext(services.WithRunID(ctx, summary.RunID), i.logger).Info("run started",
		logging.Bool("dry_run", dryRun),
	)
	return summary
}

func (i *Importer) finishRun(ctx context.Context, summary *Summary, runErr error) *Summary {
	summary.FinishedAt = i.now()
	summary.Err = runErr

	ctx = context.WithoutCancel(ctx)
	if !summary.DryRun {
		for _, f := range summary.Files {
			i.metrics.FileProcessed(f.Outcome.String())
		}
		i.metrics.RunFinished(summary.Duration(), runErr == nil, summary.FinishedAt)
		if err := i.metrics.Flush(); err != nil {
			logging.WarnWithContext(i.logger, "metrics textfile not written", "metrics_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check metrics.textfile_path permissions"),
			)
		}
		i.notify(ctx, summary)
	}

	if i.ledger != nil {
		status := history.RunSucceeded
		errMsg := ""
		if runErr != nil {
			status = history.RunFailed
			errMsg = runErr.Error()
		}
		if err := i.ledger.FinishRun(ctx, history.Run{
			ID:             summary.RunID,
			Status:         status,
			FinishedAt:     summary.FinishedAt,
			FilesTotal:     len(summary.Files),
			FilesSucceeded: summary.Succeeded,
			FilesFailed:    summary.Failed,
			ErrorMessage:   errMsg,
		}); err != nil {
			i.ledgerFailed(ctx, err)
		}
	}

	attrs := []logging.Attr{
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration()),
	}
	logger := logging.WithContext(services.WithRunID(ctx, summary.RunID), i.logger)
	if runErr != nil {
		logging.ErrorWithContext(logger, "run failed", "run_failed", append(attrs, logging.Error(runErr))...)
	} else {
		logger.Info("run finished", logging.Args(attrs...)...)
	}
	return summary
}

func (i *Importer) notify(ctx context.Context, summary *Summary) {
	if i.notifier == nil {
		return
	}
	report := notifications.RunReport{
		RunID:     summary.RunID,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Duration:  summary.Duration(),
		Err:       summary.Err,
	}
	for _, f := range summary.Files {
		if f.Outcome == archive.Failed {
			report.ProblemFiles = append(report.ProblemFiles, f.Document.Name)
		}
	}
	notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := i.notifier.NotifyRunFinished(notifyCtx, report); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, i.logger), "run notification not sent", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func (i *Importer) recordFile(ctx context.Context, runID string, result FileResult) {
	if i.ledger == nil {
		return
	}
	rec := history.FileRecord{
		RunID:            runID,
		FileName:         result.Document.Name,
		SourcePath:       result.Document.Path,
		ShipmentID:       result.Resolution.ShipmentID,
		IdentifierSource: string(result.Resolution.Source),
		Outcome:          result.Outcome.String(),
		Destination:      result.Destination,
		ProcessedAt:      i.now(),
	}
	if result.Err != nil {
		rec.ErrorKind = services.Kind(result.Err)
		rec.ErrorMessage = result.Err.Error()
	}
	if err := i.ledger.RecordFile(context.WithoutCancel(ctx), rec); err != nil {
		i.ledgerFailed(ctx, err)
	}
}

func (i *Importer) ledgerFailed(ctx context.Context, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, i.logger), "run history not updated", "history_write_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check state_dir permissions; the batch result is unaffected"),
	)
}
