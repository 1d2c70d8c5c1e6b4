package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"shipconf/internal/archive"
	"shipconf/internal/config"
	"shipconf/internal/document"
	"shipconf/internal/history"
	"shipconf/internal/identifier"
	"shipconf/internal/logging"
	"shipconf/internal/metrics"
	"shipconf/internal/notifications"
	"shipconf/internal/services"
	"shipconf/internal/services/acumatica"
)

const (
	stageResolve = "resolve"
	stageUpload  = "upload"
	stageArchive = "archive"

	logoutTimeout = 30 * time.Second
	notifyTimeout = 15 * time.Second
)

// Session is the authenticated connection a batch runs inside.
type Session interface {
	Submitter
	Login(ctx context.Context, creds acumatica.Credentials) error
	Logout(ctx context.Context, creds acumatica.Credentials) error
}

// Resolver derives a shipment identifier for a document.
type Resolver interface {
	Resolve(ctx context.Context, doc document.Document) (identifier.Resolution, error)
}

// Archiver moves documents out of the input folder.
type Archiver interface {
	Succeeded(doc document.Document) (string, error)
	Failed(doc document.Document, diag archive.Diagnostic) (string, error)
}

// Ledger records run history. Write failures are logged, never returned.
type Ledger interface {
	StartRun(ctx context.Context, id string, startedAt time.Time, dryRun bool) error
	RecordFile(ctx context.Context, rec history.FileRecord) error
	FinishRun(ctx context.Context, run history.Run) error
}

// Option configures an Importer.
type Option func(*Importer)

// WithLedger records runs and file outcomes.
func WithLedger(l Ledger) Option {
	return func(i *Importer) {
		i.ledger = l
	}
}

// WithMetrics exports run metrics.
func WithMetrics(m *metrics.Recorder) Option {
	return func(i *Importer) {
		i.metrics = m
	}
}

// WithNotifier sends a message when a batch run finishes.
func WithNotifier(n notifications.Service) Option {
	return func(i *Importer) {
		i.notifier = n
	}
}

// WithClock overrides time.Now (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(i *Importer) {
		if now != nil {
			i.now = now
		}
	}
}

// WithRunIDs overrides run id generation (primarily for tests).
func WithRunIDs(next func() string) Option {
	return func(i *Importer) {
		if next != nil {
			i.newRunID = next
		}
	}
}

// Importer runs batch passes over the input folder.
type Importer struct {
	cfg      *config.Config
	session  Session
	uploader *Uploader
	resolver Resolver
	archiver Archiver
	ledger   Ledger
	metrics  *metrics.Recorder
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time
	newRunID func() string
}

// New wires an importer. session may be nil for dry runs.
func New(cfg *config.Config, session Session, resolver Resolver, archiver Archiver, logger *slog.Logger, opts ...Option) (*Importer, error) {
	if cfg == nil || resolver == nil || archiver == nil {
		return nil, errors.New("importer requires config, resolver and archiver")
	}
	i := &Importer{
		cfg:      cfg,
		session:  session,
		resolver: resolver,
		archiver: archiver,
		logger:   logging.NewComponentLogger(logger, "importer"),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	if session != nil {
		i.uploader = NewUploader(session, cfg.Shipment.URL)
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

func (i *Importer) credentials() acumatica.Credentials {
	return acumatica.Credentials{Name: i.cfg.API.User, Password: i.cfg.API.Password}
}

// Run performs one batch: login, process every file present in the input
// folder at the start, logout. A failed login ends the run without a logout;
// once logged in, logout is attempted exactly once however processing ends.
// Per-document failures are archived to the problem folder and do not fail the
// run. Archival failures, interrupts and logout failures do.
func (i *Importer) Run(ctx context.Context) (*Summary, error) {
	if i.session == nil {
		return nil, errors.New("importer: session required for a batch run")
	}
	unlock, err := i.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	summary := i.startRun(ctx, false)
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, i.logger)

	loginCtx := services.WithStage(ctx, "login")
	if err := i.session.Login(loginCtx, i.credentials()); err != nil {
		logging.ErrorWithContext(logger, "login failed", "login_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api credentials and base_url, then rerun"),
		)
		return i.finishRun(ctx, summary, err), err
	}
	logger.Info("session opened", logging.String("base_url", i.cfg.API.BaseURL))

	processErr := i.process(ctx, summary)

	logoutCtx, cancel := context.WithTimeout(services.WithStage(context.WithoutCancel(ctx), "logout"), logoutTimeout)
	logoutErr := i.session.Logout(logoutCtx, i.credentials())
	cancel()
	if logoutErr != nil {
		logging.WarnWithContext(logger, "logout failed", "logout_failed",
			logging.Error(logoutErr),
			logging.String(logging.FieldErrorHint, "the server session expires on its own; rerun only if uploads are missing"),
		)
	} else {
		logger.Info("session closed")
	}

	runErr := combineErrors(processErr, logoutErr)
	return i.finishRun(ctx, summary, runErr), runErr
}

// DryRun resolves every document in the input folder without logging in,
// uploading or moving anything.
func (i *Importer) DryRun(ctx context.Context) (*Summary, error) {
	summary := i.startRun(ctx, true)
	ctx = services.WithRunID(ctx, summary.RunID)

	docs, err := document.Snapshot(i.cfg.Shipment.InputDir)
	if err != nil {
		err = services.Wrap(services.ErrConfiguration, "snapshot", "input folder", i.cfg.Shipment.InputDir, err)
		return i.finishRun(ctx, summary, err), err
	}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return i.finishRun(ctx, summary, err), err
		}
		fileCtx := services.WithStage(services.WithFileName(ctx, doc.Name), stageResolve)
		res, err := i.resolver.Resolve(fileCtx, doc)
		result := FileResult{Document: doc, Resolution: res, Stage: stageResolve, Err: err, Outcome: archive.Succeeded}
		if err != nil {
			result.Outcome = archive.Failed
		}
		summary.add(result)
	}
	return i.finishRun(ctx, summary, nil), nil
}

func (i *Importer) process(ctx context.Context, summary *Summary) error {
	docs, err := document.Snapshot(i.cfg.Shipment.InputDir)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "snapshot", "input folder", i.cfg.Shipment.InputDir, err)
	}
	logging.WithContext(ctx, i.logger).Info("input folder scanned",
		logging.Int("file_count", len(docs)),
		logging.String("input_dir", i.cfg.Shipment.InputDir),
	)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("batch interrupted before %s: %w", doc.Name, err)
		}
		fileCtx := services.WithFileName(ctx, doc.Name)
		result := i.processFile(fileCtx, doc)
		if result.Err != nil && ctx.Err() != nil {
			// The document stays in the input folder for the next run.
			return fmt.Errorf("batch interrupted during %s: %w", doc.Name, ctx.Err())
		}
		if err := i.archiveFile(fileCtx, summary.RunID, &result); err != nil {
			summary.add(result)
			i.recordFile(fileCtx, summary.RunID, result)
			return err
		}
		summary.add(result)
		i.recordFile(fileCtx, summary.RunID, result)
	}
	return nil
}

// processFile resolves and uploads one document. Any error is carried in the
// result for the failure archive.
func (i *Importer) processFile(ctx context.Context, doc document.Document) FileResult {
	result := FileResult{Document: doc, Stage: stageResolve}

	res, err := i.resolver.Resolve(services.WithStage(ctx, stageResolve), doc)
	result.Resolution = res
	if err != nil {
		result.Err = err
		result.Outcome = archive.Failed
		return result
	}

	result.Stage = stageUpload
	if err := i.uploader.Upload(services.WithStage(ctx, stageUpload), res.ShipmentID, doc); err != nil {
		result.Err = err
		result.Outcome = archive.Failed
		return result
	}
	result.Outcome = archive.Succeeded
	return result
}

func (i *Importer) archiveFile(ctx context.Context, runID string, result *FileResult) error {
	logger := logging.WithContext(services.WithStage(ctx, stageArchive), i.logger)
	doc := result.Document

	if result.Outcome == archive.Succeeded {
		dest, err := i.archiver.Succeeded(doc)
		if err != nil {
			return i.archiveFailed(logger, result, err)
		}
		result.Destination = dest
		logger.Info("document uploaded",
			logging.String(logging.FieldShipmentID, result.Resolution.ShipmentID),
			logging.String("identifier_source", string(result.Resolution.Source)),
			logging.String("destination", dest),
		)
		return nil
	}

	dest, err := i.archiver.Failed(doc, archive.Diagnostic{
		Err:        result.Err,
		RunID:      runID,
		File:       doc.Name,
		Source:     doc.Path,
		ShipmentID: result.Resolution.ShipmentID,
		Stage:      result.Stage,
		Time:       i.now(),
	})
	if err != nil {
		return i.archiveFailed(logger, result, err)
	}
	result.Destination = dest
	logging.WarnWithContext(logger, "document moved to problem folder", "document_failed",
		logging.String("failed_stage", result.Stage),
		logging.String("error_kind", services.Kind(result.Err)),
		logging.Error(result.Err),
		logging.String("destination", dest),
		logging.String(logging.FieldErrorHint, errorHint(result.Err)),
	)
	return nil
}

func (i *Importer) archiveFailed(logger *slog.Logger, result *FileResult, err error) error {
	if result.Err == nil {
		result.Err = err
	} else {
		result.Err = combineErrors(result.Err, err)
	}
	result.Outcome = archive.Failed
	result.Stage = stageArchive
	logging.ErrorWithContext(logger, "archival failed; stopping batch", "archive_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check output_dir and problem_dir exist and are writable"),
	)
	return err
}

func (i *Importer) acquireLock() (func(), error) {
	if err := i.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "lock", "state directory", "", err)
	}
	lockPath := i.cfg.LockPath()
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another shipconf run holds %s", lockPath)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			i.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}, nil
}

func combineErrors(errs ...error) error {
	var merr *multierror.Error
	merr = multierror.Append(merr, errs...)
	switch merr.Len() {
	case 0:
		return nil
	case 1:
		return merr.Errors[0]
	default:
		return merr
	}
}

func errorHint(err error) string {
	switch services.Kind(err) {
	case "resolution":
		return "check the scan quality or rename the file to start with the shipment number, then move it back to the input folder"
	case "transport":
		return "check the shipment exists and the service is reachable, then move the file back to the input folder"
	default:
		return "see the -error.txt file next to the document"
	}
}
