package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = "id, status, started_at, finished_at, files_total, files_succeeded, files_failed, dry_run, error_message"

// storedTimeLayout keeps a fixed fraction width so stored timestamps sort as text.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const fileColumns = "run_id, file_name, source_path, shipment_id, identifier_source, outcome, destination, error_kind, error_message, processed_at"

// StartRun records a new running batch.
func (s *Store) StartRun(ctx context.Context, id string, startedAt time.Time, dryRun bool) error {
	if id == "" {
		return errors.New("history: run id required")
	}
	if err := s.exec(ctx,
		`INSERT INTO runs (id, status, started_at, dry_run) VALUES (?, ?, ?, ?)`,
		id, RunRunning, formatTime(startedAt), boolToInt(dryRun),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordFile appends one file outcome to its run.
func (s *Store) RecordFile(ctx context.Context, rec FileRecord) error {
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now()
	}
	if err := s.exec(ctx,
		`INSERT INTO run_files (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.FileName,
		rec.SourcePath,
		nullableString(rec.ShipmentID),
		nullableString(rec.IdentifierSource),
		rec.Outcome,
		nullableString(rec.Destination),
		nullableString(rec.ErrorKind),
		nullableString(rec.ErrorMessage),
		formatTime(rec.ProcessedAt),
	); err != nil {
		return fmt.Errorf("insert file outcome: %w", err)
	}
	return nil
}

// FinishRun stores the final counts and status of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, files_total = ?, files_succeeded = ?, files_failed = ?, error_message = ?
         WHERE id = ?`,
		run.Status,
		formatTime(run.FinishedAt),
		run.FilesTotal,
		run.FilesSucceeded,
		run.FilesFailed,
		nullableString(run.ErrorMessage),
		run.ID,
	); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetRun returns a run by id, or nil when it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// RecentRuns lists the newest runs first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// RunFiles lists the file outcomes of one run in processing order.
func (s *Store) RunFiles(ctx context.Context, runID string) ([]FileRecord, error) {
	return s.queryFiles(ctx, `SELECT `+fileColumns+` FROM run_files WHERE run_id = ? ORDER BY id`, runID)
}

// FailedFiles lists the most recent failed documents across runs.
func (s *Store) FailedFiles(ctx context.Context, limit int) ([]FileRecord, error) {
	return s.queryFiles(ctx,
		`SELECT `+fileColumns+` FROM run_files WHERE outcome = 'failed' ORDER BY processed_at DESC, id DESC LIMIT ?`,
		normalizeLimit(limit))
}

func (s *Store) queryFiles(ctx context.Context, query string, args ...any) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var (
			rec                                   FileRecord
			shipmentID, idSource, dest, kind, msg sql.NullString
			processedRaw                          string
		)
		if err := rows.Scan(&rec.RunID, &rec.FileName, &rec.SourcePath, &shipmentID, &idSource,
			&rec.Outcome, &dest, &kind, &msg, &processedRaw); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		rec.ShipmentID = shipmentID.String
		rec.IdentifierSource = idSource.String
		rec.Destination = dest.String
		rec.ErrorKind = kind.String
		rec.ErrorMessage = msg.String
		if t, err := parseTimeString(processedRaw); err == nil {
			rec.ProcessedAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		startedRaw  string
		finishedRaw sql.NullString
		dryRun      int
		errMsg      sql.NullString
	)
	if err := scanner.Scan(&run.ID, &status, &startedRaw, &finishedRaw,
		&run.FilesTotal, &run.FilesSucceeded, &run.FilesFailed, &dryRun, &errMsg); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.DryRun = dryRun != 0
	run.ErrorMessage = errMsg.String
	if t, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = t
	}
	if finishedRaw.Valid {
		if t, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = t
		}
	}
	return &run, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
