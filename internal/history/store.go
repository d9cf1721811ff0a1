package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store is the history ledger.
type Store struct {
	db *sqlx.DB
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run is one invocation of a mutating command.
type Run struct {
	ID         string     `db:"id"`
	Command    string     `db:"command"`
	Mode       string     `db:"mode"`
	DryRun     bool       `db:"dry_run"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	Outcome    string     `db:"outcome"`
	BackupRoot string     `db:"backup_root"`
	Error      string     `db:"error"`
}

// BackupEntry records one snapshot taken during a run.
type BackupEntry struct {
	RunID     string    `db:"run_id"`
	Original  string    `db:"original"`
	Path      string    `db:"path"`
	CreatedAt time.Time `db:"created_at"`
}

// UpdateEntry records one CLI or self update attempt.
type UpdateEntry struct {
	RunID     string    `db:"run_id"`
	Package   string    `db:"package"`
	From      string    `db:"from_ver"`
	To        string    `db:"to_ver"`
	Outcome   string    `db:"outcome"`
	Error     string    `db:"error"`
	CreatedAt time.Time `db:"created_at"`
}

// StartRun inserts a new run and returns it with a fresh id.
func (s *Store) StartRun(ctx context.Context, command, mode string, dryRun bool, now time.Time) (*Run, error) {
	r := &Run{
		ID:        uuid.NewString(),
		Command:   command,
		Mode:      mode,
		DryRun:    dryRun,
		StartedAt: now.UTC(),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO runs (id, command, mode, dry_run, started_at)
		VALUES (:id, :command, :mode, :dry_run, :started_at)`, r)
	if err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}
	return r, nil
}

// FinishRun stores the outcome of r.
func (s *Store) FinishRun(ctx context.Context, r *Run, outcome, backupRoot string, runErr error, now time.Time) error {
	finished := now.UTC()
	r.FinishedAt = &finished
	r.Outcome = outcome
	r.BackupRoot = backupRoot
	r.Error = ""
	if runErr != nil {
		r.Error = runErr.Error()
	}
	_, err := s.db.NamedExecContext(ctx, `
		UPDATE runs SET finished_at = :finished_at, outcome = :outcome,
			backup_root = :backup_root, error = :error
		WHERE id = :id`, r)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// AddBackup records a snapshot taken by run runID.
func (s *Store) AddBackup(ctx context.Context, e BackupEntry) error {
	e.CreatedAt = e.CreatedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO backups (run_id, original, path, created_at)
		VALUES (:run_id, :original, :path, :created_at)`, e)
	if err != nil {
		return fmt.Errorf("recording backup: %w", err)
	}
	return nil
}

// AddUpdate records an update attempt made by run e.RunID.
func (s *Store) AddUpdate(ctx context.Context, e UpdateEntry) error {
	e.CreatedAt = e.CreatedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO update_attempts (run_id, package, from_ver, to_ver, outcome, error, created_at)
		VALUES (:run_id, :package, :from_ver, :to_ver, :outcome, :error, :created_at)`, e)
	if err != nil {
		return fmt.Errorf("recording update attempt: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first. limit <= 0 means all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT * FROM runs ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Backups returns the snapshots recorded for runID in the order taken.
func (s *Store) Backups(ctx context.Context, runID string) ([]BackupEntry, error) {
	var out []BackupEntry
	err := s.db.SelectContext(ctx, &out,
		"SELECT run_id, original, path, created_at FROM backups WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	return out, nil
}

// Updates returns the update attempts recorded for runID.
func (s *Store) Updates(ctx context.Context, runID string) ([]UpdateEntry, error) {
	var out []UpdateEntry
	err := s.db.SelectContext(ctx, &out,
		"SELECT run_id, package, from_ver, to_ver, outcome, error, created_at FROM update_attempts WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("listing update attempts: %w", err)
	}
	return out, nil
}
