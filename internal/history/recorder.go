package history

import (
	"context"
	"time"

	"github.com/skillkit-labs/skillkit/internal/logger"
)

// Recorder writes one run to the ledger, logging rather than returning
// errors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	store *Store
	run   *Run
}

// Begin opens the ledger at dbPath and starts a run. When the ledger is
// unavailable it logs a warning and returns nil.
func Begin(ctx context.Context, dbPath, command, mode string, dryRun bool) *Recorder {
	log := logger.G(ctx)
	store, err := Open(ctx, dbPath)
	if err != nil {
		log.WithError(err).Warn("run history unavailable")
		return nil
	}
	run, err := store.StartRun(ctx, command, mode, dryRun, time.Now())
	if err != nil {
		log.WithError(err).Warn("run history unavailable")
		store.Close()
		return nil
	}
	log.WithField("run_id", run.ID).Debug("recording run history")
	return &Recorder{store: store, run: run}
}

// RunID returns the id of the recorded run, or "" for a nil recorder.
func (r *Recorder) RunID() string {
	if r == nil {
		return ""
	}
	return r.run.ID
}

// Backup records a snapshot.
func (r *Recorder) Backup(ctx context.Context, original, path string, at time.Time) {
	if r == nil {
		return
	}
	e := BackupEntry{RunID: r.run.ID, Original: original, Path: path, CreatedAt: at}
	if err := r.store.AddBackup(ctx, e); err != nil {
		logger.G(ctx).WithError(err).Warn("could not record backup in history")
	}
}

// Update records an update attempt.
func (r *Recorder) Update(ctx context.Context, pkg, from, to, outcome string, updErr error) {
	if r == nil {
		return
	}
	e := UpdateEntry{RunID: r.run.ID, Package: pkg, From: from, To: to, Outcome: outcome, CreatedAt: time.Now()}
	if updErr != nil {
		e.Error = updErr.Error()
	}
	if err := r.store.AddUpdate(ctx, e); err != nil {
		logger.G(ctx).WithError(err).Warn("could not record update in history")
	}
}

// Finish stores the run outcome and closes the ledger.
func (r *Recorder) Finish(ctx context.Context, outcome, backupRoot string, runErr error) {
	if r == nil {
		return
	}
	// The run may have been cancelled; the ledger write should still land.
	ctx = context.WithoutCancel(ctx)
	if err := r.store.FinishRun(ctx, r.run, outcome, backupRoot, runErr, time.Now()); err != nil {
		logger.G(ctx).WithError(err).Warn("could not record run outcome in history")
	}
	if err := r.store.Close(); err != nil {
		logger.G(ctx).WithError(err).Debug("closing run history")
	}
}
