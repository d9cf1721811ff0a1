package updater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillkit-labs/skillkit/internal/backup"
	"github.com/skillkit-labs/skillkit/internal/logger"
)

// Outcomes recorded for an update attempt.
const (
	OutcomeUpToDate = "up to date"
	OutcomeUpdated  = "updated"
	OutcomeFailed   = "failed"
	OutcomeUnknown  = "unknown"
	OutcomeDryRun   = "dry run"
)

// CLIInstaller installs a version of an npm package.
// *toolchain.Installer satisfies it.
type CLIInstaller interface {
	InstallCLI(ctx context.Context, pkg, version string) error
}

// Attempt describes one update attempt.
type Attempt struct {
	Started time.Time
	From    VersionInfo
	To      VersionInfo
	Status  Status
	Outcome string
	Backups []backup.Record
	Err     error
}

// UpdateOptions adjusts a single update.
type UpdateOptions struct {
	// Version pins the target instead of asking the registry.
	Version string
	// Force installs even when the installed version is current or unknown.
	Force bool
}

// Scheduler runs CLI update checks and installs.
type Scheduler struct {
	Schedule  Schedule
	StatePath string
	Oracle    *Oracle
	Installer CLIInstaller
	// Snapshot backs up MetadataPaths before installing. May be nil.
	Snapshot Snapshotter
	// MetadataPaths returns the CLI installation metadata worth backing up.
	MetadataPaths func(ctx context.Context) []string
	DryRun        bool
	Now           func() time.Time
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// IsDue reports whether the schedule calls for a check at now. An unreadable
// state file counts as never checked, so the next attempt rewrites it.
func (s *Scheduler) IsDue(ctx context.Context, now time.Time) bool {
	st, err := LoadState(s.StatePath)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("update state unreadable, treating as never checked")
		st = &State{}
	}
	return s.Schedule.IsDue(st.LastCheck, now)
}

// Check looks up versions and changes nothing, not even the state file.
func (s *Scheduler) Check(ctx context.Context) Report {
	return s.Oracle.CheckCLI(ctx)
}

// RunIfDue updates the CLI when the schedule says a check is due. It returns
// nil when nothing was due.
func (s *Scheduler) RunIfDue(ctx context.Context, now time.Time) (*Attempt, error) {
	if !s.IsDue(ctx, now) {
		logger.G(ctx).Debug("auto-update not due")
		return nil, nil
	}
	return s.Update(ctx, UpdateOptions{})
}

// Update installs the latest CLI, or opts.Version, and verifies the result.
// The last-check time is stamped whatever the outcome, except in dry-run.
// The returned error is non-nil only when the attempt failed; an Unknown
// version is reported through the attempt without an error.
func (s *Scheduler) Update(ctx context.Context, opts UpdateOptions) (*Attempt, error) {
	log := logger.G(ctx)
	a := &Attempt{Started: s.now()}

	a.Err = s.update(ctx, a, opts)
	if a.Err != nil {
		a.Outcome = OutcomeFailed
		log.WithError(a.Err).Error("CLI update failed")
	}

	if !s.DryRun {
		s.stamp(ctx, a)
	}
	return a, a.Err
}

func (s *Scheduler) update(ctx context.Context, a *Attempt, opts UpdateOptions) error {
	log := logger.G(ctx)
	o := s.Oracle

	installed, err := o.InstalledCLI(ctx)
	if err != nil {
		log.WithError(err).Debugf("installed %s version unknown", o.Binary)
	}
	a.From = installed

	var latest VersionInfo
	if opts.Version != "" {
		latest, err = ParseVersion(opts.Version)
		if err != nil {
			return err
		}
	} else {
		latest, err = o.LatestCLI(ctx)
		if err != nil {
			log.WithError(err).Warnf("latest %s version unknown", o.Package)
		}
	}
	a.To = latest
	a.Status = Compare(installed, latest)

	switch {
	case latest.IsUnknown():
		a.Outcome = OutcomeUnknown
		log.Warnf("cannot determine the latest %s version, skipping update", o.Package)
		return nil
	case a.Status == StatusUnknown && !opts.Force:
		a.Outcome = OutcomeUnknown
		log.Warnf("installed %s version unknown, skipping update (use --force to install)", o.Binary)
		return nil
	case a.Status == StatusUpToDate && !opts.Force && opts.Version == "":
		a.Outcome = OutcomeUpToDate
		log.Infof("%s %s is up to date", o.Binary, installed)
		return nil
	case installed.Equal(latest) && !opts.Force:
		a.Outcome = OutcomeUpToDate
		log.Infof("%s is already at %s", o.Binary, latest)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if s.DryRun {
		a.Outcome = OutcomeDryRun
		log.Infof("would back up %s metadata and install %s@%s", o.Package, o.Package, latest)
		return nil
	}

	s.backupMetadata(ctx, a)

	log.Infof("installing %s@%s (installed: %s)", o.Package, latest, installed)
	if err := s.Installer.InstallCLI(ctx, o.Package, latest.String()); err != nil {
		return err
	}

	after, err := o.InstalledCLI(ctx)
	if err != nil {
		return fmt.Errorf("verifying install: %w", err)
	}
	if !after.Equal(latest) {
		return fmt.Errorf("verifying install: %s reports %s, want %s", o.Binary, after, latest)
	}

	a.Outcome = OutcomeUpdated
	log.Infof("%s updated %s -> %s", o.Binary, installed, after)
	return nil
}

// backupMetadata snapshots the CLI's installation metadata. Failures are
// logged and never stop the update.
func (s *Scheduler) backupMetadata(ctx context.Context, a *Attempt) {
	log := logger.G(ctx)
	if s.Snapshot == nil || s.MetadataPaths == nil {
		log.Debug("no CLI install metadata to back up")
		return
	}
	paths := s.MetadataPaths(ctx)
	if len(paths) == 0 {
		log.Debug("no CLI install metadata to back up")
		return
	}
	for _, p := range paths {
		rec, err := s.Snapshot.SnapshotIfExists(p)
		switch {
		case err != nil:
			log.WithError(err).WithField("path", p).Warn("could not back up CLI metadata")
		case rec == nil:
			log.WithField("path", p).Debug("CLI metadata not present, nothing to back up")
		default:
			a.Backups = append(a.Backups, *rec)
		}
	}
}

func (s *Scheduler) stamp(ctx context.Context, a *Attempt) {
	log := logger.G(ctx)
	st, err := LoadState(s.StatePath)
	if err != nil {
		log.WithError(err).Warn("update state unreadable, starting fresh")
		st = &State{}
	}

	st.LastCheck = s.now()
	st.LastResult = a.Outcome
	st.LastError = ""
	if a.Err != nil && !errors.Is(a.Err, context.Canceled) {
		st.LastError = a.Err.Error()
	}
	if !a.From.IsUnknown() {
		st.CLIVersion = a.From.String()
	}
	if a.Outcome == OutcomeUpdated {
		st.CLIVersion = a.To.String()
	}
	if !a.To.IsUnknown() {
		st.CLILatest = a.To.String()
	}

	if err := SaveState(s.StatePath, st); err != nil {
		log.WithError(err).Warn("could not record update check time")
	}
}
