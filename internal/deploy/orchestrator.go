// Package deploy copies the bundle into the user's configuration directory.
// Every overwrite is preceded by a backup, and the templated configuration
// receives a freshly rendered skill index.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/skillkit-labs/skillkit/internal/backup"
	"github.com/skillkit-labs/skillkit/internal/inject"
	"github.com/skillkit-labs/skillkit/internal/logger"
	"github.com/skillkit-labs/skillkit/internal/platform"
	"github.com/skillkit-labs/skillkit/internal/probe"
	"github.com/skillkit-labs/skillkit/internal/skills"
)

// ErrInterrupted is returned when the run's context is cancelled.
var ErrInterrupted = errors.New("deployment interrupted")

// Prober detects the host environment. *probe.Prober satisfies it.
type Prober interface {
	Probe(ctx context.Context) probe.Environment
}

// Toolchain installs the CLI and its runtime. *toolchain.Installer
// satisfies it.
type Toolchain interface {
	HasBinary(name string) bool
	EnsureNode(ctx context.Context) (bool, error)
	InstallCLI(ctx context.Context, pkg, version string) error
	NPMGlobalBin(ctx context.Context, goos string) (string, error)
}

// Options configure a run.
type Options struct {
	Mode       Mode
	DryRun     bool
	AutoAccept bool
	// SkillsDir is indexed for the templated configuration.
	SkillsDir string
	// Placeholder is the token replaced by the skill index.
	Placeholder string
	// Fields are the JSON pointer patterns that may hold Placeholder.
	Fields     []string
	Excluder   *Excluder
	CLIPackage string
	CLIBinary  string
}

// Orchestrator runs the deployment state machine.
type Orchestrator struct {
	Prober    Prober
	Backups   *backup.Manager
	Confirmer Confirmer
	// Toolchain is only used in full mode. It may be nil otherwise.
	Toolchain Toolchain
	Indexer   *skills.Indexer
	Options   Options
	// OnBackup is called for every snapshot taken. It may be nil.
	OnBackup func(backup.Record)
	Now      func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Run deploys targets. The report is always returned; the error is non-nil
// when the run ends in ErrorRecovery.
func (o *Orchestrator) Run(ctx context.Context, targets []Target) (*Report, error) {
	log := logger.G(ctx)
	r := &Report{Mode: o.Options.Mode, DryRun: o.Options.DryRun, Final: StateStart}
	if r.Mode == "" {
		r.Mode = ModeFull
	}
	r.step(StateStart, "", string(r.Mode))

	r.step(StateProbing, "", "")
	env, degraded := o.Prober.Probe(ctx).Normalize()
	for _, d := range degraded {
		log.Warnf("could not detect %s, assuming %s defaults", d, env.OS)
	}
	r.Env = env
	log.WithField("os", env.OS).WithField("shell", env.Shell).
		WithField("package_manager", env.PackageManager).Debug("environment probed")

	if r.Mode == ModeFull {
		o.installToolchain(ctx, r)
		if !r.Interrupted {
			o.updateProfile(ctx, r)
		}
	}

	for _, t := range targets {
		if r.Interrupted || o.interrupted(ctx, r) {
			break
		}
		res := o.deployTarget(ctx, r, t)
		r.Artifacts = append(r.Artifacts, res)
		r.step(StateSummarizing, t.Name, res.Outcome.String())
	}

	if o.Backups != nil {
		r.BackupRoot = o.Backups.Root()
	}

	if r.Interrupted {
		r.Final = StateErrorRecovery
		r.step(StateErrorRecovery, "", "interrupted")
		log.Warn("deployment interrupted; files written so far were backed up first, partial backups are harmless")
		return r, ErrInterrupted
	}
	if err := r.Err(); err != nil {
		r.Final = StateErrorRecovery
		r.step(StateErrorRecovery, "", err.Error())
		return r, err
	}
	r.Final = StateDone
	r.step(StateDone, "", r.Outcome().String())
	return r, nil
}

// interrupted records a cancelled context on r.
func (o *Orchestrator) interrupted(ctx context.Context, r *Report) bool {
	if ctx.Err() != nil {
		r.Interrupted = true
	}
	return r.Interrupted
}

func (o *Orchestrator) deployTarget(ctx context.Context, r *Report, t Target) ArtifactResult {
	log := logger.G(ctx).WithField("path", t.Destination)
	res := ArtifactResult{Name: t.Name}
	fail := func(err error) ArtifactResult {
		res.Outcome = OutcomeFailure
		res.Err = err
		log.WithError(err).Errorf("%s failed", t.Name)
		return res
	}

	srcInfo, err := os.Stat(t.Source)
	if os.IsNotExist(err) {
		res.Outcome = OutcomeSkipped
		res.Detail = "not in bundle"
		log.Warnf("%s not found in bundle, skipping", t.Name)
		return res
	}
	if err != nil {
		return fail(err)
	}
	if srcInfo.IsDir() != t.IsDir {
		return fail(fmt.Errorf("bundle entry %s has the wrong type", t.Source))
	}

	_, statErr := os.Lstat(t.Destination)
	exists := statErr == nil

	if exists && t.ConfirmOverwrite && !o.Options.AutoAccept {
		r.step(StateConfirming, t.Name, "")
		confirmer := o.Confirmer
		if confirmer == nil {
			confirmer = AutoConfirmer{}
		}
		ok, err := confirmer.Confirm(fmt.Sprintf("Overwrite existing %s at %s?", t.Name, t.Destination), false)
		if err != nil {
			return fail(fmt.Errorf("confirming overwrite: %w", err))
		}
		if !ok {
			res.Outcome = OutcomeSkipped
			res.Detail = "kept existing"
			r.step(StateDone, t.Name, "declined")
			log.Infof("keeping existing %s", t.Name)
			return res
		}
	}

	// Backing up.
	if o.interrupted(ctx, r) {
		return fail(ErrInterrupted)
	}
	rec, err := o.backup(t.Destination)
	if err != nil {
		return fail(err)
	}
	res.Backup = rec
	switch {
	case rec == nil:
		r.step(StateBackingUp, t.Name, "nothing to back up")
	case o.Options.DryRun:
		r.step(StateBackingUp, t.Name, fmt.Sprintf("would back up %s to %s", rec.Original, rec.Path))
	default:
		r.step(StateBackingUp, t.Name, "backed up to "+rec.Path)
	}

	// Writing.
	if o.interrupted(ctx, r) {
		return fail(ErrInterrupted)
	}
	if t.Templated {
		return o.deployTemplate(ctx, r, t, res)
	}

	if exists && !o.Options.DryRun {
		if info, err := os.Lstat(t.Destination); err == nil && info.IsDir() != t.IsDir {
			if err := os.RemoveAll(t.Destination); err != nil {
				return fail(err)
			}
		}
	}

	if t.IsDir {
		if o.Options.DryRun {
			n, err := countFiles(t.Source, o.Options.Excluder)
			if err != nil {
				return fail(err)
			}
			r.step(StateWriting, t.Name, fmt.Sprintf("would copy %d files from %s to %s", n, t.Source, t.Destination))
			res.Detail = fmt.Sprintf("%d files", n)
		} else {
			n, err := copyDir(t.Source, t.Destination, o.Options.Excluder)
			if err != nil {
				return fail(fmt.Errorf("copying %s: %w", t.Source, err))
			}
			r.step(StateWriting, t.Name, fmt.Sprintf("copied %d files", n))
			res.Detail = fmt.Sprintf("%d files", n)
		}
	} else {
		if o.Options.DryRun {
			r.step(StateWriting, t.Name, fmt.Sprintf("would copy %s to %s", t.Source, t.Destination))
		} else {
			if err := platform.CopyFile(t.Source, t.Destination); err != nil {
				return fail(fmt.Errorf("copying %s: %w", t.Source, err))
			}
			r.step(StateWriting, t.Name, "copied")
		}
	}

	res.Outcome = OutcomeSuccess
	log.Infof("deployed %s", t.Name)
	return res
}

// deployTemplate stages the template next to its destination, injects the
// skill index into the staged copy and renames it into place, so the
// destination never holds an unresolved placeholder.
func (o *Orchestrator) deployTemplate(ctx context.Context, r *Report, t Target, res ArtifactResult) ArtifactResult {
	log := logger.G(ctx).WithField("path", t.Destination)
	fail := func(err error) ArtifactResult {
		res.Outcome = OutcomeFailure
		res.Err = err
		log.WithError(err).Errorf("%s failed", t.Name)
		return res
	}

	staged := t.Destination + stagedSuffix
	if o.Options.DryRun {
		r.step(StateWriting, t.Name, fmt.Sprintf("would copy template %s to %s", t.Source, t.Destination))
	} else {
		if err := platform.CopyFile(t.Source, staged); err != nil {
			os.Remove(staged)
			return fail(fmt.Errorf("staging %s: %w", t.Source, err))
		}
		r.step(StateWriting, t.Name, "staged template")
		defer os.Remove(staged)
	}

	r.step(StateIndexing, t.Name, o.Options.SkillsDir)
	indexer := o.Indexer
	if indexer == nil {
		indexer = skills.NewIndexer(nil)
	}
	idx, err := indexer.Index(ctx, o.Options.SkillsDir)
	if err != nil {
		return fail(fmt.Errorf("indexing skills: %w", err))
	}
	r.Index = idx
	section := skills.Render(idx, o.now())

	if o.interrupted(ctx, r) {
		return fail(ErrInterrupted)
	}
	token := o.Options.Placeholder
	if o.Options.DryRun {
		desc, err := inject.Describe(t.Source, token, section, o.Options.Fields)
		if err != nil {
			return fail(err)
		}
		r.step(StateInjecting, t.Name, desc)
		res.Outcome = OutcomeSuccess
		res.Detail = fmt.Sprintf("%d skills", idx.Total())
		return res
	}

	result, err := inject.Inject(staged, token, section, o.Options.Fields)
	if err != nil {
		return fail(err)
	}
	res.Injected = result
	if result == inject.ResultNoop {
		log.Warnf("placeholder %s not found in %s, skill index not injected", token, t.Source)
		r.step(StateInjecting, t.Name, "placeholder not found")
	} else {
		r.step(StateInjecting, t.Name, fmt.Sprintf("injected %d skills", idx.Total()))
	}

	if err := os.Rename(staged, t.Destination); err != nil {
		return fail(fmt.Errorf("installing %s: %w", t.Destination, err))
	}

	res.Outcome = OutcomeSuccess
	res.Detail = fmt.Sprintf("%d skills", idx.Total())
	log.Infof("deployed %s with %d skills", t.Name, idx.Total())
	return res
}

func (o *Orchestrator) backup(path string) (*backup.Record, error) {
	if o.Backups == nil {
		return nil, nil
	}
	rec, err := o.Backups.SnapshotIfExists(path)
	if err != nil {
		return nil, err
	}
	if rec != nil && o.OnBackup != nil && !o.Options.DryRun {
		o.OnBackup(*rec)
	}
	return rec, nil
}

// installToolchain makes sure node and the CLI are present.
func (o *Orchestrator) installToolchain(ctx context.Context, r *Report) {
	log := logger.G(ctx)
	res := ArtifactResult{Name: "toolchain"}
	defer func() {
		r.Artifacts = append(r.Artifacts, res)
		r.step(StateSummarizing, res.Name, res.Outcome.String())
	}()

	if o.Toolchain == nil {
		res.Outcome = OutcomeSkipped
		res.Detail = "no installer"
		return
	}
	if o.interrupted(ctx, r) {
		res.Outcome, res.Err = OutcomeFailure, ErrInterrupted
		return
	}

	hasNode := o.Toolchain.HasBinary("node") && o.Toolchain.HasBinary("npm")
	hasCLI := o.Toolchain.HasBinary(o.Options.CLIBinary)

	if !hasNode {
		if o.Options.DryRun {
			r.step(StateWriting, res.Name, "would install Node.js with "+r.Env.PackageManager)
		} else {
			if _, err := o.Toolchain.EnsureNode(ctx); err != nil {
				res.Outcome, res.Err = OutcomeFailure, err
				log.WithError(err).Error("installing Node.js failed")
				return
			}
			r.step(StateWriting, res.Name, "installed Node.js")
		}
	}

	if !hasCLI {
		if o.Options.DryRun {
			r.step(StateWriting, res.Name, "would install "+o.Options.CLIPackage)
		} else {
			if err := o.Toolchain.InstallCLI(ctx, o.Options.CLIPackage, ""); err != nil {
				res.Outcome, res.Err = OutcomeFailure, err
				log.WithError(err).Errorf("installing %s failed", o.Options.CLIPackage)
				return
			}
			r.step(StateWriting, res.Name, "installed "+o.Options.CLIPackage)
		}
		res.Detail = "installed " + o.Options.CLIPackage
	}
	res.Outcome = OutcomeSuccess
}

// updateProfile adds the npm global bin directory to the shell profile.
func (o *Orchestrator) updateProfile(ctx context.Context, r *Report) {
	log := logger.G(ctx)
	profile := r.Env.Profile
	res := ArtifactResult{Name: "shell profile"}
	defer func() {
		r.Artifacts = append(r.Artifacts, res)
		r.step(StateSummarizing, res.Name, res.Outcome.String())
	}()

	if o.Toolchain == nil || profile.Path == "" {
		res.Outcome = OutcomeSkipped
		res.Detail = "no profile"
		return
	}
	if o.interrupted(ctx, r) {
		res.Outcome, res.Err = OutcomeFailure, ErrInterrupted
		return
	}

	bin, err := o.Toolchain.NPMGlobalBin(ctx, r.Env.OS)
	if err != nil {
		// Without npm there is no directory to add.
		res.Outcome = OutcomeSkipped
		res.Detail = "npm prefix unknown"
		log.WithError(err).Warn("skipping shell profile update")
		return
	}

	present, err := profile.HasBlock(profile.Marker())
	if err != nil {
		res.Outcome, res.Err = OutcomeFailure, err
		return
	}
	if present {
		res.Outcome = OutcomeSuccess
		res.Detail = "already configured"
		return
	}

	rec, err := o.backup(profile.Path)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailure, err
		return
	}
	res.Backup = rec
	switch {
	case rec == nil:
		r.step(StateBackingUp, res.Name, "nothing to back up")
	case o.Options.DryRun:
		r.step(StateBackingUp, res.Name, fmt.Sprintf("would back up %s to %s", rec.Original, rec.Path))
	default:
		r.step(StateBackingUp, res.Name, "backed up to "+rec.Path)
	}

	if _, err := profile.EnsurePathEntry(bin, o.Options.DryRun); err != nil {
		res.Outcome, res.Err = OutcomeFailure, err
		return
	}
	if o.Options.DryRun {
		r.step(StateWriting, res.Name, fmt.Sprintf("would add %s to PATH in %s", bin, profile.Path))
	} else {
		r.step(StateWriting, res.Name, fmt.Sprintf("added %s to PATH in %s", bin, profile.Path))
		log.WithField("path", profile.Path).Infof("added %s to PATH; restart your shell to pick it up", bin)
	}
	res.Outcome = OutcomeSuccess
}
