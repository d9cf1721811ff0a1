package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/skillkit-labs/skillkit/internal/backup"
	"github.com/skillkit-labs/skillkit/internal/branding"
	"github.com/skillkit-labs/skillkit/internal/bundle"
	"github.com/skillkit-labs/skillkit/internal/config"
	"github.com/skillkit-labs/skillkit/internal/deploy"
	"github.com/skillkit-labs/skillkit/internal/logger"
	"github.com/skillkit-labs/skillkit/internal/paths"
	"github.com/skillkit-labs/skillkit/internal/probe"
	"github.com/skillkit-labs/skillkit/internal/toolchain"
	"github.com/skillkit-labs/skillkit/internal/updater"
)

const httpTimeout = 30 * time.Second

func statePath() (string, error) {
	dir, err := paths.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, paths.StateFileName), nil
}

// targetDir returns override, the target_dir config key, or the CLI's
// default config directory.
func targetDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if v := config.Get(config.KeyTargetDir); v != "" {
		return v, nil
	}
	return paths.DefaultTargetDir()
}

func retryConfig() updater.RetryConfig {
	cfg := updater.DefaultRetry
	if n := config.GetInt(config.KeyRetryAttempts); n > 0 {
		cfg.Attempts = uint(n)
	}
	if d := config.GetDuration(config.KeyRetryDelay); d > 0 {
		cfg.Delay = d
	}
	return cfg
}

// newRunner returns a command runner that streams subprocess output to
// stderr in verbose mode.
func newRunner() *toolchain.ExecRunner {
	r := &toolchain.ExecRunner{}
	if flagVerbose {
		r.Stdout = os.Stderr
		r.Stderr = os.Stderr
	}
	return r
}

func newSelfUpdater(progress bool) *updater.Updater {
	opts := []updater.Option{
		updater.WithHTTPClient(&http.Client{Timeout: httpTimeout}),
		updater.WithRetry(retryConfig()),
	}
	if mirror := config.Get(config.KeyMirror); mirror != "" {
		opts = append(opts, updater.WithMirror(mirror))
	}
	if progress {
		opts = append(opts, updater.WithProgress(os.Stderr))
	}
	return updater.New(buildVersion, opts...)
}

func newOracle(r toolchain.Runner) *updater.Oracle {
	return &updater.Oracle{
		Runner: r,
		Registry: &updater.Registry{
			BaseURL:    config.Get(config.KeyRegistryURL),
			HTTPClient: &http.Client{Timeout: httpTimeout},
			Retry:      retryConfig(),
		},
		Package: config.Get(config.KeyCLIPackage),
		Binary:  config.Get(config.KeyCLIBinary),
		Self:    newSelfUpdater(false),
	}
}

func currentSchedule() (updater.Schedule, error) {
	iv, err := updater.ParseInterval(config.Get(config.KeyAutoUpdateInterval))
	if err != nil {
		return updater.Schedule{}, fmt.Errorf("%s: %w", config.KeyAutoUpdateInterval, err)
	}
	return updater.Schedule{
		Enabled:  config.GetBool(config.KeyAutoUpdateEnabled),
		Interval: iv,
	}, nil
}

func newBackups(reason string) (*backup.Manager, error) {
	base, err := paths.BackupsRoot()
	if err != nil {
		return nil, err
	}
	return backup.New(base, backup.WithDryRun(flagDryRun), backup.WithReason(reason)), nil
}

// newScheduler wires the CLI update scheduler. The CLI's package.json is
// snapshotted before every install.
func newScheduler() (*updater.Scheduler, error) {
	sched, err := currentSchedule()
	if err != nil {
		return nil, err
	}
	sp, err := statePath()
	if err != nil {
		return nil, err
	}
	backups, err := newBackups("cli update")
	if err != nil {
		return nil, err
	}

	runner := newRunner()
	inst := &toolchain.Installer{Runner: runner}
	pkg := config.Get(config.KeyCLIPackage)
	return &updater.Scheduler{
		Schedule:  sched,
		StatePath: sp,
		Oracle:    newOracle(runner),
		Installer: inst,
		Snapshot:  backups,
		MetadataPaths: func(ctx context.Context) []string {
			dir, err := inst.NPMPackageDir(ctx, runtime.GOOS, pkg)
			if err != nil {
				logger.G(ctx).WithError(err).Debug("no CLI install metadata to back up")
				return nil
			}
			return []string{filepath.Join(dir, "package.json")}
		},
		DryRun: flagDryRun,
	}, nil
}

// newConfirmer prompts on an interactive terminal and otherwise answers
// every question with its default.
func newConfirmer(cmd *cobra.Command) deploy.Confirmer {
	if f, ok := cmd.InOrStdin().(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return deploy.NewPromptConfirmer(f, cmd.OutOrStdout())
	}
	logger.G(cmd.Context()).Debug("stdin is not a terminal, using default answers")
	return deploy.AutoConfirmer{}
}

// installerProber hands the probed package manager to the installer so the
// host is only probed once per run.
type installerProber struct {
	deploy.Prober
	inst *toolchain.Installer
}

func (p installerProber) Probe(ctx context.Context) probe.Environment {
	env := p.Prober.Probe(ctx)
	p.inst.PackageManager = env.PackageManager
	return env
}

// resolveBundle returns the bundle directory to deploy from. A missing
// managed clone is cloned first, except in dry-run mode.
func resolveBundle(ctx context.Context, override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("bundle directory: %w", err)
		}
		return override, nil
	}

	dir, err := bundle.Dir()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	}
	if flagDryRun {
		return "", fmt.Errorf("bundle not found at %s: run '%s bundle sync' first", dir, branding.CLIName())
	}

	s := bundle.NewSyncer()
	if flagVerbose {
		s.Progress = os.Stderr
	}
	if _, err := s.Sync(ctx, dir); err != nil {
		return "", err
	}
	return dir, nil
}

// needsSudo reports whether system package managers must be run with sudo.
func needsSudo() bool {
	return runtime.GOOS != "windows" && os.Geteuid() != 0
}
