package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/skillkit-labs/skillkit/internal/backup"
	"github.com/skillkit-labs/skillkit/internal/config"
	"github.com/skillkit-labs/skillkit/internal/deploy"
	"github.com/skillkit-labs/skillkit/internal/history"
	"github.com/skillkit-labs/skillkit/internal/logger"
	"github.com/skillkit-labs/skillkit/internal/paths"
	"github.com/skillkit-labs/skillkit/internal/probe"
	"github.com/skillkit-labs/skillkit/internal/toolchain"
)

var (
	deployQuick      bool
	deploySkillsOnly bool
	deployBundle     string
	deployTarget     string
)

func init() {
	deployCmd.Flags().BoolVar(&deployQuick, "quick", false, "Deploy the configuration, skills and agent instructions only")
	deployCmd.Flags().BoolVar(&deploySkillsOnly, "skills-only", false, "Deploy the skills directory and the regenerated configuration only")
	deployCmd.Flags().StringVar(&deployBundle, "bundle", "", "Deploy from this bundle directory instead of the synced clone")
	deployCmd.Flags().StringVar(&deployTarget, "target", "", "Deploy into this directory instead of the CLI's config directory")
	rootCmd.AddCommand(deployCmd)
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the configuration bundle",
	Long: `Copies the bundle's skills, agents and instructions into the CLI's config
directory and writes its configuration with a freshly generated skills index.
Every file that would be overwritten is backed up first.

  skillkit deploy                 # full: toolchain, shell PATH entry and every artifact
  skillkit deploy --quick         # configuration, skills and AGENTS.md
  skillkit deploy --skills-only   # skills and the regenerated configuration
  skillkit deploy --dry-run       # describe what would change`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logger.G(ctx)

		mode, err := deployMode(deployQuick, deploySkillsOnly)
		if err != nil {
			return err
		}
		bundleDir, err := resolveBundle(ctx, deployBundle)
		if err != nil {
			return err
		}
		target, err := targetDir(deployTarget)
		if err != nil {
			return err
		}
		excluder, err := deploy.NewExcluder(config.GetStringSlice(config.KeyCopyExclude))
		if err != nil {
			return fmt.Errorf("%s: %w", config.KeyCopyExclude, err)
		}
		backups, err := newBackups("deploy " + string(mode))
		if err != nil {
			return err
		}

		dbPath, _ := paths.HistoryDB()
		rec := history.Begin(ctx, dbPath, "deploy", string(mode), flagDryRun)

		if !flagDryRun {
			autoUpdateIfDue(ctx, rec)
		}

		log.WithField("bundle", bundleDir).WithField("target", target).
			Infof("deploying (%s mode)", mode)

		o := &deploy.Orchestrator{
			Prober:    probe.New(),
			Backups:   backups,
			Confirmer: newConfirmer(cmd),
			Options: deploy.Options{
				Mode:        mode,
				DryRun:      flagDryRun,
				AutoAccept:  flagYes,
				SkillsDir:   filepath.Join(bundleDir, deploy.SkillsDir),
				Placeholder: config.Get(config.KeyPlaceholder),
				Fields:      config.GetStringSlice(config.KeyScopedFields),
				Excluder:    excluder,
				CLIPackage:  config.Get(config.KeyCLIPackage),
				CLIBinary:   config.Get(config.KeyCLIBinary),
			},
			OnBackup: func(r backup.Record) {
				rec.Backup(ctx, r.Original, r.Path, r.CreatedAt)
			},
		}
		if mode == deploy.ModeFull {
			inst := &toolchain.Installer{Runner: newRunner(), Sudo: needsSudo()}
			o.Toolchain = inst
			o.Prober = installerProber{Prober: o.Prober, inst: inst}
		}

		report, runErr := o.Run(ctx, deploy.DefaultTargets(bundleDir, target, mode))
		report.PrintSummary(cmd.OutOrStdout())
		rec.Finish(ctx, report.Outcome().String(), report.BackupRoot, runErr)

		if runErr != nil {
			printRecovery(cmd, "Deployment did not complete.", report.BackupRoot)
			return reported(runErr)
		}
		return nil
	},
}

// deployMode resolves the mode flags.
func deployMode(quick, skillsOnly bool) (deploy.Mode, error) {
	switch {
	case quick && skillsOnly:
		return "", usagef("--quick and --skills-only cannot be combined")
	case quick:
		return deploy.ModeQuick, nil
	case skillsOnly:
		return deploy.ModeSkillsOnly, nil
	default:
		return deploy.ModeFull, nil
	}
}

// autoUpdateIfDue runs a scheduled CLI update before deploying. Failures
// are logged and never block the deployment.
func autoUpdateIfDue(ctx context.Context, rec *history.Recorder) {
	log := logger.G(ctx)
	s, err := newScheduler()
	if err != nil {
		log.WithError(err).Warn("auto-update skipped")
		return
	}
	a, err := s.RunIfDue(ctx, time.Now())
	if a == nil {
		if err != nil {
			log.WithError(err).Warn("auto-update skipped")
		}
		return
	}
	rec.Update(ctx, s.Oracle.Package, a.From.String(), a.To.String(), a.Outcome, a.Err)
}

func printRecovery(cmd *cobra.Command, headline, backupRoot string) {
	logPath, _ := paths.LogFile()
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "\n%s\n", color.RedString(headline))
	for _, s := range deploy.RecoverySuggestions(backupRoot, logPath) {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}
