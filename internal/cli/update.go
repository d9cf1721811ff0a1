package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/skillkit-labs/skillkit/internal/backup"
	"github.com/skillkit-labs/skillkit/internal/branding"
	"github.com/skillkit-labs/skillkit/internal/history"
	"github.com/skillkit-labs/skillkit/internal/logger"
	"github.com/skillkit-labs/skillkit/internal/paths"
	"github.com/skillkit-labs/skillkit/internal/updater"
)

var (
	updateCheck   bool
	updateSelf    bool
	updateForce   bool
	updateVersion string
)

func init() {
	updateCmd.Flags().BoolVar(&updateCheck, "check", false, "Only check for updates, change nothing")
	updateCmd.Flags().BoolVar(&updateSelf, "self", false, "Update "+branding.CLIName()+" itself instead of the CLI")
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "Install even when the installed version is current or unknown")
	updateCmd.Flags().StringVar(&updateVersion, "version", "", "Install a specific version (e.g., 1.2.0)")

	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the CLI, or skillkit itself with --self",
	Long: `Installs the latest published version of the managed CLI with npm and verifies
it. With --self, downloads the latest skillkit release from GitHub (or a
configured mirror) and swaps the running binary after backing it up.

  skillkit update                   # update the CLI now
  skillkit update --check           # report versions only
  skillkit update --version 1.2.0   # install a specific CLI version
  skillkit update --self            # update skillkit itself`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if updateSelf {
			return runSelfUpdate(cmd)
		}
		return runCLIUpdate(cmd)
	},
}

func runCLIUpdate(cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s, err := newScheduler()
	if err != nil {
		return err
	}

	if updateCheck {
		printReport(out, s.Oracle.Binary, s.Check(ctx))
		return nil
	}

	dbPath, _ := paths.HistoryDB()
	rec := history.Begin(ctx, dbPath, "update", "cli", flagDryRun)

	a, err := s.Update(ctx, updater.UpdateOptions{Version: updateVersion, Force: updateForce})
	rec.Update(ctx, s.Oracle.Package, a.From.String(), a.To.String(), a.Outcome, a.Err)
	rec.Finish(ctx, a.Outcome, snapshotRoot(s), err)

	fmt.Fprintf(out, "%s: %s (installed %s, latest %s)\n", s.Oracle.Binary, a.Outcome, a.From, a.To)
	for _, b := range a.Backups {
		fmt.Fprintf(out, "  backed up %s to %s\n", b.Original, b.Path)
	}
	if err != nil {
		printRecovery(cmd, "Update did not complete.", snapshotRoot(s))
		return reported(err)
	}
	return nil
}

// snapshotRoot returns the backup root the scheduler wrote to, if any.
func snapshotRoot(s *updater.Scheduler) string {
	if m, ok := s.Snapshot.(*backup.Manager); ok {
		return m.Root()
	}
	return ""
}

func printReport(w io.Writer, name string, r updater.Report) {
	fmt.Fprintf(w, "%s\n", name)
	fmt.Fprintf(w, "  installed: %s\n", r.Installed)
	fmt.Fprintf(w, "  latest:    %s\n", r.Latest)
	switch r.Status {
	case updater.StatusUpdateAvailable:
		fmt.Fprintf(w, "  status:    %s\n", color.YellowString(r.Status.String()))
	case updater.StatusUpToDate:
		fmt.Fprintf(w, "  status:    %s\n", color.GreenString(r.Status.String()))
	default:
		fmt.Fprintf(w, "  status:    %s\n", r.Status)
	}
}

func runSelfUpdate(cmd *cobra.Command) error {
	ctx := cmd.Context()
	log := logger.G(ctx)
	out := cmd.OutOrStdout()

	u := newSelfUpdater(!flagQuiet)

	var release *updater.Release
	var err error
	if updateVersion != "" {
		log.Infof("checking for %s %s", branding.CLIName(), updateVersion)
		release, err = u.CheckSpecificVersion(ctx, updateVersion)
	} else {
		log.Info("checking for updates")
		release, err = u.CheckLatestVersion(ctx)
	}
	if err != nil {
		return fmt.Errorf("checking for updates: %w", err)
	}

	current := updater.MustVersion(buildVersion)
	latest := updater.MustVersion(release.Version)
	status := updater.Compare(current, latest)
	if sp, err := statePath(); err == nil && !updateCheck && !flagDryRun {
		if err := updater.RecordSelfCheck(sp, buildVersion, latest); err != nil {
			log.WithError(err).Debug("could not record self check")
		}
	}

	if updateCheck {
		printReport(out, branding.CLIName(), updater.Report{Installed: current, Latest: latest, Status: status})
		return nil
	}

	// A development build has no comparable version and always updates.
	available := status == updater.StatusUpdateAvailable || buildVersion == "dev"
	if status == updater.StatusUnknown && !available && !updateForce {
		fmt.Fprintf(out, "Cannot compare %s with %s, use --force to install it\n", buildVersion, release.Version)
		return nil
	}
	if !available && !updateForce && updateVersion == "" {
		fmt.Fprintf(out, "You are on the latest version (%s)\n", buildVersion)
		return nil
	}

	if flagDryRun {
		fmt.Fprintf(out, "Would download %s %s for %s/%s, back up the running binary and replace it\n",
			branding.CLIName(), release.Version, runtime.GOOS, runtime.GOARCH)
		return nil
	}

	dbPath, _ := paths.HistoryDB()
	rec := history.Begin(ctx, dbPath, "update", "self", false)

	root, err := replaceSelf(ctx, u, release, rec)
	rec.Update(ctx, branding.CLIName(), buildVersion, release.Version, selfOutcome(err), err)
	rec.Finish(ctx, selfOutcome(err), root, err)
	if err != nil {
		log.WithError(err).Error("self-update failed")
		printRecovery(cmd, "Self-update did not complete.", root)
		return reported(err)
	}

	if sp, err := statePath(); err == nil {
		_ = updater.RecordSelfCheck(sp, release.Version, latest)
	}
	fmt.Fprintf(out, "Successfully updated to %s\n", release.Version)
	return nil
}

func selfOutcome(err error) string {
	if err != nil {
		return updater.OutcomeFailed
	}
	return updater.OutcomeUpdated
}

// replaceSelf downloads, verifies and installs release over the running
// binary. It returns the backup root holding the previous binary.
func replaceSelf(ctx context.Context, u *updater.Updater, release *updater.Release, rec *history.Recorder) (string, error) {
	log := logger.G(ctx)
	log.Infof("downloading %s %s for %s/%s", branding.CLIName(), release.Version, runtime.GOOS, runtime.GOARCH)

	tmpDir, err := os.MkdirTemp("", branding.CLIName()+"-update-*")
	if err != nil {
		return "", fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	archivePath, err := u.DownloadBinary(ctx, release, tmpDir)
	if err != nil {
		return "", fmt.Errorf("downloading binary: %w", err)
	}

	log.Info("verifying checksum")
	if err := u.VerifyChecksum(ctx, release, archivePath); err != nil {
		return "", fmt.Errorf("checksum verification failed: %w", err)
	}

	binPath, err := updater.ExtractBinary(archivePath, tmpDir)
	if err != nil {
		return "", fmt.Errorf("extracting binary: %w", err)
	}

	currentBinary, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("finding current binary: %w", err)
	}

	backups, err := newBackups("self update")
	if err != nil {
		return "", err
	}

	log.Info("installing")
	snap, err := updater.ReplaceBinary(ctx, backups, binPath, currentBinary, release.Version)
	if snap != nil {
		rec.Backup(ctx, snap.Original, snap.Path, snap.CreatedAt)
	}
	return backups.Root(), err
}
