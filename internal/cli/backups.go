package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/skillkit-labs/skillkit/internal/backup"
	"github.com/skillkit-labs/skillkit/internal/deploy"
	"github.com/skillkit-labs/skillkit/internal/history"
	"github.com/skillkit-labs/skillkit/internal/logger"
	"github.com/skillkit-labs/skillkit/internal/paths"
)

func init() {
	backupsCmd.AddCommand(backupsRestoreCmd)
	rootCmd.AddCommand(backupsCmd)
}

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List backup roots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := paths.BackupsRoot()
		if err != nil {
			return err
		}
		entries, err := backup.List(base)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintf(w, "No backups in %s\n", base)
			return nil
		}
		for _, e := range entries {
			if e.Manifest == nil {
				fmt.Fprintf(w, "%s  (no manifest)\n", filepath.Base(e.Root))
				continue
			}
			fmt.Fprintf(w, "%s  %-14s %d item(s)\n", filepath.Base(e.Root), e.Manifest.Reason, len(e.Manifest.Records))
			for _, r := range e.Manifest.Records {
				fmt.Fprintf(w, "    %s\n", r.Original)
			}
		}
		return nil
	},
}

var backupsRestoreCmd = &cobra.Command{
	Use:   "restore <root>",
	Short: "Restore every item of a backup root to its original location",
	Long: `Copies each snapshot in a backup root back over its original path. The
current content of those paths is backed up into a new root first, so a
restore can itself be undone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logger.G(ctx)

		base, err := paths.BackupsRoot()
		if err != nil {
			return err
		}
		root := args[0]
		if _, err := os.Stat(root); err != nil {
			root = filepath.Join(base, args[0])
		}
		m, err := backup.ReadManifest(root)
		if err != nil {
			return fmt.Errorf("reading backup %s: %w", args[0], err)
		}
		if len(m.Records) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Backup %s is empty\n", root)
			return nil
		}

		if !flagYes && !flagDryRun {
			ok, err := newConfirmer(cmd).Confirm(fmt.Sprintf("Restore %d item(s) from %s?", len(m.Records), root), false)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Restore cancelled")
				return nil
			}
		}

		dbPath, _ := paths.HistoryDB()
		rec := history.Begin(ctx, dbPath, "restore", "", flagDryRun)
		safety := backup.New(base, backup.WithDryRun(flagDryRun), backup.WithReason("restore"))

		var result *multierror.Error
		for _, r := range m.Records {
			if err := ctx.Err(); err != nil {
				result = multierror.Append(result, err)
				break
			}
			snap, err := safety.SnapshotIfExists(r.Original)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("backing up %s: %w", r.Original, err))
				continue
			}
			if flagDryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "would restore %s from %s\n", r.Original, r.Path)
				continue
			}
			if snap != nil {
				rec.Backup(ctx, snap.Original, snap.Path, snap.CreatedAt)
			}
			if err := backup.Restore(r); err != nil {
				result = multierror.Append(result, err)
				continue
			}
			log.Infof("restored %s", r.Original)
		}

		err = result.ErrorOrNil()
		outcome := deploy.OutcomeSuccess
		if err != nil {
			outcome = deploy.OutcomeFailure
		}
		rec.Finish(ctx, outcome.String(), safety.Root(), err)
		if root := safety.Root(); root != "" && !flagDryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "Previous content saved to %s\n", root)
		}
		return err
	},
}
