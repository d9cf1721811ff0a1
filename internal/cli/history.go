package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillkit-labs/skillkit/internal/history"
	"github.com/skillkit-labs/skillkit/internal/paths"
)

var (
	historyLimit   int
	historyDetails bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyDetails, "details", false, "Show backups and update attempts of every run")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past deploy, update and restore runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		w := cmd.OutOrStdout()

		dbPath, err := paths.HistoryDB()
		if err != nil {
			return err
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			fmt.Fprintln(w, "No runs recorded yet")
			return nil
		}

		store, err := history.Open(ctx, dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Runs(ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(w, "No runs recorded yet")
			return nil
		}

		for _, r := range runs {
			label := r.Command
			if r.Mode != "" {
				label += " " + r.Mode
			}
			if r.DryRun {
				label += " (dry run)"
			}
			outcome := r.Outcome
			if outcome == "" {
				outcome = "incomplete"
			}
			fmt.Fprintf(w, "%s  %-8s  %-28s %s\n", r.StartedAt.Local().Format(time.DateTime), r.ID[:8], label, outcome)
			if r.Error != "" {
				fmt.Fprintf(w, "    error: %s\n", r.Error)
			}
			if !historyDetails {
				continue
			}
			if r.BackupRoot != "" {
				fmt.Fprintf(w, "    backup root: %s\n", r.BackupRoot)
			}
			backups, err := store.Backups(ctx, r.ID)
			if err != nil {
				return err
			}
			for _, b := range backups {
				fmt.Fprintf(w, "    backed up %s\n", b.Original)
			}
			updates, err := store.Updates(ctx, r.ID)
			if err != nil {
				return err
			}
			for _, u := range updates {
				fmt.Fprintf(w, "    %s %s -> %s: %s\n", u.Package, u.From, u.To, u.Outcome)
			}
		}
		return nil
	},
}
