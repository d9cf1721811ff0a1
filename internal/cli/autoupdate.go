package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillkit-labs/skillkit/internal/config"
	"github.com/skillkit-labs/skillkit/internal/logger"
	"github.com/skillkit-labs/skillkit/internal/updater"
)

func init() {
	autoupdateCmd.AddCommand(autoupdateEnableCmd)
	autoupdateCmd.AddCommand(autoupdateDisableCmd)
	autoupdateCmd.AddCommand(autoupdateStatusCmd)
	autoupdateCmd.AddCommand(autoupdateIntervalCmd)
	rootCmd.AddCommand(autoupdateCmd)
}

var autoupdateCmd = &cobra.Command{
	Use:   "autoupdate",
	Short: "Manage scheduled CLI updates",
	Long: `When enabled, every deploy first checks whether the configured interval has
elapsed since the last CLI update check and, if so, updates the CLI.`,
}

var autoupdateEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable scheduled CLI updates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(config.KeyAutoUpdateEnabled, true); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Auto-update enabled (%s)\n", config.Get(config.KeyAutoUpdateInterval))
		return nil
	},
}

var autoupdateDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable scheduled CLI updates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(config.KeyAutoUpdateEnabled, false); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Auto-update disabled")
		return nil
	},
}

var autoupdateIntervalCmd = &cobra.Command{
	Use:       "interval <manual|daily|weekly|monthly>",
	Short:     "Set how often scheduled updates run",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"manual", "daily", "weekly", "monthly"},
	RunE: func(cmd *cobra.Command, args []string) error {
		iv, err := updater.ParseInterval(args[0])
		if err != nil {
			return usageError{err}
		}
		if err := config.Set(config.KeyAutoUpdateInterval, string(iv)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Auto-update interval set to %s\n", iv)
		return nil
	},
}

var autoupdateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the update schedule and the last check",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sched, err := currentSchedule()
		if err != nil {
			return err
		}
		sp, err := statePath()
		if err != nil {
			return err
		}
		st, err := updater.LoadState(sp)
		if err != nil {
			logger.G(cmd.Context()).WithError(err).Warn("update state unreadable, treating as never checked")
			st = &updater.State{}
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Enabled:      %t\n", sched.Enabled)
		fmt.Fprintf(w, "Interval:     %s\n", sched.Interval)
		fmt.Fprintf(w, "Last check:   %s\n", formatTime(st.LastCheck))
		if st.LastResult != "" {
			fmt.Fprintf(w, "Last result:  %s\n", st.LastResult)
		}
		if st.LastError != "" {
			fmt.Fprintf(w, "Last error:   %s\n", st.LastError)
		}
		if st.CLIVersion != "" {
			fmt.Fprintf(w, "CLI version:  %s (latest %s)\n", st.CLIVersion, orUnknown(st.CLILatest))
		}

		switch next := sched.NextCheck(st.LastCheck); {
		case !sched.Enabled || sched.Interval == updater.IntervalManual:
			fmt.Fprintln(w, "Next check:   never")
		case next.IsZero() || sched.IsDue(st.LastCheck, time.Now()):
			fmt.Fprintln(w, "Next check:   on the next deploy")
		default:
			fmt.Fprintf(w, "Next check:   %s\n", formatTime(next))
		}
		return nil
	},
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
