package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillkit-labs/skillkit/internal/bundle"
	"github.com/skillkit-labs/skillkit/internal/logger"
)

var bundleFull bool

func init() {
	bundleSyncCmd.Flags().BoolVar(&bundleFull, "full", false, "Fetch the complete history instead of a shallow clone")
	bundleCmd.AddCommand(bundleSyncCmd)
	bundleCmd.AddCommand(bundleStatusCmd)
	rootCmd.AddCommand(bundleCmd)
}

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Manage the local copy of the configuration bundle",
}

var bundleSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Clone or update the bundle repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dir, err := bundle.Dir()
		if err != nil {
			return err
		}

		s := bundle.NewSyncer()
		if bundleFull {
			s.Depth = 0
		}
		if !flagQuiet {
			s.Progress = os.Stderr
		}

		if flagDryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "Would sync %s into %s\n", s.URL, dir)
			return nil
		}

		res, err := s.Sync(ctx, dir)
		if err != nil {
			return err
		}
		logger.G(ctx).WithField("head", res.Head).Debug("bundle synced")

		w := cmd.OutOrStdout()
		switch {
		case res.Cloned:
			fmt.Fprintf(w, "Cloned bundle into %s\n", res.Dir)
		case res.Updated:
			fmt.Fprintf(w, "Updated bundle in %s\n", res.Dir)
		default:
			fmt.Fprintf(w, "Bundle in %s is up to date\n", res.Dir)
		}
		if v := bundle.Version(res.Dir); v != "" {
			fmt.Fprintf(w, "Version: %s\n", v)
		}
		return nil
	},
}

var bundleStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the bundle lives and when it was last synced",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := bundle.Dir()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Repository:  %s\n", bundle.RepoURL())
		fmt.Fprintf(w, "Directory:   %s\n", dir)
		if _, err := os.Stat(dir); err != nil {
			fmt.Fprintln(w, "Status:      not synced")
			return nil
		}
		if v := bundle.Version(dir); v != "" {
			fmt.Fprintf(w, "Version:     %s\n", v)
		}
		fmt.Fprintf(w, "Last sync:   %s\n", formatTime(bundle.ReadFreshnessMarker(dir)))
		if bundle.IsStale(dir, bundle.DefaultMaxAge, time.Now()) {
			fmt.Fprintln(w, "Status:      stale")
		} else {
			fmt.Fprintln(w, "Status:      fresh")
		}
		return nil
	},
}
