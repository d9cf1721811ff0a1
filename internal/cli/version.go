package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/skillkit-labs/skillkit/internal/branding"
	"github.com/skillkit-labs/skillkit/internal/bundle"
)

var (
	versionShort bool
	versionJSON  bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print the skillkit version only")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print build and bundle info as JSON")
	rootCmd.AddCommand(versionCmd)
}

// versionInfo is the --json output.
type versionInfo struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Date     string `json:"date"`
	Platform string `json:"platform"`
	Bundle   string `json:"bundle,omitempty"`
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:  buildVersion,
		Commit:   buildCommit,
		Date:     buildDate,
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	if dir, err := bundle.Dir(); err == nil {
		info.Bundle = bundle.Version(dir)
	}
	return info
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(w, buildVersion)
			return nil
		}

		info := currentVersionInfo()
		if versionJSON {
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling version info: %w", err)
			}
			fmt.Fprintln(w, string(out))
			return nil
		}

		fmt.Fprintf(w, "%s version %s (commit: %s, built: %s, %s)\n",
			branding.CLIName(), info.Version, info.Commit, info.Date, info.Platform)
		if info.Bundle != "" {
			fmt.Fprintf(w, "bundle version %s\n", info.Bundle)
		}
		return nil
	},
}
