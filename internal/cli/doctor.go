package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillkit-labs/skillkit/internal/bundle"
	"github.com/skillkit-labs/skillkit/internal/config"
	"github.com/skillkit-labs/skillkit/internal/deploy"
	"github.com/skillkit-labs/skillkit/internal/inject"
	"github.com/skillkit-labs/skillkit/internal/paths"
	"github.com/skillkit-labs/skillkit/internal/probe"
	"github.com/skillkit-labs/skillkit/internal/toolchain"
	"github.com/skillkit-labs/skillkit/internal/updater"
)

var doctorOffline bool

func init() {
	doctorCmd.Flags().BoolVar(&doctorOffline, "offline", false, "Skip registry and release lookups")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for the skillkit installation",
	Long:  `Run diagnostic checks on the environment, the toolchain, the bundle and the state directory.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		env := runEnvironmentCheck(cmd, w)
		runner := newRunner()
		runRuntimeCheck(w, runner)
		runVersionCheck(cmd, w, runner)
		runBundleCheck(w)
		runPathsCheck(w, env)
		return nil
	},
}

func runEnvironmentCheck(cmd *cobra.Command, w io.Writer) probe.Environment {
	fmt.Fprintln(w, "Environment:")
	raw := probe.New().Probe(cmd.Context())
	env, degraded := raw.Normalize()
	fmt.Fprintf(w, "  [INFO] os=%s distro=%s shell=%s package manager=%s\n", env.OS, env.Distro, env.Shell, env.PackageManager)
	for _, d := range degraded {
		fmt.Fprintf(w, "  [WARN] %s not detected, using defaults\n", d)
	}
	if env.PackageManager == probe.Unknown {
		fmt.Fprintln(w, "  [WARN] no supported package manager, Node.js must be installed manually")
	}
	return env
}

func runRuntimeCheck(w io.Writer, r toolchain.Runner) {
	fmt.Fprintln(w, "Runtime check:")
	for _, name := range []string{"node", "npm", "git", config.Get(config.KeyCLIBinary)} {
		checkBinary(w, r, name)
	}
}

func checkBinary(w io.Writer, r toolchain.Runner, name string) {
	path, err := r.LookPath(name)
	if err != nil {
		fmt.Fprintf(w, "  [MISS] %s not found\n", name)
		return
	}
	fmt.Fprintf(w, "  [ OK ] %s found at %s\n", name, path)
}

func runVersionCheck(cmd *cobra.Command, w io.Writer, r toolchain.Runner) {
	fmt.Fprintln(w, "Versions:")
	o := newOracle(r)
	if doctorOffline {
		installed, _ := o.InstalledCLI(cmd.Context())
		fmt.Fprintf(w, "  [INFO] %s %s (latest not checked)\n", o.Binary, installed)
		fmt.Fprintf(w, "  [INFO] skillkit %s\n", buildVersion)
		return
	}
	printStatusLine(w, o.Binary, o.CheckCLI(cmd.Context()))
	printStatusLine(w, "skillkit", o.CheckSelf(cmd.Context()))
}

func printStatusLine(w io.Writer, name string, r updater.Report) {
	switch r.Status {
	case updater.StatusUpToDate:
		fmt.Fprintf(w, "  [ OK ] %s %s is up to date\n", name, r.Installed)
	case updater.StatusUpdateAvailable:
		fmt.Fprintf(w, "  [WARN] %s %s, %s available\n", name, r.Installed, r.Latest)
	default:
		fmt.Fprintf(w, "  [WARN] %s installed %s, latest %s\n", name, r.Installed, r.Latest)
	}
}

func runBundleCheck(w io.Writer) {
	fmt.Fprintln(w, "Bundle:")
	dir, err := bundle.Dir()
	if err != nil {
		fmt.Fprintf(w, "  [WARN] Cannot resolve bundle directory: %v\n", err)
		return
	}
	if _, err := os.Stat(dir); err != nil {
		fmt.Fprintf(w, "  [MISS] %s not found (run `skillkit bundle sync`)\n", dir)
		return
	}
	version := bundle.Version(dir)
	if version == "" {
		version = "unversioned"
	}
	fmt.Fprintf(w, "  [ OK ] %s (%s)\n", dir, version)
	if bundle.IsStale(dir, bundle.DefaultMaxAge, time.Now()) {
		fmt.Fprintln(w, "  [WARN] bundle has not been synced in 7 days")
	}

	cfg := filepath.Join(dir, deploy.ConfigFile)
	data, err := os.ReadFile(cfg)
	if err != nil {
		fmt.Fprintf(w, "  [MISS] %s not found\n", deploy.ConfigFile)
		return
	}
	plan, err := inject.Prepare(data, config.Get(config.KeyPlaceholder), "", config.GetStringSlice(config.KeyScopedFields))
	switch {
	case err != nil:
		fmt.Fprintf(w, "  [FAIL] %s: %v\n", deploy.ConfigFile, err)
	case len(plan.Matched) == 0:
		fmt.Fprintf(w, "  [WARN] %s has no skills placeholder in its scoped fields\n", deploy.ConfigFile)
	default:
		fmt.Fprintf(w, "  [ OK ] %s placeholder at %v\n", deploy.ConfigFile, plan.Matched)
	}
}

func runPathsCheck(w io.Writer, env probe.Environment) {
	fmt.Fprintln(w, "Paths:")
	if dir, err := targetDir(""); err == nil {
		if _, err := os.Stat(dir); err != nil {
			fmt.Fprintf(w, "  [INFO] target %s does not exist yet\n", dir)
		} else {
			fmt.Fprintf(w, "  [ OK ] target %s\n", dir)
		}
	}
	if dir, err := paths.StateDir(); err == nil {
		fmt.Fprintf(w, "  [INFO] state %s\n", dir)
	}
	if p, err := paths.LogFile(); err == nil {
		fmt.Fprintf(w, "  [INFO] log %s\n", p)
	}
	if env.Profile.Path != "" {
		if ok, _ := env.Profile.HasBlock(env.Profile.Marker()); ok {
			fmt.Fprintf(w, "  [ OK ] %s has the npm PATH entry\n", env.Profile.Path)
		} else {
			fmt.Fprintf(w, "  [INFO] %s has no npm PATH entry (added by a full deploy)\n", env.Profile.Path)
		}
	}
}
