package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillkit-labs/skillkit/internal/branding"
	"github.com/skillkit-labs/skillkit/internal/bundle"
	"github.com/skillkit-labs/skillkit/internal/config"
	"github.com/skillkit-labs/skillkit/internal/logger"
	"github.com/skillkit-labs/skillkit/internal/paths"
	"github.com/skillkit-labs/skillkit/internal/updater"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

// Global flags.
var (
	flagVerbose bool
	flagQuiet   bool
	flagDryRun  bool
	flagYes     bool
)

var (
	logCloser  io.Closer
	loggingSet bool
)

// Commands that skip the startup banner and staleness hint.
var quietCommands = map[string]bool{
	"update":     true,
	"version":    true,
	"autoupdate": true,
	"bundle":     true,
	"help":       true,
	"completion": true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Show debug output on the console")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Only print errors on the console")
	pf.BoolVar(&flagDryRun, "dry-run", false, "Describe every change without making it")
	pf.BoolVarP(&flagYes, "yes", "y", false, "Answer yes to every confirmation prompt")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` deploys an agent configuration bundle (skills, agents, instructions and
the tool configuration) into the local CLI's config directory, injects a generated
skills index into the configuration, and keeps the CLI and itself up to date.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load()

		logPath, err := paths.LogFile()
		if err != nil {
			logPath = ""
		}
		closer, err := logger.Setup(logger.Options{
			Path:    logPath,
			Verbose: flagVerbose,
			Quiet:   flagQuiet,
			Stdout:  cmd.OutOrStdout(),
			Stderr:  cmd.ErrOrStderr(),
		})
		logCloser = closer
		loggingSet = true
		if err != nil {
			logger.G(cmd.Context()).WithError(err).Warn("log file unavailable, logging to console only")
		}
		if err := logger.SetLogLevel(config.Get(config.KeyLogLevel)); err != nil {
			logger.G(cmd.Context()).WithError(err).Warnf("invalid %s, keeping debug", config.KeyLogLevel)
		}
		logger.G(cmd.Context()).WithField("args", os.Args[1:]).Debug("starting")

		if quietCommands[topLevel(cmd)] || flagQuiet {
			return nil
		}
		printStartupHints(cmd.ErrOrStderr())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
}

func closeLog() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

// topLevel returns the name of the root's child that cmd belongs to.
func topLevel(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent().HasParent() {
		cmd = cmd.Parent()
	}
	return cmd.Name()
}

// printStartupHints prints the cached self-update banner and a bundle
// staleness notice. Neither touches the network.
func printStartupHints(w io.Writer) {
	if statePath, err := statePath(); err == nil {
		updater.PrintBanner(w, statePath, buildVersion)
	}

	dir, err := bundle.Dir()
	if err != nil {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		return
	}
	if bundle.IsStale(dir, bundle.DefaultMaxAge, time.Now()) {
		fmt.Fprintf(w, "Bundle is more than 7 days old. Run '%s bundle sync'.\n", branding.CLIName())
	}
}

// Execute runs the root command with build info injected via ldflags.
// SIGINT and SIGTERM cancel the command's context.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		reportError(os.Stderr, err)
	}
	closeLog()
	return err
}
