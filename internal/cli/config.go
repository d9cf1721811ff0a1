package cli

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skillkit-labs/skillkit/internal/config"
	"github.com/skillkit-labs/skillkit/internal/updater"
)

// knownKeys are the settings skillkit reads.
var knownKeys = []string{
	config.KeyTargetDir,
	config.KeyBundleDir,
	config.KeyBundleRepo,
	config.KeyCLIPackage,
	config.KeyCLIBinary,
	config.KeyRegistryURL,
	config.KeyPlaceholder,
	config.KeyScopedFields,
	config.KeyAutoUpdateEnabled,
	config.KeyAutoUpdateInterval,
	config.KeyRetryAttempts,
	config.KeyRetryDelay,
	config.KeyCopyExclude,
	config.KeyMirror,
	config.KeyLogLevel,
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage user settings",
	Long:  `Read and write skillkit configuration stored at ~/.skillkit/config.yaml.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if !isKnownKey(key) {
			return usagef("unknown config key %q", key)
		}
		if key == config.KeyAutoUpdateInterval {
			if _, err := updater.ParseInterval(value); err != nil {
				return usageError{err}
			}
		}
		if key == config.KeyLogLevel {
			if _, err := logrus.ParseLevel(value); err != nil {
				return usageError{err}
			}
		}
		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("setting config key %q: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), configValue(args[0]))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting with its effective value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := append([]string(nil), knownKeys...)
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", k, configValue(k))
		}
		return nil
	},
}

func configValue(key string) string {
	switch key {
	case config.KeyScopedFields, config.KeyCopyExclude:
		return fmt.Sprint(config.GetStringSlice(key))
	default:
		return config.Get(key)
	}
}

func isKnownKey(key string) bool {
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}
