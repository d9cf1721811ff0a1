package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skillkit-labs/skillkit/internal/branding"
	"github.com/skillkit-labs/skillkit/internal/paths"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Config keys.
const (
	KeyTargetDir           = "target_dir"
	KeyBundleDir           = "bundle_dir"
	KeyBundleRepo          = "bundle_repo"
	KeyCLIPackage          = "cli_package"
	KeyCLIBinary           = "cli_binary"
	KeyRegistryURL         = "registry_url"
	KeyPlaceholder         = "placeholder"
	KeyScopedFields        = "scoped_fields"
	KeyAutoUpdateEnabled   = "auto_update.enabled"
	KeyAutoUpdateInterval  = "auto_update.interval"
	KeyRetryAttempts       = "retry.attempts"
	KeyRetryDelay          = "retry.delay"
	KeyCopyExclude         = "copy.exclude"
	KeyMirror              = "mirror"
	KeyLogLevel            = "log.level"
	DefaultLogLevel        = "debug"
	DefaultPlaceholder     = "{{SKILLS_SECTION_PLACEHOLDER}}"
	DefaultRetryAttempts   = 3
	DefaultRetryDelay      = 500 * time.Millisecond
	DefaultUpdateInterval  = "weekly"
	defaultAutoUpdateOnOff = false
)

// DefaultScopedFields are the JSON pointer patterns that may carry the
// skills placeholder in the bundle's opencode.json.
var DefaultScopedFields = []string{"/agent/*/prompt", "/instructions/*"}

// Dir returns the path to the skillkit config directory (~/.skillkit/).
func Dir() string {
	dir, err := paths.StateDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return dir
}

// FilePath returns the full path to the config file (~/.skillkit/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(KeyBundleRepo, branding.BundleRepoURL())
	viper.SetDefault(KeyCLIPackage, branding.CLIPackage())
	viper.SetDefault(KeyCLIBinary, branding.CLIBinary())
	viper.SetDefault(KeyRegistryURL, branding.NPMRegistry())
	viper.SetDefault(KeyPlaceholder, DefaultPlaceholder)
	viper.SetDefault(KeyScopedFields, DefaultScopedFields)
	viper.SetDefault(KeyAutoUpdateEnabled, defaultAutoUpdateOnOff)
	viper.SetDefault(KeyAutoUpdateInterval, DefaultUpdateInterval)
	viper.SetDefault(KeyRetryAttempts, DefaultRetryAttempts)
	viper.SetDefault(KeyRetryDelay, DefaultRetryDelay)
	viper.SetDefault(KeyLogLevel, DefaultLogLevel)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// GetBool returns a boolean config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetInt returns an integer config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetStringSlice returns a list config value.
func GetStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key string, value any) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
