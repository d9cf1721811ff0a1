// Package branding provides compile-time identity values for the CLI.
//
// Forkers edit branding.yaml in this directory before building; Go's
// //go:embed bakes it into the binary.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName       string `yaml:"cli_name"`
	DisplayName   string `yaml:"display_name"`
	Description   string `yaml:"description"`
	HomeDir       string `yaml:"home_dir"`
	EnvPrefix     string `yaml:"env_prefix"`
	GoModule      string `yaml:"go_module"`
	GitHubRepo    string `yaml:"github_repo"`
	BundleRepoURL string `yaml:"bundle_repo_url"`
	CLIPackage    string `yaml:"cli_package"`
	CLIBinary     string `yaml:"cli_binary"`
	NPMRegistry   string `yaml:"npm_registry"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:       "skillkit",
			DisplayName:   "SkillKit",
			Description:   "Deploys agent configuration bundles and keeps them current",
			HomeDir:       ".skillkit",
			EnvPrefix:     "SKILLKIT",
			GoModule:      "github.com/skillkit-labs/skillkit",
			GitHubRepo:    "skillkit-labs/skillkit",
			BundleRepoURL: "https://github.com/skillkit-labs/opencode-bundle.git",
			CLIPackage:    "opencode-ai",
			CLIBinary:     "opencode",
			NPMRegistry:   "https://registry.npmjs.org",
		}

		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "skillkit").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name (e.g., "SkillKit").
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".skillkit").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "SKILLKIT").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GitHubRepo returns the "owner/repo" string used for self-update lookups.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// BundleRepoURL returns the default git URL of the configuration bundle.
func BundleRepoURL() string { load(); return defaults.BundleRepoURL }

// CLIPackage returns the npm package name of the managed CLI tool.
func CLIPackage() string { load(); return defaults.CLIPackage }

// CLIBinary returns the executable name of the managed CLI tool.
func CLIBinary() string { load(); return defaults.CLIBinary }

// NPMRegistry returns the base URL of the npm registry.
func NPMRegistry() string { load(); return defaults.NPMRegistry }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("STATE_DIR") → "SKILLKIT_STATE_DIR".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
