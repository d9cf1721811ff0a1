// Package paths resolves the on-disk locations used by skillkit: the state
// directory that holds the log, backups, history and update state, and the
// default deployment target directory.
package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/skillkit-labs/skillkit/internal/branding"
)

// File and directory names inside the state directory.
const (
	LogsDir        = "logs"
	LogFileName    = "skillkit.log"
	BackupsDir     = "backups"
	StateFileName  = "update-state.json"
	HistoryDBName  = "history.db"
	BundleCloneDir = "bundle"
)

// Permission constants.
const (
	DirPermNormal  os.FileMode = 0755
	FilePermNormal os.FileMode = 0644
	DirPermSecure  os.FileMode = 0700
)

// StateDir returns the skillkit state directory.
// It checks the SKILLKIT_STATE_DIR environment variable first,
// then falls back to ~/.skillkit.
func StateDir() (string, error) {
	if v := os.Getenv(branding.EnvVar("STATE_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, branding.HomeDir()), nil
}

// LogFile returns the path of the append-only log file.
func LogFile() (string, error) {
	root, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, LogsDir, LogFileName), nil
}

// BackupsRoot returns the directory under which per-run backup roots are created.
func BackupsRoot() (string, error) {
	root, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, BackupsDir), nil
}

// HistoryDB returns the path of the run history database.
func HistoryDB() (string, error) {
	root, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, HistoryDBName), nil
}

// BundleClone returns the default checkout location of the bundle repository.
func BundleClone() (string, error) {
	root, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, BundleCloneDir), nil
}

// DefaultTargetDir returns the tool configuration directory that bundles are
// deployed into. SKILLKIT_TARGET_DIR overrides it; otherwise it follows
// XDG_CONFIG_HOME and finally ~/.config/opencode.
func DefaultTargetDir() (string, error) {
	if v := os.Getenv(branding.EnvVar("TARGET_DIR")); v != "" {
		return v, nil
	}
	if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
		return filepath.Join(x, "opencode"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "opencode"), nil
}
