package toolchain

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// nodeInstallCommands maps a package manager to the command that installs
// Node.js and npm with it.
var nodeInstallCommands = map[string][]string{
	"apt-get": {"apt-get", "install", "-y", "nodejs", "npm"},
	"dnf":     {"dnf", "install", "-y", "nodejs", "npm"},
	"yum":     {"yum", "install", "-y", "nodejs", "npm"},
	"pacman":  {"pacman", "-S", "--noconfirm", "nodejs", "npm"},
	"apk":     {"apk", "add", "nodejs", "npm"},
	"zypper":  {"zypper", "install", "-y", "nodejs", "npm"},
	"brew":    {"brew", "install", "node"},
	"winget":  {"winget", "install", "-e", "--id", "OpenJS.NodeJS.LTS"},
	"choco":   {"choco", "install", "-y", "nodejs-lts"},
	"scoop":   {"scoop", "install", "nodejs-lts"},
}

// Package managers that need root.
var privileged = map[string]bool{
	"apt-get": true, "dnf": true, "yum": true, "pacman": true, "apk": true, "zypper": true,
}

// ErrUnsupportedPackageManager is returned when Node.js cannot be installed
// automatically.
var ErrUnsupportedPackageManager = errors.New("unsupported package manager")

// Installer installs Node.js and the managed CLI.
type Installer struct {
	Runner         Runner
	PackageManager string
	// Sudo prefixes privileged package manager commands with sudo.
	Sudo bool
}

// HasNode reports whether node and npm are on PATH.
func (i *Installer) HasNode() bool {
	_, errNode := i.Runner.LookPath("node")
	_, errNPM := i.Runner.LookPath("npm")
	return errNode == nil && errNPM == nil
}

// HasBinary reports whether name is on PATH.
func (i *Installer) HasBinary(name string) bool {
	_, err := i.Runner.LookPath(name)
	return err == nil
}

// NodeInstallCommand returns the command that installs Node.js.
func (i *Installer) NodeInstallCommand() ([]string, error) {
	cmd, ok := nodeInstallCommands[i.PackageManager]
	if !ok {
		return nil, fmt.Errorf("%w %q: install Node.js manually", ErrUnsupportedPackageManager, i.PackageManager)
	}
	if i.Sudo && privileged[i.PackageManager] {
		cmd = append([]string{"sudo"}, cmd...)
	}
	return cmd, nil
}

// EnsureNode installs Node.js when it is missing. It returns false without
// running anything when node is already present.
func (i *Installer) EnsureNode(ctx context.Context) (bool, error) {
	if i.HasNode() {
		return false, nil
	}
	cmd, err := i.NodeInstallCommand()
	if err != nil {
		return false, err
	}
	if _, err := i.Runner.Run(ctx, cmd[0], cmd[1:]...); err != nil {
		return false, fmt.Errorf("installing Node.js: %w", err)
	}
	return true, nil
}

// CLIInstallCommand returns the npm command that installs pkg at version.
// An empty version installs the latest release.
func CLIInstallCommand(pkg, version string) []string {
	spec := pkg + "@latest"
	if version != "" {
		spec = pkg + "@" + strings.TrimPrefix(version, "v")
	}
	return []string{"npm", "install", "-g", spec}
}

// InstallCLI installs the managed CLI package globally with npm.
func (i *Installer) InstallCLI(ctx context.Context, pkg, version string) error {
	cmd := CLIInstallCommand(pkg, version)
	if _, err := i.Runner.Run(ctx, cmd[0], cmd[1:]...); err != nil {
		return fmt.Errorf("installing %s: %w", pkg, err)
	}
	return nil
}

func (i *Installer) npmPrefix(ctx context.Context) (string, error) {
	out, err := i.Runner.Run(ctx, "npm", "prefix", "-g")
	if err != nil {
		return "", fmt.Errorf("resolving npm prefix: %w", err)
	}
	prefix := strings.TrimSpace(out.Stdout)
	if prefix == "" {
		return "", fmt.Errorf("npm prefix -g returned nothing")
	}
	return prefix, nil
}

// NPMGlobalBin returns the directory npm installs global executables into.
func (i *Installer) NPMGlobalBin(ctx context.Context, goos string) (string, error) {
	prefix, err := i.npmPrefix(ctx)
	if err != nil {
		return "", err
	}
	if goos == "windows" {
		return prefix, nil
	}
	return filepath.Join(prefix, "bin"), nil
}

// NPMPackageDir returns the directory a global npm package is installed in.
func (i *Installer) NPMPackageDir(ctx context.Context, goos, pkg string) (string, error) {
	prefix, err := i.npmPrefix(ctx)
	if err != nil {
		return "", err
	}
	if goos == "windows" {
		return filepath.Join(prefix, "node_modules", pkg), nil
	}
	return filepath.Join(prefix, "lib", "node_modules", pkg), nil
}

var semverPattern = regexp.MustCompile(`v?(\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?)`)

// InstalledVersion runs `binary --version` and extracts the first semantic
// version in its output.
func InstalledVersion(ctx context.Context, r Runner, binary string) (string, error) {
	if _, err := r.LookPath(binary); err != nil {
		return "", fmt.Errorf("%s not found on PATH: %w", binary, err)
	}
	out, err := r.Run(ctx, binary, "--version")
	if err != nil {
		return "", err
	}
	m := semverPattern.FindStringSubmatch(out.Stdout + "\n" + out.Stderr)
	if m == nil {
		return "", fmt.Errorf("no version in %s --version output", binary)
	}
	return m[1], nil
}
