package probe

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/skillkit-labs/skillkit/internal/logger"
)

// Unknown is reported for any field the prober cannot determine.
const Unknown = "unknown"

// OS families.
const (
	OSLinux   = "linux"
	OSMacOS   = "darwin"
	OSWindows = "windows"
)

// Shell dialects.
const (
	ShellBash       = "bash"
	ShellZsh        = "zsh"
	ShellFish       = "fish"
	ShellPowerShell = "powershell"
)

// Environment is the result of a probe.
type Environment struct {
	OS             string
	Distro         string
	Shell          string
	PackageManager string
	Profile        ShellProfile
}

// distroMarker maps a marker file to a distribution family and its package manager.
type distroMarker struct {
	path   string
	distro string
	pm     string
}

// Checked in order; the first existing file wins.
var distroMarkers = []distroMarker{
	{"/etc/debian_version", "debian", "apt-get"},
	{"/etc/redhat-release", "redhat", "dnf"},
	{"/etc/fedora-release", "fedora", "dnf"},
	{"/etc/arch-release", "arch", "pacman"},
	{"/etc/alpine-release", "alpine", "apk"},
	{"/etc/SuSE-release", "suse", "zypper"},
}

var (
	linuxPackageManagers   = []string{"apt-get", "dnf", "yum", "pacman", "apk", "zypper"}
	macPackageManagers     = []string{"brew"}
	windowsPackageManagers = []string{"winget", "choco", "scoop"}
)

// Prober detects the environment. Every dependency on the host is a field so
// tests can substitute them; New fills them with the real implementations.
type Prober struct {
	Getenv     func(string) string
	Exists     func(string) bool
	LookPath   func(string) (string, error)
	KernelName func(ctx context.Context) (string, error)
	Home       func() (string, error)
}

// New returns a Prober wired to the running host.
func New() *Prober {
	return &Prober{
		Getenv:     os.Getenv,
		Exists:     fileExists,
		LookPath:   exec.LookPath,
		KernelName: kernelName,
		Home:       os.UserHomeDir,
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func kernelName(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", err
	}
	return info.OS, nil
}

// Probe inspects the host. It never returns an error.
func (p *Prober) Probe(ctx context.Context) Environment {
	env := Environment{
		OS:     p.detectOS(ctx),
		Distro: Unknown,
	}
	env.Shell = p.detectShell(env.OS)

	switch env.OS {
	case OSLinux:
		env.Distro, env.PackageManager = p.detectLinuxPackageManager()
	case OSMacOS:
		env.PackageManager = p.firstBinary(macPackageManagers)
	case OSWindows:
		env.PackageManager = p.firstBinary(windowsPackageManagers)
	default:
		env.PackageManager = Unknown
	}

	home, err := p.Home()
	if err != nil {
		logger.G(ctx).WithError(err).Debug("home directory unavailable")
		home = ""
	}
	env.Profile = ShellProfile{
		Path:  ProfilePath(env.OS, env.Shell, home, p.Exists, p.Getenv),
		Shell: env.Shell,
	}

	logger.G(ctx).WithFields(map[string]any{
		"os":     env.OS,
		"distro": env.Distro,
		"shell":  env.Shell,
		"pm":     env.PackageManager,
	}).Debug("environment probed")
	return env
}

func (p *Prober) detectOS(ctx context.Context) string {
	if p.KernelName != nil {
		name, err := p.KernelName(ctx)
		if err == nil {
			switch strings.ToLower(name) {
			case "linux":
				return OSLinux
			case "darwin":
				return OSMacOS
			case "windows":
				return OSWindows
			}
		} else {
			logger.G(ctx).WithError(err).Debug("kernel name query failed")
		}
	}

	// Windows-only environment markers.
	if p.Getenv("OS") == "Windows_NT" || p.Getenv("WINDIR") != "" || p.Getenv("COMSPEC") != "" {
		return OSWindows
	}
	return Unknown
}

func (p *Prober) detectLinuxPackageManager() (distro, pm string) {
	for _, m := range distroMarkers {
		if p.Exists(m.path) {
			if m.distro == "redhat" && !p.hasBinary("dnf") && p.hasBinary("yum") {
				return m.distro, "yum"
			}
			return m.distro, m.pm
		}
	}
	return Unknown, p.firstBinary(linuxPackageManagers)
}

func (p *Prober) detectShell(osFamily string) string {
	switch {
	case p.Getenv("ZSH_VERSION") != "":
		return ShellZsh
	case p.Getenv("BASH_VERSION") != "":
		return ShellBash
	case p.Getenv("FISH_VERSION") != "":
		return ShellFish
	case osFamily == OSWindows && p.Getenv("PSModulePath") != "":
		return ShellPowerShell
	}

	shell := p.Getenv("SHELL")
	if shell == "" {
		return Unknown
	}
	name := strings.TrimSuffix(filepath.Base(shell), ".exe")
	switch name {
	case "bash", "sh":
		return ShellBash
	case "zsh":
		return ShellZsh
	case "fish":
		return ShellFish
	case "pwsh", "powershell":
		return ShellPowerShell
	}
	return Unknown
}

func (p *Prober) hasBinary(name string) bool {
	_, err := p.LookPath(name)
	return err == nil
}

func (p *Prober) firstBinary(names []string) string {
	for _, n := range names {
		if p.hasBinary(n) {
			return n
		}
	}
	return Unknown
}

// ProfilePath returns the shell profile file for an OS and shell pair. It has
// no side effects: exists reports whether a file is present and getenv reads
// the PowerShell profile variable. An empty string means no profile applies.
func ProfilePath(osFamily, shell, home string, exists func(string) bool, getenv func(string) string) string {
	if home == "" {
		return ""
	}
	switch osFamily {
	case OSMacOS:
		switch shell {
		case ShellZsh:
			return filepath.Join(home, ".zshrc")
		case ShellBash:
			if p := filepath.Join(home, ".bash_profile"); exists(p) {
				return p
			}
			return filepath.Join(home, ".bashrc")
		case ShellFish:
			return filepath.Join(home, ".config", "fish", "config.fish")
		}
		return filepath.Join(home, ".zshrc")
	case OSWindows:
		if shell == ShellPowerShell {
			if v := getenv("PROFILE"); v != "" {
				return v
			}
			return filepath.Join(home, "Documents", "PowerShell", "Microsoft.PowerShell_profile.ps1")
		}
		return filepath.Join(home, ".bashrc")
	}
	return filepath.Join(home, ".bashrc")
}

// Normalize replaces Unknown OS and shell values with the generic Linux and
// bash default. It returns the names of the fields it degraded so callers
// can warn the user.
func (e Environment) Normalize() (Environment, []string) {
	var degraded []string
	if e.OS == Unknown || e.OS == "" {
		e.OS = OSLinux
		degraded = append(degraded, "os")
	}
	if e.Shell == Unknown || e.Shell == "" {
		e.Shell = ShellBash
		e.Profile.Shell = ShellBash
		degraded = append(degraded, "shell")
	}
	if e.PackageManager == "" {
		e.PackageManager = Unknown
	}
	if e.Profile.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			e.Profile.Path = filepath.Join(home, ".bashrc")
			degraded = append(degraded, "profile")
		}
	}
	return e, degraded
}
