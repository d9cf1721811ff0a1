package probe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skillkit-labs/skillkit/internal/branding"
)

// ShellProfile is the shell startup file deployment may modify. All reads
// and writes of the profile go through this type.
type ShellProfile struct {
	Path  string
	Shell string
}

// Marker returns the comment line that guards the block skillkit appends.
func (sp ShellProfile) Marker() string {
	return "# " + branding.CLIName() + " path"
}

// HasBlock reports whether the profile already contains marker.
func (sp ShellProfile) HasBlock(marker string) (bool, error) {
	data, err := os.ReadFile(sp.Path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", sp.Path, err)
	}
	return strings.Contains(string(data), marker), nil
}

// PathBlock returns the text appended to add dir to PATH in this dialect.
func (sp ShellProfile) PathBlock(dir string) string {
	marker := sp.Marker()
	switch sp.Shell {
	case ShellFish:
		return fmt.Sprintf("\n%s\nfish_add_path %s\n", marker, dir)
	case ShellPowerShell:
		return fmt.Sprintf("\n%s\n$env:PATH = \"%s;\" + $env:PATH\n", marker, dir)
	default:
		return fmt.Sprintf("\n%s\nexport PATH=%q:$PATH\n", marker, dir)
	}
}

// EnsurePathEntry appends a marker-guarded PATH entry for dir. It returns
// false when the block is already present. With dryRun nothing is written
// and the returned bool reports whether a write would happen.
func (sp ShellProfile) EnsurePathEntry(dir string, dryRun bool) (bool, error) {
	if sp.Path == "" {
		return false, fmt.Errorf("no shell profile path")
	}
	present, err := sp.HasBlock(sp.Marker())
	if err != nil {
		return false, err
	}
	if present {
		return false, nil
	}
	if dryRun {
		return true, nil
	}

	if err := os.MkdirAll(filepath.Dir(sp.Path), 0755); err != nil {
		return false, fmt.Errorf("creating %s: %w", filepath.Dir(sp.Path), err)
	}
	f, err := os.OpenFile(sp.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", sp.Path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprint(f, sp.PathBlock(dir)); err != nil {
		return false, fmt.Errorf("writing %s: %w", sp.Path, err)
	}
	return true, nil
}
