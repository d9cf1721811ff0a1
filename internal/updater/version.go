package updater

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrUnknownVersion is returned when a version lookup could not produce a
// usable version.
var ErrUnknownVersion = errors.New("version unknown")

// VersionInfo is a parsed version or the Unknown sentinel.
type VersionInfo struct {
	raw string
	v   *semver.Version
}

// Unknown is the sentinel for a failed lookup.
var Unknown = VersionInfo{}

// ParseVersion parses s, tolerating a leading "v". Unparsable input yields
// Unknown and an error.
func ParseVersion(s string) (VersionInfo, error) {
	s = strings.TrimSpace(s)
	v, err := parseSemver(s)
	if err != nil {
		return Unknown, fmt.Errorf("parsing version %q: %w", s, err)
	}
	return VersionInfo{raw: s, v: v}, nil
}

// MustVersion is like ParseVersion but returns Unknown instead of an error.
func MustVersion(s string) VersionInfo {
	v, _ := ParseVersion(s)
	return v
}

// IsUnknown reports whether v is the Unknown sentinel.
func (v VersionInfo) IsUnknown() bool {
	return v.v == nil
}

// String returns the normalized version without a "v" prefix, or "unknown".
func (v VersionInfo) String() string {
	if v.IsUnknown() {
		return "unknown"
	}
	return v.v.String()
}

// Equal reports whether both versions are known and equal.
func (v VersionInfo) Equal(o VersionInfo) bool {
	if v.IsUnknown() || o.IsUnknown() {
		return false
	}
	return v.v.Equal(o.v)
}

// Status is the outcome of comparing an installed and a latest version.
type Status int

const (
	StatusUnknown Status = iota
	StatusUpToDate
	StatusUpdateAvailable
)

func (s Status) String() string {
	switch s {
	case StatusUpToDate:
		return "up to date"
	case StatusUpdateAvailable:
		return "update available"
	default:
		return "unknown"
	}
}

// Compare reports whether latest is newer than installed. If either side is
// Unknown the result is StatusUnknown. An installed version newer than the
// latest release counts as up to date.
func Compare(installed, latest VersionInfo) Status {
	if installed.IsUnknown() || latest.IsUnknown() {
		return StatusUnknown
	}
	if installed.v.LessThan(latest.v) {
		return StatusUpdateAvailable
	}
	return StatusUpToDate
}

// parseSemver strips a leading "v" and parses the version string strictly
// enough to reject words such as "dev" or "unknown".
func parseSemver(version string) (*semver.Version, error) {
	version = strings.TrimPrefix(version, "v")
	return semver.StrictNewVersion(version)
}
