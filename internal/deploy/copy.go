package deploy

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/skillkit-labs/skillkit/internal/platform"
)

// DefaultExcludes are never copied out of the bundle.
var DefaultExcludes = []string{".git", "node_modules", ".DS_Store", "__pycache__"}

// Excluder filters bundle paths with doublestar patterns. A pattern without
// a slash matches a base name at any depth.
type Excluder struct {
	patterns []string
}

// NewExcluder validates patterns and appends them to DefaultExcludes.
func NewExcluder(patterns []string) (*Excluder, error) {
	all := append(append([]string(nil), DefaultExcludes...), patterns...)
	for _, p := range all {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &Excluder{patterns: all}, nil
}

// Excluded reports whether rel, a slash-separated path relative to the
// copied root, should be skipped.
func (e *Excluder) Excluded(rel string) bool {
	if e == nil {
		return false
	}
	base := path.Base(rel)
	for _, p := range e.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
	}
	return false
}

// copyDir copies src over dst, merging into an existing dst. Files present
// only in dst are kept. It returns the number of files copied.
func copyDir(src, dst string, ex *Excluder) (int, error) {
	n := 0
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel != "." && ex.Excluded(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			n++
			return platform.CopySymlink(p, target)
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			return platform.Chmod(target, info.Mode().Perm())
		case d.Type().IsRegular():
			n++
			return platform.CopyFile(p, target)
		default:
			return nil
		}
	})
	return n, err
}

// countFiles returns how many files copyDir would copy.
func countFiles(src string, ex *Excluder) (int, error) {
	n := 0
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel != "." && ex.Excluded(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	return n, err
}
