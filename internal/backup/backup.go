package backup

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/skillkit-labs/skillkit/internal/platform"
)

// TimestampFormat names backup roots.
const TimestampFormat = "2006-01-02-150405"

// ManifestFile lists the records of a backup root.
const ManifestFile = "manifest.json"

// Record is one snapshotted artifact.
type Record struct {
	Original  string    `json:"original"`
	Path      string    `json:"path"`
	IsDir     bool      `json:"is_dir"`
	CreatedAt time.Time `json:"created_at"`
}

// Manifest is the content of manifest.json.
type Manifest struct {
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Records   []Record  `json:"records"`
}

// Manager snapshots artifacts into a single backup root.
type Manager struct {
	base   string
	reason string
	dryRun bool
	now    func() time.Time

	mu       sync.Mutex
	root     string
	manifest Manifest
}

// Option configures a Manager.
type Option func(*Manager)

// WithDryRun makes the Manager report the records it would create without
// writing anything.
func WithDryRun(dryRun bool) Option {
	return func(m *Manager) { m.dryRun = dryRun }
}

// WithReason records why the backup was taken in the manifest.
func WithReason(reason string) Option {
	return func(m *Manager) { m.reason = reason }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New returns a Manager creating backup roots under base.
func New(base string, opts ...Option) *Manager {
	m := &Manager{base: base, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the backup root of this run, or "" if nothing was backed up.
func (m *Manager) Root() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.root
}

// Records returns the records taken so far.
func (m *Manager) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.manifest.Records...)
}

// SnapshotIfExists copies path into the backup root. It returns nil and no
// error when path does not exist.
func (m *Manager) SnapshotIfExists(path string) (*Record, error) {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	root, err := m.ensureRoot()
	if err != nil {
		return nil, err
	}

	rec := Record{
		Original:  abs,
		Path:      m.destination(root, abs),
		IsDir:     info.IsDir(),
		CreatedAt: m.now(),
	}

	if !m.dryRun {
		if err := copyTree(abs, rec.Path); err != nil {
			return nil, fmt.Errorf("backing up %s: %w", abs, err)
		}
	}

	m.manifest.Records = append(m.manifest.Records, rec)
	if !m.dryRun {
		if err := m.writeManifest(root); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func (m *Manager) ensureRoot() (string, error) {
	if m.root != "" {
		return m.root, nil
	}

	created := m.now()
	name := created.Format(TimestampFormat)
	root := filepath.Join(m.base, name)
	for i := 1; exists(root); i++ {
		root = filepath.Join(m.base, fmt.Sprintf("%s-%d", name, i))
	}

	if !m.dryRun {
		if err := os.MkdirAll(root, 0700); err != nil {
			return "", fmt.Errorf("creating backup root %s: %w", root, err)
		}
	}
	m.root = root
	m.manifest = Manifest{Reason: m.reason, CreatedAt: created}
	return root, nil
}

// destination mirrors the original path under root so two artifacts with the
// same base name do not collide.
func (m *Manager) destination(root, abs string) string {
	rel := abs
	if vol := filepath.VolumeName(rel); vol != "" {
		rel = strings.TrimSuffix(vol, ":") + rel[len(vol):]
	}
	rel = strings.TrimLeft(rel, `/\`)
	dst := filepath.Join(root, "files", rel)
	for _, r := range m.manifest.Records {
		if r.Path == dst {
			return fmt.Sprintf("%s.%d", dst, len(m.manifest.Records))
		}
	}
	return dst
}

func (m *Manager) writeManifest(root string) error {
	data, err := json.MarshalIndent(m.manifest, "", "  ")
	if err != nil {
		return err
	}
	return platform.WriteFileAtomic(filepath.Join(root, ManifestFile), data, 0644)
}

// Restore copies a record's snapshot back over its original location.
// The current content at the original path is removed first.
func Restore(rec Record) error {
	if _, err := os.Lstat(rec.Path); err != nil {
		return fmt.Errorf("backup %s: %w", rec.Path, err)
	}
	if err := os.RemoveAll(rec.Original); err != nil {
		return fmt.Errorf("clearing %s: %w", rec.Original, err)
	}
	return copyTree(rec.Path, rec.Original)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			return platform.CopySymlink(path, target)
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
			return platform.CopyFile(path, target)
		default:
			// Sockets, devices and pipes are not configuration.
			return nil
		}
	})
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
