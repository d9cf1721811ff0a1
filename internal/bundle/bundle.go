// Package bundle manages the local checkout of the configuration bundle that
// deploy copies from. It handles cloning, pulling and freshness tracking.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/skillkit-labs/skillkit/internal/branding"
	"github.com/skillkit-labs/skillkit/internal/config"
	"github.com/skillkit-labs/skillkit/internal/logger"
	"github.com/skillkit-labs/skillkit/internal/paths"
	"github.com/skillkit-labs/skillkit/internal/platform"
)

const (
	// freshnessFile is the name of the timestamp marker file. It lives in
	// .git so the worktree stays clean.
	freshnessFile = "skillkit-synced"

	// versionFile names the bundle release, if the bundle ships one.
	versionFile = "VERSION"

	// DefaultMaxAge is the default staleness threshold (7 days).
	DefaultMaxAge = 7 * 24 * time.Hour

	// tmpSuffix is appended to the target dir during atomic clone.
	tmpSuffix = ".tmp"
)

// RepoURL returns the bundle repository URL, checking (in order):
// 1. <PREFIX>_BUNDLE_REPO_URL env var
// 2. config key "bundle_repo"
// 3. branding.BundleRepoURL() (from branding.yaml)
func RepoURL() string {
	if v := os.Getenv(branding.EnvVar("BUNDLE_REPO_URL")); v != "" {
		return v
	}
	if v := config.Get(config.KeyBundleRepo); v != "" {
		return v
	}
	return branding.BundleRepoURL()
}

// Dir returns the bundle directory: the "bundle_dir" config key when set,
// otherwise the managed checkout under the state directory.
func Dir() (string, error) {
	if v := config.Get(config.KeyBundleDir); v != "" {
		return v, nil
	}
	return paths.BundleClone()
}

// Syncer clones and pulls the bundle repository.
type Syncer struct {
	URL string
	// Depth limits history; 0 fetches everything.
	Depth    int
	Progress io.Writer
}

// NewSyncer returns a shallow syncer for RepoURL.
func NewSyncer() *Syncer {
	return &Syncer{URL: RepoURL(), Depth: 1}
}

// Result describes what a Sync did.
type Result struct {
	Dir     string
	Cloned  bool
	Updated bool
	Head    string
}

// Sync clones the bundle into dir, or pulls when dir is already a checkout.
// A dir that exists but is not a git checkout is a user-managed bundle and
// is left alone.
func (s *Syncer) Sync(ctx context.Context, dir string) (*Result, error) {
	log := logger.G(ctx).WithField("path", dir)

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		log.Debug("pulling bundle")
		return s.pull(ctx, dir)
	}
	if _, err := os.Stat(dir); err == nil {
		log.Info("bundle directory is not a git checkout, leaving it as is")
		return &Result{Dir: dir}, nil
	}

	log.Infof("cloning bundle from %s", s.URL)
	if err := s.Clone(ctx, dir); err != nil {
		return nil, err
	}
	return &Result{Dir: dir, Cloned: true, Updated: true, Head: head(dir)}, nil
}

// Clone clones the bundle into targetDir. The clone is atomic: it writes to
// a .tmp directory first, then renames on success. On failure the .tmp
// directory is cleaned up.
func (s *Syncer) Clone(ctx context.Context, targetDir string) error {
	tmpDir := targetDir + tmpSuffix

	// Clean up any leftover tmp dir from a previous failed attempt.
	_ = os.RemoveAll(tmpDir)

	if err := os.MkdirAll(filepath.Dir(tmpDir), paths.DirPermNormal); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	_, err := git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:          s.URL,
		Depth:        s.Depth,
		SingleBranch: true,
		Progress:     s.Progress,
	})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("cloning bundle: %w", err)
	}

	if err := os.RemoveAll(targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("removing existing bundle dir: %w", err)
	}
	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("finalizing bundle clone: %w", err)
	}

	WriteFreshnessMarker(targetDir, time.Now())
	return nil
}

func (s *Syncer) pull(ctx context.Context, dir string) (*Result, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("opening bundle checkout: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening bundle worktree: %w", err)
	}

	res := &Result{Dir: dir}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:   git.DefaultRemoteName,
		Depth:        s.Depth,
		SingleBranch: true,
		Progress:     s.Progress,
	})
	switch {
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		logger.G(ctx).Debug("bundle already up to date")
	case err != nil:
		return nil, fmt.Errorf("pulling bundle updates: %w", err)
	default:
		res.Updated = true
	}

	WriteFreshnessMarker(dir, time.Now())
	res.Head = head(dir)
	return res, nil
}

func head(dir string) string {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return ""
	}
	ref, err := repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}

// Version returns the trimmed content of the bundle's VERSION file, or ""
// when there is none.
func Version(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, versionFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// WriteFreshnessMarker records t as the last sync time of dir.
func WriteFreshnessMarker(dir string, t time.Time) {
	markerPath := filepath.Join(dir, ".git", freshnessFile)
	ts := strconv.FormatInt(t.Unix(), 10)
	_ = platform.WriteFileAtomic(markerPath, []byte(ts), paths.FilePermNormal)
}

// ReadFreshnessMarker reads the timestamp from the freshness file.
// Returns zero time if the file doesn't exist or can't be parsed.
func ReadFreshnessMarker(dir string) time.Time {
	data, err := os.ReadFile(filepath.Join(dir, ".git", freshnessFile))
	if err != nil {
		return time.Time{}
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// IsStale returns true if the bundle was last synced more than maxAge
// before now, or was never synced.
func IsStale(dir string, maxAge time.Duration, now time.Time) bool {
	lastUpdated := ReadFreshnessMarker(dir)
	if lastUpdated.IsZero() {
		return true
	}
	return now.Sub(lastUpdated) > maxAge
}
