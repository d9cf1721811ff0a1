package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/skillkit-labs/skillkit/internal/backup"
	"github.com/skillkit-labs/skillkit/internal/branding"
	"github.com/skillkit-labs/skillkit/internal/platform"
)

// verifyTimeout bounds how long the new binary may take to print its version.
const verifyTimeout = 5 * time.Second

// Snapshotter takes pre-mutation backups. *backup.Manager satisfies it.
type Snapshotter interface {
	SnapshotIfExists(path string) (*backup.Record, error)
}

// ReplaceBinary swaps the binary at currentPath for newPath. The current
// binary is snapshotted first; if the new binary fails verification the
// snapshot is restored. The snapshot is kept either way.
func ReplaceBinary(ctx context.Context, snap Snapshotter, newPath, currentPath, expectedVersion string) (*backup.Record, error) {
	if runtime.GOOS == "windows" {
		return nil, fmt.Errorf("self-update is not supported on Windows. Download the latest version from https://github.com/%s/releases", branding.GitHubRepo())
	}

	info, err := os.Stat(currentPath)
	if err != nil {
		return nil, fmt.Errorf("stat current binary: %w", err)
	}
	origPerm := info.Mode().Perm()

	rec, err := snap.SnapshotIfExists(currentPath)
	if err != nil {
		return nil, fmt.Errorf("backing up current binary: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("current binary %s vanished before backup", currentPath)
	}

	if err := installFile(newPath, currentPath); err != nil {
		if rerr := backup.Restore(*rec); rerr != nil {
			return rec, fmt.Errorf("installing new binary: %w (restore failed: %v)", err, rerr)
		}
		return rec, fmt.Errorf("installing new binary: %w", err)
	}
	if err := platform.Chmod(currentPath, origPerm); err != nil {
		return rec, fmt.Errorf("restoring permissions: %w", err)
	}

	if err := VerifyBinary(ctx, currentPath, expectedVersion); err != nil {
		if rerr := backup.Restore(*rec); rerr != nil {
			return rec, fmt.Errorf("verification failed: %w (restore failed: %v)", err, rerr)
		}
		return rec, fmt.Errorf("verification failed, restored previous binary: %w", err)
	}
	return rec, nil
}

// installFile moves src over dst, falling back to a copy across filesystems.
func installFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := platform.CopyFile(src, dst); err != nil {
		return err
	}
	os.Remove(src)
	return nil
}

// VerifyBinary runs the binary with "version --json" and checks the reported
// version against expectedVersion. An empty expectedVersion only checks that
// the binary runs.
func VerifyBinary(ctx context.Context, binaryPath, expectedVersion string) error {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, binaryPath, "version", "--json").Output()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("new binary timed out after %s", verifyTimeout)
	}
	if err != nil {
		return fmt.Errorf("new binary exited with error: %w", err)
	}

	var info struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(output, &info); err != nil {
		return fmt.Errorf("parsing version output: %w", err)
	}
	if expectedVersion == "" {
		return nil
	}
	if !MustVersion(info.Version).Equal(MustVersion(expectedVersion)) {
		return fmt.Errorf("new binary reports version %q, want %q", info.Version, expectedVersion)
	}
	return nil
}
