package history

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.Get(&version, "PRAGMA user_version"))
	assert.Equal(t, len(migrations), version)
}

func TestOpenWrapsCause(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Open(context.Background(), filepath.Join(blocker, "sub", "history.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating history directory")
	var pathErr *fs.PathError
	assert.True(t, errors.As(err, &pathErr), "cause is kept in the chain")
}

func TestStoreErrorsAfterClose(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.Runs(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing runs")

	err = s.AddBackup(context.Background(), BackupEntry{RunID: "x", Original: "/a", Path: "/b", CreatedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording backup")
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	start := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	run, err := s.StartRun(ctx, "deploy", "full", false, start)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	require.NoError(t, s.AddBackup(ctx, BackupEntry{
		RunID: run.ID, Original: "/home/u/.config/opencode/opencode.json",
		Path: "/home/u/.skillkit/backups/x/files/opencode.json", CreatedAt: start,
	}))
	require.NoError(t, s.AddUpdate(ctx, UpdateEntry{
		RunID: run.ID, Package: "opencode-ai", From: "1.0.0", To: "1.1.0",
		Outcome: "updated", CreatedAt: start,
	}))
	require.NoError(t, s.FinishRun(ctx, run, "failure", "/backups/x", errors.New("boom"), start.Add(time.Minute)))

	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "deploy", got.Command)
	assert.Equal(t, "full", got.Mode)
	assert.False(t, got.DryRun)
	assert.Equal(t, "failure", got.Outcome)
	assert.Equal(t, "/backups/x", got.BackupRoot)
	assert.Equal(t, "boom", got.Error)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(start.Add(time.Minute)))

	backups, err := s.Backups(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, "/home/u/.config/opencode/opencode.json", backups[0].Original)

	updates, err := s.Updates(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "1.1.0", updates[0].To)
}

func TestRunsNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	for i, cmd := range []string{"deploy", "update", "deploy"} {
		_, err := s.StartRun(ctx, cmd, "", i == 2, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	runs, err := s.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].DryRun)
	assert.Equal(t, "update", runs[1].Command)
	assert.Nil(t, runs[1].FinishedAt)

	all, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecorderNilIsSafe(t *testing.T) {
	var r *Recorder
	ctx := context.Background()
	assert.Empty(t, r.RunID())
	r.Backup(ctx, "a", "b", time.Now())
	r.Update(ctx, "p", "1", "2", "updated", nil)
	r.Finish(ctx, "success", "", nil)
}

func TestRecorderWritesRun(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	r := Begin(ctx, path, "deploy", "quick", true)
	require.NotNil(t, r)
	r.Backup(ctx, "/a", "/b", time.Now())
	r.Finish(ctx, "success", "/root", nil)

	s, err := Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, r.RunID(), runs[0].ID)
	assert.Equal(t, "success", runs[0].Outcome)
	assert.True(t, runs[0].DryRun)
}
