//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	StateDir  string // SKILLKIT_STATE_DIR: log, backups, history, update state
	TargetDir string // the CLI config directory deployments write into
	SourceDir string // a git repository acting as the bundle remote
}

// setupTestEnv creates isolated temp directories and sets environment variables
// so all skillkit operations are sandboxed. The env vars are restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		StateDir:  t.TempDir(),
		TargetDir: filepath.Join(t.TempDir(), "opencode"),
		SourceDir: t.TempDir(),
	}

	t.Setenv("SKILLKIT_STATE_DIR", env.StateDir)
	t.Setenv("SKILLKIT_TARGET_DIR", env.TargetDir)
	t.Setenv("SKILLKIT_BUNDLE_REPO_URL", env.SourceDir)

	return env
}

// bundleFiles is a synthetic bundle: two valid skills, one skill without
// front matter, a templated configuration and the agent documents.
var bundleFiles = map[string]string{
	"VERSION": "2026.05\n",
	"opencode.json": `{
  // skillkit test bundle
  "agent": {
    "build": {"prompt": "You build things.\n\n{{SKILLS_SECTION_PLACEHOLDER}}"}
  },
  "instructions": ["{{SKILLS_SECTION_PLACEHOLDER}}"],
  "notes": "{{SKILLS_SECTION_PLACEHOLDER}} stays here"
}
`,
	"AGENTS.md":       "# Agents\n",
	"agents/build.md": "# Build agent\n",
	"skills/test-generator-framework/SKILL.md": `---
name: test-generator-framework
description: Generates unit tests for a module
---

## What I do
Write tests.

## When to use me
When coverage is low.

## Steps
1. Read the module.
`,
	"skills/python-ruff-linter/SKILL.md": `---
name: python-ruff-linter
description: Lints Python code with ruff
---

## What I do
Run ruff.
`,
	"skills/broken-skill/SKILL.md": "# no front matter\n",
}

// setupBundleRepo commits files into a fresh repository at dir.
func setupBundleRepo(t *testing.T, dir string, files map[string]string) *git.Repository {
	t.Helper()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	commitFiles(t, repo, dir, files, "initial bundle")
	return repo
}

// commitFiles writes files into the worktree at dir and commits them.
func commitFiles(t *testing.T, repo *git.Repository, dir string, files map[string]string, msg string) {
	t.Helper()

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	for name, body := range files {
		writeFile(t, filepath.Join(dir, name), body)
		if _, err := wt.Add(name); err != nil {
			t.Fatalf("adding %s: %v", name, err)
		}
	}
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertDirExists fails the test if the directory does not exist.
func assertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("expected directory to exist: %s (error: %v)", path, err)
		return
	}
	if !info.IsDir() {
		t.Errorf("expected %s to be a directory, but it is a file", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}
