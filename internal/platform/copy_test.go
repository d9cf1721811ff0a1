package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestCopyFilePreservesMode(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "run.sh")
	if err := os.WriteFile(src, []byte("#!/bin/sh\necho hi\n"), 0755); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(tmp, "nested", "dir", "run.sh")
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "#!/bin/sh\necho hi\n" {
		t.Errorf("content = %q", string(data))
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(dst)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0755 {
			t.Errorf("permissions = %o, want %o", perm, 0755)
		}
	}
}

func TestCopyFileRejectsDirectory(t *testing.T) {
	tmp := t.TempDir()
	if err := CopyFile(tmp, filepath.Join(tmp, "out")); err == nil {
		t.Error("expected error copying a directory")
	}
}

func TestCopyFileReplacesSymlinkedDestination(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require developer mode on windows")
	}
	tmp := t.TempDir()
	src := filepath.Join(tmp, "new.md")
	if err := os.WriteFile(src, []byte("new\n"), 0644); err != nil {
		t.Fatal(err)
	}
	real := filepath.Join(tmp, "dotfiles", "AGENTS.md")
	if err := os.MkdirAll(filepath.Dir(real), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(real, []byte("mine\n"), 0644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(tmp, "AGENTS.md")
	if err := os.Symlink(real, dst); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}

	info, err := os.Lstat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		t.Error("destination is still a symlink")
	}
	data, err := os.ReadFile(real)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "mine\n" {
		t.Errorf("link target = %q, want it untouched", string(data))
	}
	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestCopySymlinkKeepsRelativeTarget(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require developer mode on windows")
	}
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "real.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(tmp, "alias.md")
	if err := os.Symlink("real.md", link); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(tmp, "copy", "alias.md")
	if err := CopySymlink(link, dst); err != nil {
		t.Fatalf("CopySymlink failed: %v", err)
	}
	target, err := os.Readlink(dst)
	if err != nil {
		t.Fatalf("Readlink failed: %v", err)
	}
	if target != "real.md" {
		t.Errorf("target = %q, want %q", target, "real.md")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "opencode.json")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := WriteFileAtomic(path, []byte("new"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("content = %q, want %q", string(data), "new")
	}

	entries, _ := os.ReadDir(tmp)
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, got %d entries", len(entries))
	}
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "file.json")
	if err := WriteFileAtomic(path, []byte("x"), 0644); err == nil {
		t.Error("expected error when parent directory is missing")
	}
}
