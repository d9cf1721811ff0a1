package updater

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/skillkit-labs/skillkit/internal/backup"
)

func writeScript(t *testing.T, path, version string) {
	t.Helper()
	script := "#!/bin/sh\necho '{\"version\": \"" + version + "\"}'\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
}

func TestReplaceBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("self-update is unsupported on windows")
	}
	tmp := t.TempDir()
	current := filepath.Join(tmp, "skillkit")
	next := filepath.Join(tmp, "skillkit.new")
	writeScript(t, current, "1.0.0")
	writeScript(t, next, "1.1.0")

	mgr := backup.New(filepath.Join(tmp, "backups"))
	rec, err := ReplaceBinary(context.Background(), mgr, next, current, "v1.1.0")
	if err != nil {
		t.Fatalf("ReplaceBinary failed: %v", err)
	}
	if err := VerifyBinary(context.Background(), current, "1.1.0"); err != nil {
		t.Errorf("installed binary does not verify: %v", err)
	}

	// The previous binary is retained in the backup root.
	data, err := os.ReadFile(rec.Path)
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if !strings.Contains(string(data), "1.0.0") {
		t.Errorf("snapshot does not hold the old binary: %s", data)
	}
}

func TestReplaceBinaryRestoresOnVersionMismatch(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("self-update is unsupported on windows")
	}
	tmp := t.TempDir()
	current := filepath.Join(tmp, "skillkit")
	next := filepath.Join(tmp, "skillkit.new")
	writeScript(t, current, "1.0.0")
	writeScript(t, next, "0.0.1")

	mgr := backup.New(filepath.Join(tmp, "backups"))
	if _, err := ReplaceBinary(context.Background(), mgr, next, current, "1.1.0"); err == nil {
		t.Fatal("expected verification failure")
	}
	if err := VerifyBinary(context.Background(), current, "1.0.0"); err != nil {
		t.Errorf("previous binary was not restored: %v", err)
	}
}

func TestVerifyBinaryBadOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh scripts")
	}
	path := filepath.Join(t.TempDir(), "skillkit")
	os.WriteFile(path, []byte("#!/bin/sh\necho not-json\n"), 0755)
	if err := VerifyBinary(context.Background(), path, ""); err == nil {
		t.Error("expected parse error")
	}
}
