package updater

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skillkit-labs/skillkit/internal/backup"
	"github.com/skillkit-labs/skillkit/internal/toolchain"
)

// fakeCLI stands in for both the installed binary and npm.
type fakeCLI struct {
	version    string // "" means not installed
	installErr error
	installs   []string
	// reportAfterInstall overrides what --version prints after an install.
	reportAfterInstall string
}

func (f *fakeCLI) Run(_ context.Context, name string, args ...string) (*toolchain.Output, error) {
	return &toolchain.Output{Stdout: name + " " + f.version + "\n"}, nil
}

func (f *fakeCLI) LookPath(name string) (string, error) {
	if f.version == "" {
		return "", errors.New("not found")
	}
	return "/usr/local/bin/" + name, nil
}

func (f *fakeCLI) InstallCLI(_ context.Context, pkg, version string) error {
	f.installs = append(f.installs, pkg+"@"+version)
	if f.installErr != nil {
		return f.installErr
	}
	f.version = version
	if f.reportAfterInstall != "" {
		f.version = f.reportAfterInstall
	}
	return nil
}

func registryServer(t *testing.T, latest string, status int) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/opencode-ai/latest" {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		fmt.Fprintf(w, `{"name":"opencode-ai","version":%q}`, latest)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestScheduler(t *testing.T, cli *fakeCLI, registryURL string) *Scheduler {
	t.Helper()
	dir := t.TempDir()
	return &Scheduler{
		Schedule:  Schedule{Enabled: true, Interval: IntervalWeekly},
		StatePath: filepath.Join(dir, "update-state.json"),
		Oracle: &Oracle{
			Runner:   cli,
			Registry: &Registry{BaseURL: registryURL, Retry: fastRetry},
			Package:  "opencode-ai",
			Binary:   "opencode",
		},
		Installer: cli,
		Now:       func() time.Time { return time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC) },
	}
}

func TestRegistryLatest(t *testing.T) {
	srv, _ := registryServer(t, "1.4.0", http.StatusOK)
	r := &Registry{BaseURL: srv.URL, Retry: fastRetry}

	v, err := r.Latest(context.Background(), "opencode-ai")
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "1.4.0" {
		t.Errorf("Latest = %s, want 1.4.0", v)
	}
}

func TestRegistryLatestNotFoundIsNotRetried(t *testing.T) {
	srv, hits := registryServer(t, "1.4.0", http.StatusOK)
	r := &Registry{BaseURL: srv.URL, Retry: fastRetry}

	v, err := r.Latest(context.Background(), "missing-pkg")
	if err == nil {
		t.Fatal("expected error")
	}
	if !v.IsUnknown() {
		t.Errorf("expected Unknown, got %s", v)
	}
	if n := atomic.LoadInt32(hits); n != 1 {
		t.Errorf("hits = %d, want 1", n)
	}
}

func TestRegistryLatestRetriesServerErrors(t *testing.T) {
	srv, hits := registryServer(t, "", http.StatusBadGateway)
	r := &Registry{BaseURL: srv.URL, Retry: fastRetry}

	v, err := r.Latest(context.Background(), "opencode-ai")
	if err == nil {
		t.Fatal("expected error")
	}
	if !v.IsUnknown() {
		t.Errorf("expected Unknown, got %s", v)
	}
	if n := atomic.LoadInt32(hits); n != int32(fastRetry.Attempts) {
		t.Errorf("hits = %d, want %d", n, fastRetry.Attempts)
	}
}

func TestOracleCheckCLI(t *testing.T) {
	srv, _ := registryServer(t, "1.4.0", http.StatusOK)

	tests := []struct {
		name      string
		installed string
		want      Status
	}{
		{"older", "1.3.9", StatusUpdateAvailable},
		{"same", "1.4.0", StatusUpToDate},
		{"newer", "1.5.0", StatusUpToDate},
		{"missing", "", StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Oracle{
				Runner:   &fakeCLI{version: tt.installed},
				Registry: &Registry{BaseURL: srv.URL, Retry: fastRetry},
				Package:  "opencode-ai",
				Binary:   "opencode",
			}
			r := o.CheckCLI(context.Background())
			if r.Status != tt.want {
				t.Errorf("Status = %s, want %s", r.Status, tt.want)
			}
			if r.Latest.String() != "1.4.0" {
				t.Errorf("Latest = %s", r.Latest)
			}
		})
	}
}

func TestCheckDoesNotTouchState(t *testing.T) {
	srv, _ := registryServer(t, "1.4.0", http.StatusOK)
	cli := &fakeCLI{version: "1.3.0"}
	s := newTestScheduler(t, cli, srv.URL)

	r := s.Check(context.Background())
	if r.Status != StatusUpdateAvailable {
		t.Errorf("Status = %s", r.Status)
	}
	if _, err := os.Stat(s.StatePath); !os.IsNotExist(err) {
		t.Errorf("state file should not exist after a check, stat err = %v", err)
	}
	if len(cli.installs) != 0 {
		t.Errorf("check installed %v", cli.installs)
	}
}

func TestUpdateInstallsAndStamps(t *testing.T) {
	srv, _ := registryServer(t, "1.4.0", http.StatusOK)
	cli := &fakeCLI{version: "1.3.0"}
	s := newTestScheduler(t, cli, srv.URL)

	a, err := s.Update(context.Background(), UpdateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Outcome != OutcomeUpdated {
		t.Errorf("Outcome = %q", a.Outcome)
	}
	if len(cli.installs) != 1 || cli.installs[0] != "opencode-ai@1.4.0" {
		t.Errorf("installs = %v", cli.installs)
	}

	st, err := LoadState(s.StatePath)
	if err != nil {
		t.Fatal(err)
	}
	if !st.LastCheck.Equal(s.Now()) {
		t.Errorf("LastCheck = %v", st.LastCheck)
	}
	if st.LastResult != OutcomeUpdated || st.CLIVersion != "1.4.0" {
		t.Errorf("state = %+v", st)
	}
}

func TestUpdateUpToDateIsNoop(t *testing.T) {
	srv, _ := registryServer(t, "1.4.0", http.StatusOK)
	cli := &fakeCLI{version: "1.4.0"}
	s := newTestScheduler(t, cli, srv.URL)

	a, err := s.Update(context.Background(), UpdateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Outcome != OutcomeUpToDate {
		t.Errorf("Outcome = %q", a.Outcome)
	}
	if len(cli.installs) != 0 {
		t.Errorf("installs = %v", cli.installs)
	}
	st, _ := LoadState(s.StatePath)
	if st.LastCheck.IsZero() {
		t.Error("up-to-date check should still stamp LastCheck")
	}
}

func TestUpdateUnknownLatestSkips(t *testing.T) {
	srv, _ := registryServer(t, "", http.StatusServiceUnavailable)
	cli := &fakeCLI{version: "1.3.0"}
	s := newTestScheduler(t, cli, srv.URL)

	a, err := s.Update(context.Background(), UpdateOptions{Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if a.Outcome != OutcomeUnknown {
		t.Errorf("Outcome = %q", a.Outcome)
	}
	if len(cli.installs) != 0 {
		t.Errorf("installs = %v", cli.installs)
	}
	st, _ := LoadState(s.StatePath)
	if st.LastCheck.IsZero() || st.LastResult != OutcomeUnknown {
		t.Errorf("state = %+v", st)
	}
}

func TestUpdateUnknownInstalledNeedsForce(t *testing.T) {
	srv, _ := registryServer(t, "1.4.0", http.StatusOK)

	cli := &fakeCLI{}
	s := newTestScheduler(t, cli, srv.URL)
	a, err := s.Update(context.Background(), UpdateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Outcome != OutcomeUnknown || len(cli.installs) != 0 {
		t.Errorf("without force: outcome %q installs %v", a.Outcome, cli.installs)
	}

	a, err = s.Update(context.Background(), UpdateOptions{Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if a.Outcome != OutcomeUpdated || len(cli.installs) != 1 {
		t.Errorf("with force: outcome %q installs %v", a.Outcome, cli.installs)
	}
}

func TestUpdatePinnedVersion(t *testing.T) {
	srv, hits := registryServer(t, "1.4.0", http.StatusOK)
	cli := &fakeCLI{version: "1.4.0"}
	s := newTestScheduler(t, cli, srv.URL)

	a, err := s.Update(context.Background(), UpdateOptions{Version: "v1.2.0"})
	if err != nil {
		t.Fatal(err)
	}
	if a.Outcome != OutcomeUpdated || cli.installs[0] != "opencode-ai@1.2.0" {
		t.Errorf("outcome %q installs %v", a.Outcome, cli.installs)
	}
	if n := atomic.LoadInt32(hits); n != 0 {
		t.Errorf("pinned update queried the registry %d times", n)
	}
}

func TestUpdateInstallFailureStamps(t *testing.T) {
	srv, _ := registryServer(t, "1.4.0", http.StatusOK)
	cli := &fakeCLI{version: "1.3.0", installErr: errors.New("EACCES")}
	s := newTestScheduler(t, cli, srv.URL)

	a, err := s.Update(context.Background(), UpdateOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if a.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %q", a.Outcome)
	}
	st, _ := LoadState(s.StatePath)
	if st.LastCheck.IsZero() || st.LastResult != OutcomeFailed || st.LastError == "" {
		t.Errorf("state = %+v", st)
	}
}

func TestUpdateVerifyMismatchFails(t *testing.T) {
	srv, _ := registryServer(t, "1.4.0", http.StatusOK)
	cli := &fakeCLI{version: "1.3.0", reportAfterInstall: "1.3.0"}
	s := newTestScheduler(t, cli, srv.URL)

	a, err := s.Update(context.Background(), UpdateOptions{})
	if err == nil {
		t.Fatal("expected verification error")
	}
	if a.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %q", a.Outcome)
	}
}

func TestUpdateDryRunChangesNothing(t *testing.T) {
	srv, _ := registryServer(t, "1.4.0", http.StatusOK)
	cli := &fakeCLI{version: "1.3.0"}
	s := newTestScheduler(t, cli, srv.URL)
	s.DryRun = true

	a, err := s.Update(context.Background(), UpdateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Outcome != OutcomeDryRun {
		t.Errorf("Outcome = %q", a.Outcome)
	}
	if len(cli.installs) != 0 {
		t.Errorf("installs = %v", cli.installs)
	}
	if _, err := os.Stat(s.StatePath); !os.IsNotExist(err) {
		t.Error("dry run wrote the state file")
	}
}

func TestUpdateBacksUpMetadata(t *testing.T) {
	srv, _ := registryServer(t, "1.4.0", http.StatusOK)
	cli := &fakeCLI{version: "1.3.0"}
	s := newTestScheduler(t, cli, srv.URL)

	pkgDir := filepath.Join(t.TempDir(), "node_modules", "opencode-ai")
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, "package.json"), []byte(`{"version":"1.3.0"}`), 0644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(t.TempDir(), "absent")

	s.Snapshot = backup.New(filepath.Join(t.TempDir(), "backups"))
	s.MetadataPaths = func(context.Context) []string { return []string{pkgDir, missing} }

	a, err := s.Update(context.Background(), UpdateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Backups) != 1 || a.Backups[0].Original != pkgDir {
		t.Fatalf("backups = %+v", a.Backups)
	}
	if _, err := os.Stat(filepath.Join(a.Backups[0].Path, "package.json")); err != nil {
		t.Errorf("backup missing package.json: %v", err)
	}
}

func TestRunIfDue(t *testing.T) {
	srv, _ := registryServer(t, "1.4.0", http.StatusOK)
	cli := &fakeCLI{version: "1.3.0"}
	s := newTestScheduler(t, cli, srv.URL)
	now := s.Now()

	if err := SaveState(s.StatePath, &State{LastCheck: now.Add(-time.Hour)}); err != nil {
		t.Fatal(err)
	}
	a, err := s.RunIfDue(context.Background(), now)
	if err != nil || a != nil {
		t.Fatalf("not due: attempt %+v err %v", a, err)
	}

	if err := SaveState(s.StatePath, &State{LastCheck: now.Add(-8 * 24 * time.Hour)}); err != nil {
		t.Fatal(err)
	}
	a, err = s.RunIfDue(context.Background(), now)
	if err != nil {
		t.Fatal(err)
	}
	if a == nil || a.Outcome != OutcomeUpdated {
		t.Fatalf("due: attempt %+v", a)
	}
}

func TestRunIfDueRecoversFromCorruptState(t *testing.T) {
	srv, _ := registryServer(t, "1.4.0", http.StatusOK)
	cli := &fakeCLI{version: "1.3.0"}
	s := newTestScheduler(t, cli, srv.URL)
	now := s.Now()

	if err := os.WriteFile(s.StatePath, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	a, err := s.RunIfDue(context.Background(), now)
	if err != nil {
		t.Fatalf("RunIfDue: %v", err)
	}
	if a == nil || a.Outcome != OutcomeUpdated {
		t.Fatalf("attempt = %+v", a)
	}

	st, err := LoadState(s.StatePath)
	if err != nil {
		t.Fatalf("state not rewritten: %v", err)
	}
	if !st.LastCheck.Equal(now) {
		t.Errorf("LastCheck = %v, want %v", st.LastCheck, now)
	}

	a, err = s.RunIfDue(context.Background(), now)
	if err != nil || a != nil {
		t.Fatalf("second run should not be due: attempt %+v err %v", a, err)
	}
}

func TestPendingSelfUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := RecordSelfCheck(path, "1.0.0", MustVersion("1.2.0")); err != nil {
		t.Fatal(err)
	}
	st, err := LoadState(path)
	if err != nil {
		t.Fatal(err)
	}

	if latest, ok := PendingSelfUpdate(st, "1.0.0"); !ok || latest != "1.2.0" {
		t.Errorf("PendingSelfUpdate = %q, %v", latest, ok)
	}
	if _, ok := PendingSelfUpdate(st, "1.2.0"); ok {
		t.Error("check recorded for another version should not produce a banner")
	}
	if _, ok := PendingSelfUpdate(&State{}, "1.0.0"); ok {
		t.Error("empty state should not produce a banner")
	}
}
