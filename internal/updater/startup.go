package updater

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/skillkit-labs/skillkit/internal/branding"
)

// PendingSelfUpdate reports the newer skillkit release recorded in st, if
// the last self check found one for the running version.
func PendingSelfUpdate(st *State, current string) (string, bool) {
	if st == nil || st.SelfLatest == "" || st.SelfCheckedFor != current {
		return "", false
	}
	if Compare(MustVersion(current), MustVersion(st.SelfLatest)) != StatusUpdateAvailable {
		return "", false
	}
	return st.SelfLatest, true
}

// RecordSelfCheck stores the result of a self version check so later runs can
// print the banner without touching the network.
func RecordSelfCheck(path, current string, latest VersionInfo) error {
	st, err := LoadState(path)
	if err != nil {
		st = &State{}
	}
	st.SelfCheckedFor = current
	st.SelfLatest = ""
	if !latest.IsUnknown() {
		st.SelfLatest = latest.String()
	}
	return SaveState(path, st)
}

// PrintBanner prints the update notice recorded in the state file, if any.
// It never touches the network and ignores unreadable state.
func PrintBanner(w io.Writer, statePath, current string) {
	st, err := LoadState(statePath)
	if err != nil {
		return
	}
	if latest, ok := PendingSelfUpdate(st, current); ok {
		PrintUpdateBanner(w, current, latest)
	}
}

// PrintUpdateBanner prints the update notification to w.
func PrintUpdateBanner(w io.Writer, current, latest string) {
	fmt.Fprintf(w, "\n%s %s -> %s\n", color.YellowString("Update available:"), current, latest)
	fmt.Fprintf(w, "    Run `%s update --self` to upgrade\n\n", branding.CLIName())
}
