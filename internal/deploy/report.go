package deploy

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"

	"github.com/skillkit-labs/skillkit/internal/backup"
	"github.com/skillkit-labs/skillkit/internal/inject"
	"github.com/skillkit-labs/skillkit/internal/probe"
	"github.com/skillkit-labs/skillkit/internal/skills"
)

// Step is one state-machine transition taken during a run.
type Step struct {
	State  State
	Target string
	Detail string
}

// ArtifactResult is the outcome of deploying one artifact.
type ArtifactResult struct {
	Name     string
	Outcome  Outcome
	Backup   *backup.Record
	Injected inject.Result
	Detail   string
	Err      error
}

// Report describes a run. Dry runs and real runs walk the same steps, so
// their reports can be compared.
type Report struct {
	Mode       Mode
	DryRun     bool
	Env        probe.Environment
	Steps      []Step
	Artifacts  []ArtifactResult
	Index      *skills.Index
	BackupRoot string
	Final      State
	// Interrupted is set when the context was cancelled mid-run.
	Interrupted bool
}

func (r *Report) step(state State, target, detail string) {
	r.Steps = append(r.Steps, Step{State: state, Target: target, Detail: detail})
}

// Outcome is failure if any artifact failed, skipped if every artifact was
// skipped and success otherwise.
func (r *Report) Outcome() Outcome {
	if r.Interrupted {
		return OutcomeFailure
	}
	skipped := 0
	for _, a := range r.Artifacts {
		switch a.Outcome {
		case OutcomeFailure:
			return OutcomeFailure
		case OutcomeSkipped:
			skipped++
		}
	}
	if len(r.Artifacts) > 0 && skipped == len(r.Artifacts) {
		return OutcomeSkipped
	}
	return OutcomeSuccess
}

// Err aggregates the per-artifact errors.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, a := range r.Artifacts {
		if a.Err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", a.Name, a.Err))
		}
	}
	return result.ErrorOrNil()
}

// PrintSummary writes a per-artifact summary to w.
func (r *Report) PrintSummary(w io.Writer) {
	title := "Deployment summary"
	if r.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintf(w, "\n%s\n", color.New(color.Bold).Sprint(title))
	for _, a := range r.Artifacts {
		var mark string
		switch a.Outcome {
		case OutcomeSuccess:
			mark = color.GreenString("✓")
		case OutcomeSkipped:
			mark = color.YellowString("-")
		default:
			mark = color.RedString("✗")
		}
		line := fmt.Sprintf("  %s %-28s %s", mark, a.Name, a.Outcome)
		if a.Detail != "" {
			line += " (" + a.Detail + ")"
		}
		fmt.Fprintln(w, line)
	}
	if r.Index != nil {
		fmt.Fprintf(w, "  skills indexed: %d, skipped: %d\n", r.Index.Total(), len(r.Index.Warnings))
	}
	if r.BackupRoot != "" {
		verb := "Backups saved to"
		if r.DryRun {
			verb = "Backups would be saved to"
		}
		fmt.Fprintf(w, "  %s %s\n", verb, r.BackupRoot)
	}
}

// RecoverySuggestions returns the hints printed after a failed run.
func RecoverySuggestions(backupRoot, logPath string) []string {
	s := []string{
		"re-run with --verbose for detailed output",
	}
	if logPath != "" {
		s = append(s, "check the log file at "+logPath)
	}
	s = append(s, "check your network connection if a download or registry lookup failed")
	if backupRoot != "" {
		s = append(s, "restore previous files from "+backupRoot)
	}
	return s
}
