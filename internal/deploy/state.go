package deploy

import "fmt"

// State is a step of the deployment state machine.
type State int

const (
	StateStart State = iota
	StateProbing
	StateConfirming
	StateBackingUp
	StateWriting
	StateIndexing
	StateInjecting
	StateSummarizing
	StateDone
	StateErrorRecovery
)

var stateNames = [...]string{
	StateStart:         "start",
	StateProbing:       "probing",
	StateConfirming:    "confirming",
	StateBackingUp:     "backing-up",
	StateWriting:       "writing",
	StateIndexing:      "indexing",
	StateInjecting:     "injecting",
	StateSummarizing:   "summarizing",
	StateDone:          "done",
	StateErrorRecovery: "error-recovery",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome is the result of deploying one artifact, or of a whole run.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSkipped
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failure"
	}
}

// Mode selects which artifacts a run deploys.
type Mode string

const (
	// ModeFull installs the toolchain, the shell PATH entry and every artifact.
	ModeFull Mode = "full"
	// ModeQuick deploys the configuration, skills and agent instructions only.
	ModeQuick Mode = "quick"
	// ModeSkillsOnly deploys the skills and the regenerated configuration.
	ModeSkillsOnly Mode = "skills-only"
)
