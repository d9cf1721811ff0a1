package deploy

import "path/filepath"

// Bundle layout.
const (
	ConfigFile   = "opencode.json"
	SkillsDir    = "skills"
	AgentsDoc    = "AGENTS.md"
	AgentsDir    = "agents"
	stagedSuffix = ".skillkit-staged"
)

// Target is one artifact copied from the bundle into the target directory.
type Target struct {
	Name        string
	Source      string
	Destination string
	IsDir       bool
	// ConfirmOverwrite asks before replacing an existing destination.
	ConfirmOverwrite bool
	// Templated marks the configuration that receives the skill index.
	Templated bool
}

// DefaultTargets lists the artifacts mode deploys from bundleDir into
// targetDir. Skills come before the configuration so the index describes
// what was just deployed.
func DefaultTargets(bundleDir, targetDir string, mode Mode) []Target {
	skills := Target{
		Name:             "skills directory",
		Source:           filepath.Join(bundleDir, SkillsDir),
		Destination:      filepath.Join(targetDir, SkillsDir),
		IsDir:            true,
		ConfirmOverwrite: true,
	}
	config := Target{
		Name:             "configuration document",
		Source:           filepath.Join(bundleDir, ConfigFile),
		Destination:      filepath.Join(targetDir, ConfigFile),
		ConfirmOverwrite: true,
		Templated:        true,
	}
	agentsDoc := Target{
		Name:             "agent instructions document",
		Source:           filepath.Join(bundleDir, AgentsDoc),
		Destination:      filepath.Join(targetDir, AgentsDoc),
		ConfirmOverwrite: true,
	}
	agents := Target{
		Name:        "agents directory",
		Source:      filepath.Join(bundleDir, AgentsDir),
		Destination: filepath.Join(targetDir, AgentsDir),
		IsDir:       true,
	}

	switch mode {
	case ModeSkillsOnly:
		return []Target{skills, config}
	case ModeQuick:
		return []Target{skills, config, agentsDoc}
	default:
		return []Target{skills, config, agentsDoc, agents}
	}
}
