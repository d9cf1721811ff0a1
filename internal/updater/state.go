package updater

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/skillkit-labs/skillkit/internal/platform"
)

// State is persisted between runs in the state file.
type State struct {
	LastCheck time.Time `json:"last_check"`
	// LastResult is the outcome of the last attempt: "up to date",
	// "updated", "failed" or "unknown".
	LastResult     string `json:"last_result,omitempty"`
	LastError      string `json:"last_error,omitempty"`
	CLIVersion     string `json:"cli_version,omitempty"`
	CLILatest      string `json:"cli_latest,omitempty"`
	SelfLatest     string `json:"self_latest,omitempty"`
	SelfCheckedFor string `json:"self_checked_for,omitempty"`
}

// LoadState reads the state file. A missing file yields a zero State.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading update state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing update state: %w", err)
	}
	return &st, nil
}

// SaveState writes the state file atomically.
func SaveState(path string, st *State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling update state: %w", err)
	}
	if err := platform.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("writing update state: %w", err)
	}
	return nil
}
