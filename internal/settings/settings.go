// Package settings manages the dynamic settings the daemon reloads between
// loop iterations, so operators can retune a running daemon without a
// restart.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Auth modes for the execution agent.
const (
	AuthModeAPI = "api" // requires ANTHROPIC_API_KEY in the environment
	AuthModeMax = "max" // subscription auth handled by the agent CLI itself
)

// Settings are reloaded from disk every daemon iteration. Zero values are
// replaced by defaults on load.
type Settings struct {
	AuthMode         string `json:"auth_mode"`
	Model            string `json:"model"`
	MaxTurns         int    `json:"max_turns"`
	PollIntervalSecs int    `json:"poll_interval"`
	LoopPaused       bool   `json:"loop_paused"`
	MaxIterations    int    `json:"max_iterations"` // 0 = unlimited

	CommitEnabled    *bool  `json:"commit_enabled,omitempty"` // nil = enabled
	CommitBranchMode string `json:"commit_branch_mode"`       // "current" or "other"
	CommitBranchName string `json:"commit_branch_name"`

	DocRetentionDays int    `json:"doc_retention_days"` // 0 disables cleanup
	DocCleanupCron   string `json:"doc_cleanup_cron"`
}

// Defaults returns the settings used when no file exists.
func Defaults() Settings {
	return Settings{
		AuthMode:         AuthModeMax,
		Model:            "claude-sonnet-4-5",
		MaxTurns:         50,
		PollIntervalSecs: 30,
		MaxIterations:    0,
		CommitBranchMode: "current",
		DocRetentionDays: 30,
		DocCleanupCron:   "0 3 * * *",
	}
}

// Load reads settings from path, filling defaults for missing or invalid
// fields. A missing or corrupt file yields the defaults; the daemon must not
// stall on a half-written settings file.
func Load(path string) Settings {
	s := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Defaults()
	}
	s.normalize()
	return s
}

// Save writes settings to path, creating the parent directory if needed.
func Save(path string, s Settings) error {
	s.normalize()
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("settings: create dir %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("settings: write %s: %w", path, err)
	}
	return nil
}

// CommitEnabledOrDefault resolves the global commit default; absence means
// enabled.
func (s Settings) CommitEnabledOrDefault() bool {
	if s.CommitEnabled == nil {
		return true
	}
	return *s.CommitEnabled
}

// normalize clamps fields to their valid ranges.
func (s *Settings) normalize() {
	if s.AuthMode != AuthModeAPI && s.AuthMode != AuthModeMax {
		s.AuthMode = AuthModeMax
	}
	if s.PollIntervalSecs < 1 {
		s.PollIntervalSecs = 1
	}
	if s.MaxTurns <= 0 {
		s.MaxTurns = 50
	}
	if s.MaxIterations < 0 {
		s.MaxIterations = 0
	}
	if s.DocRetentionDays < 0 {
		s.DocRetentionDays = 0
	}
	if s.CommitBranchMode != "current" && s.CommitBranchMode != "other" {
		s.CommitBranchMode = "current"
	}
}
