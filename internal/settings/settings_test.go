package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "settings.json"))
	def := Defaults()
	if s.AuthMode != def.AuthMode || s.Model != def.Model || s.PollIntervalSecs != def.PollIntervalSecs {
		t.Errorf("missing file = %+v, want defaults %+v", s, def)
	}
}

func TestLoadCorruptFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := Load(path)
	if s.AuthMode != AuthModeMax {
		t.Errorf("corrupt file auth mode = %q, want default", s.AuthMode)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	s := Defaults()
	s.Model = "claude-opus-4"
	s.LoopPaused = true
	s.MaxIterations = 10
	off := false
	s.CommitEnabled = &off
	s.CommitBranchMode = "other"
	s.CommitBranchName = "release"

	if err := Save(path, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got := Load(path)
	if got.Model != "claude-opus-4" || !got.LoopPaused || got.MaxIterations != 10 {
		t.Errorf("round trip = %+v", got)
	}
	if got.CommitEnabledOrDefault() {
		t.Error("commit override lost in round trip")
	}
	if got.CommitBranchMode != "other" || got.CommitBranchName != "release" {
		t.Errorf("branch settings = %q/%q", got.CommitBranchMode, got.CommitBranchName)
	}
}

func TestNormalizeClampsFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	raw := `{"auth_mode": "bogus", "poll_interval": 0, "max_turns": -5, "commit_branch_mode": "weird"}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := Load(path)
	if s.AuthMode != AuthModeMax {
		t.Errorf("auth mode = %q", s.AuthMode)
	}
	if s.PollIntervalSecs < 1 {
		t.Errorf("poll interval = %d", s.PollIntervalSecs)
	}
	if s.MaxTurns <= 0 {
		t.Errorf("max turns = %d", s.MaxTurns)
	}
	if s.CommitBranchMode != "current" {
		t.Errorf("branch mode = %q", s.CommitBranchMode)
	}
}

func TestCommitEnabledOrDefault(t *testing.T) {
	var s Settings
	if !s.CommitEnabledOrDefault() {
		t.Error("nil override should mean enabled")
	}
	on := true
	s.CommitEnabled = &on
	if !s.CommitEnabledOrDefault() {
		t.Error("explicit true ignored")
	}
	off := false
	s.CommitEnabled = &off
	if s.CommitEnabledOrDefault() {
		t.Error("explicit false ignored")
	}
}
