package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// DefaultPermissionMode is passed to the CLI unless overridden.
const DefaultPermissionMode = "acceptEdits"

// CLIRunner executes invocations by shelling out to the claude CLI with
// stream-json output, which carries both assistant text and tool-use events.
type CLIRunner struct {
	Binary string // default "claude"
}

// NewCLIRunner returns a CLIRunner for the given binary name.
func NewCLIRunner(binary string) *CLIRunner {
	if binary == "" {
		binary = "claude"
	}
	return &CLIRunner{Binary: binary}
}

// Available checks that the CLI binary is on PATH.
func (r *CLIRunner) Available() error {
	if _, err := exec.LookPath(r.Binary); err != nil {
		return fmt.Errorf("agent: %s binary not found in PATH: %w", r.Binary, err)
	}
	return nil
}

// Run invokes the CLI and parses its stream-json output.
func (r *CLIRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	args := []string{
		"-p", inv.Prompt,
		"--verbose",
		"--output-format", "stream-json",
	}
	if inv.SystemPrompt != "" {
		args = append(args, "--system-prompt", inv.SystemPrompt)
	}
	if len(inv.AllowedTools) > 0 {
		args = append(args, "--allowed-tools", strings.Join(inv.AllowedTools, ","))
	}
	mode := inv.PermissionMode
	if mode == "" {
		mode = DefaultPermissionMode
	}
	args = append(args, "--permission-mode", mode)
	if inv.Model != "" {
		args = append(args, "--model", inv.Model)
	}
	if inv.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(inv.MaxTurns))
	}

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	if inv.WorkDir != "" {
		cmd.Dir = inv.WorkDir
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 10 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, ErrTimeout
	}
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("agent: %s failed: %s", r.Binary, detail)
	}

	result := parseStream(stdout.String())
	return result, nil
}

// streamEvent is used for initial type dispatch of stream-json lines.
type streamEvent struct {
	Type string `json:"type"`
}

// assistantEvent extracts content blocks from assistant events.
type assistantEvent struct {
	Message struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

// parseStream collects assistant text and counts tool_use blocks from
// stream-json lines. Unparseable lines are skipped; the CLI interleaves
// diagnostics with events.
func parseStream(content string) *Result {
	var out strings.Builder
	toolUses := 0

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 || line[0] != '{' {
			continue
		}

		var evt streamEvent
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			continue
		}
		if evt.Type != "assistant" {
			continue
		}

		var a assistantEvent
		if err := json.Unmarshal([]byte(line), &a); err != nil {
			continue
		}
		for _, block := range a.Message.Content {
			switch block.Type {
			case "text":
				if block.Text != "" {
					out.WriteString(block.Text)
					out.WriteString("\n")
				}
			case "tool_use":
				toolUses++
			}
		}
	}

	return &Result{
		Output:   strings.TrimSpace(out.String()),
		ToolUses: toolUses,
	}
}

// IsTimeout reports whether err is (or wraps) an invocation timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
