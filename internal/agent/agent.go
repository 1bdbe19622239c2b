// Package agent defines the boundary between orchestration and execution.
// The daemon only ever sees Runner; which binary, SDK, or provider does the
// work is this package's business.
package agent

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout indicates the invocation exceeded its phase timeout.
var ErrTimeout = errors.New("agent: invocation timed out")

// Invocation carries everything one agent run needs.
type Invocation struct {
	Prompt         string
	SystemPrompt   string
	AllowedTools   []string
	WorkDir        string
	PermissionMode string
	Model          string
	MaxTurns       int
	Timeout        time.Duration
}

// Result is the agent's output for one invocation.
type Result struct {
	Output   string // concatenated assistant text
	ToolUses int    // number of tool invocations observed
}

// Runner executes one invocation. Implementations must honor
// Invocation.Timeout and surface expiry as ErrTimeout.
type Runner interface {
	// Available reports whether the runner can execute at all (binary on
	// PATH, SDK importable). Checked before every dispatch.
	Available() error

	// Run blocks until the agent finishes, times out, or ctx is cancelled.
	Run(ctx context.Context, inv Invocation) (*Result, error)
}
