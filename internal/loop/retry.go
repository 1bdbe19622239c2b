package loop

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mkettering/foreman/internal/store"
)

// MaxTestRetries caps the number of automatic dev/test repair cycles before a
// request is failed outright.
const MaxTestRetries = 3

// maxFailureDetail bounds how many failure lines get copied into a fix brief.
const maxFailureDetail = 5

// maxPlanSummaryLines bounds how much of the prior plan a fix brief quotes.
const maxPlanSummaryLines = 40

// FailureReport is the structured result the agent is instructed to emit at
// the end of its test-phase output.
type FailureReport struct {
	ErrorCount int      `json:"error_count"`
	Failures   []string `json:"failures"`
}

// ParseFailureReport scans agent output for a JSON failure report. The report
// may appear as a bare JSON line or inside a fenced code block; the last
// parseable candidate wins. Returns nil when no report is found.
func ParseFailureReport(output string) *FailureReport {
	var report *FailureReport
	try := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		if !strings.Contains(candidate, "error_count") {
			return
		}
		var r FailureReport
		if err := json.Unmarshal([]byte(candidate), &r); err == nil {
			report = &r
		}
	}

	lines := strings.Split(output, "\n")
	var fence []string
	inFence := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				try(strings.Join(fence, "\n"))
				fence = nil
			}
			inFence = !inFence
			continue
		}
		if inFence {
			fence = append(fence, line)
			continue
		}
		if strings.HasPrefix(trimmed, "{") {
			try(trimmed)
		}
	}
	return report
}

// FixBrief builds a replacement plan document for a failed test run: the
// failures to address plus a summary of the original plan for context.
func FixBrief(view *store.RequestView, report *FailureReport, retry int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Fix Brief: %s (attempt %d of %d)\n\n", view.Name, retry, MaxTestRetries)
	fmt.Fprintf(&b, "The test phase reported %d failing test(s). Fix the failures below, then the tests will be rerun.\n\n", report.ErrorCount)

	b.WriteString("## Failures\n\n")
	failures := report.Failures
	if len(failures) > maxFailureDetail {
		failures = failures[:maxFailureDetail]
	}
	if len(failures) == 0 {
		b.WriteString("- (no individual failures listed; rerun the full suite and fix everything that fails)\n")
	}
	for _, f := range failures {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	if extra := report.ErrorCount - len(failures); extra > 0 {
		fmt.Fprintf(&b, "- ...and %d more\n", extra)
	}

	if prior := loadPlanSummary(view); prior != "" {
		b.WriteString("\n## Original Plan (summary)\n\n")
		b.WriteString(prior)
		b.WriteString("\n")
	}
	return b.String()
}

// loadPlanSummary returns the head of the request's current plan document,
// preferring the recorded plan path over the conventional PLAN.md location.
func loadPlanSummary(view *store.RequestView) string {
	path := view.PlanPath
	if path == "" {
		path = filepath.Join(view.EffectiveCodeDir(), "PLAN.md")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > maxPlanSummaryLines {
		lines = lines[:maxPlanSummaryLines]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// WriteFixBrief persists a fix brief under docsDir and returns its path.
func WriteFixBrief(docsDir string, view *store.RequestView, brief string) (string, error) {
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		return "", fmt.Errorf("loop: create docs dir: %w", err)
	}
	name := fmt.Sprintf("%d_fixbrief_%s.md", view.ReqID, time.Now().Format("20060102_150405"))
	path := filepath.Join(docsDir, name)
	if err := os.WriteFile(path, []byte(brief), 0o644); err != nil {
		return "", fmt.Errorf("loop: write fix brief: %w", err)
	}
	return path, nil
}
