package loop

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mkettering/foreman/internal/models"
	"github.com/mkettering/foreman/internal/store"
)

func TestParseFailureReportBareLine(t *testing.T) {
	output := `Ran the suite.
{"error_count": 2, "failures": ["TestLogin", "TestLogout"]}
Done.`
	r := ParseFailureReport(output)
	if r == nil {
		t.Fatal("no report parsed")
	}
	if r.ErrorCount != 2 || len(r.Failures) != 2 {
		t.Errorf("report = %+v", r)
	}
}

func TestParseFailureReportFencedBlock(t *testing.T) {
	output := "All 42 tests were executed.\n" +
		"```json\n" +
		"{\n  \"error_count\": 1,\n  \"failures\": [\"TestCheckout: expected 200, got 500\"]\n}\n" +
		"```\n"
	r := ParseFailureReport(output)
	if r == nil {
		t.Fatal("no report parsed from fenced block")
	}
	if r.ErrorCount != 1 {
		t.Errorf("error_count = %d", r.ErrorCount)
	}
}

func TestParseFailureReportLastOneWins(t *testing.T) {
	output := `{"error_count": 5, "failures": []}
fixed some, rerunning
{"error_count": 1, "failures": ["TestX"]}`
	r := ParseFailureReport(output)
	if r == nil {
		t.Fatal("no report parsed")
	}
	if r.ErrorCount != 1 {
		t.Errorf("error_count = %d, want the last report", r.ErrorCount)
	}
}

func TestParseFailureReportAbsent(t *testing.T) {
	for _, output := range []string{
		"",
		"all tests pass, nothing to report",
		`{"unrelated": true}`,
		"```json\n{\"also_unrelated\": 1}\n```",
	} {
		if r := ParseFailureReport(output); r != nil {
			t.Errorf("ParseFailureReport(%q) = %+v, want nil", output, r)
		}
	}
}

func TestFixBriefContent(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.md")
	if err := os.WriteFile(planPath, []byte("# Plan\n\nBuild the checkout flow."), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}

	view := &store.RequestView{}
	view.ReqID = 7
	view.Name = "checkout"
	view.PlanPath = planPath

	report := &FailureReport{
		ErrorCount: 8,
		Failures: []string{
			"TestA", "TestB", "TestC", "TestD", "TestE", "TestF", "TestG", "TestH",
		},
	}
	brief := FixBrief(view, report, 1)

	if !strings.Contains(brief, "8 failing test(s)") {
		t.Error("brief does not state the failure count")
	}
	if !strings.Contains(brief, "TestE") || strings.Contains(brief, "TestF") {
		t.Error("brief should list exactly the first 5 failures")
	}
	if !strings.Contains(brief, "and 3 more") {
		t.Error("brief does not note the truncated failures")
	}
	if !strings.Contains(brief, "Build the checkout flow.") {
		t.Error("brief does not quote the prior plan")
	}
	if !strings.Contains(brief, "attempt 1 of 3") {
		t.Error("brief does not state the attempt number")
	}
}

func TestFixBriefWithoutPlanOrFailures(t *testing.T) {
	view := &store.RequestView{}
	view.Name = "mystery"
	view.CodeDir = t.TempDir()
	view.Phase = models.PhaseTest

	brief := FixBrief(view, &FailureReport{ErrorCount: 3}, 2)
	if !strings.Contains(brief, "rerun the full suite") {
		t.Error("brief without failure detail should ask for a full rerun")
	}
	if strings.Contains(brief, "Original Plan") {
		t.Error("brief quotes a plan that does not exist")
	}
}

func TestWriteFixBrief(t *testing.T) {
	dir := t.TempDir()
	view := &store.RequestView{}
	view.ReqID = 12

	path, err := WriteFixBrief(dir, view, "# Fix Brief\n")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "12_fixbrief_") || !strings.HasSuffix(base, ".md") {
		t.Errorf("unexpected filename %q", base)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "# Fix Brief\n" {
		t.Errorf("content = %q", data)
	}
}
