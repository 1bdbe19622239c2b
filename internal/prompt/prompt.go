// Package prompt renders phase and system prompts for agent invocations.
// Template content is opaque to the rest of the system: templates are plain
// text with named {placeholder} tokens, user-overridable on disk with bundled
// fallbacks.
package prompt

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkettering/foreman/internal/models"
	"github.com/mkettering/foreman/internal/settings"
	"github.com/mkettering/foreman/internal/store"
	"gorm.io/gorm"
)

//go:embed templates
var bundledFS embed.FS

// Renderer is the narrow interface the processor compiles against.
type Renderer interface {
	// PhasePrompt builds the complete prompt for a request's current phase.
	PhasePrompt(view *store.RequestView, set settings.Settings) (string, error)

	// SystemPrompt builds the system prompt for a request.
	SystemPrompt(view *store.RequestView) (string, error)
}

// Builder is the production Renderer. It reads context (infrastructure,
// learnings) from the store and templates from TemplatesDir, falling back to
// the bundled copies.
type Builder struct {
	DB           *gorm.DB
	TemplatesDir string // user-editable override dir, e.g. data/prompts
}

// NewBuilder returns a Builder reading user templates from templatesDir.
func NewBuilder(gdb *gorm.DB, templatesDir string) *Builder {
	return &Builder{DB: gdb, TemplatesDir: templatesDir}
}

// typeNames maps request types to display names for prompts.
var typeNames = map[models.RequestType]string{
	models.TypeNewFeature:  "New Feature",
	models.TypeBugFix:      "Bug Fix",
	models.TypeEnhancement: "Enhancement",
}

// Learning context caps: the freshest few are signal, the rest is noise.
const (
	maxGlobalLearnings  = 5
	maxProjectLearnings = 10
)

// PhasePrompt renders the template for the request's current phase, fills in
// the placeholders, and appends project guidelines and learnings.
func (b *Builder) PhasePrompt(view *store.RequestView, set settings.Settings) (string, error) {
	tmpl, err := b.loadTemplate(filepath.Join("phases", string(view.Phase)+".md"))
	if err != nil {
		return "", err
	}

	infraBlock := ""
	switch view.Phase {
	case models.PhasePlan, models.PhaseDev, models.PhaseDeploy:
		infraBlock, err = b.infrastructureBlock(view.ReqID)
		if err != nil {
			return "", err
		}
	}

	codeDir := view.EffectiveCodeDir()

	planContent, testplanContent := "", ""
	if view.Phase == models.PhaseDev || view.Phase == models.PhaseTest {
		planContent = loadDocument("PLAN.md", view.PlanPath, codeDir)
		testplanContent = loadDocument("TESTPLAN.md", view.TestPlanPath, codeDir)
	}

	branchMode, targetBranch := "", ""
	if view.Phase == models.PhaseCommit {
		branchMode, targetBranch = CommitBranch(view, set)
	}

	prompt := strings.NewReplacer(
		"{project_name}", view.PrjName,
		"{project_version}", string(view.PrjVersion),
		"{project_phase}", string(view.ProjectPhase),
		"{request_name}", view.Name,
		"{request_type}", displayType(view.Type),
		"{request_prompt}", view.Prompt,
		"{code_dir}", codeDir,
		"{infrastructure}", infraBlock,
		"{plan_content}", planContent,
		"{testplan_content}", testplanContent,
		"{branch_mode}", branchMode,
		"{target_branch}", targetBranch,
	).Replace(tmpl)

	if view.PrjPrompt != "" {
		prompt += "\n\n## Project Guidelines\n\n" + view.PrjPrompt + "\n"
	}

	learningsBlock, err := b.learningsBlock(int(view.PrjID))
	if err != nil {
		return "", err
	}
	prompt += learningsBlock

	return prompt, nil
}

// SystemPrompt renders the system template for the request.
func (b *Builder) SystemPrompt(view *store.RequestView) (string, error) {
	tmpl, err := b.loadTemplate("system.md")
	if err != nil {
		return "", err
	}
	return strings.NewReplacer(
		"{phase}", strings.ToUpper(string(view.Phase)),
		"{project_name}", view.PrjName,
	).Replace(tmpl), nil
}

// CommitBranch resolves the branch mode and target branch for the commit
// phase: request branch override, then project mode/name, then the global
// settings.
func CommitBranch(view *store.RequestView, set settings.Settings) (mode, target string) {
	if view.CommitBranch != "" {
		return models.BranchModeOther, view.CommitBranch
	}
	if view.PrjCommitBranchMode != "" {
		if view.PrjCommitBranchMode == models.BranchModeOther {
			target = view.PrjCommitBranchName
			if target == "" {
				target = "main"
			}
			return models.BranchModeOther, target
		}
		return models.BranchModeCurrent, "<current branch>"
	}
	if set.CommitBranchMode == models.BranchModeOther {
		target = set.CommitBranchName
		if target == "" {
			target = "main"
		}
		return models.BranchModeOther, target
	}
	return models.BranchModeCurrent, "<current branch>"
}

// loadTemplate reads a template by relative name, preferring the user dir.
func (b *Builder) loadTemplate(name string) (string, error) {
	if b.TemplatesDir != "" {
		path := filepath.Join(b.TemplatesDir, name)
		if data, err := os.ReadFile(path); err == nil {
			return string(data), nil
		}
	}
	data, err := bundledFS.ReadFile("templates/" + filepath.ToSlash(name))
	if err != nil {
		return "", fmt.Errorf("prompt: template %s not found: %w", name, err)
	}
	return string(data), nil
}

// infrastructureBlock formats the effective infrastructure for the prompt.
func (b *Builder) infrastructureBlock(reqID uint) (string, error) {
	infra, err := store.EffectiveInfrastructure(b.DB, reqID)
	if err != nil {
		return "", err
	}
	if len(infra) == 0 {
		return "- Local development environment", nil
	}
	var lines []string
	for _, e := range infra {
		val := e.Value
		if val == "" {
			val = "default"
		}
		lines = append(lines, fmt.Sprintf("- **%s**: %s (%s)", e.Type, e.Provider, val))
	}
	return strings.Join(lines, "\n"), nil
}

// learningsBlock formats global and project learnings as prompt context.
func (b *Builder) learningsBlock(prjID int) (string, error) {
	learnings, err := store.LearningsWithGlobal(b.DB, prjID)
	if err != nil {
		return "", err
	}
	if len(learnings) == 0 {
		return "", nil
	}

	var global, project []string
	for _, l := range learnings {
		if l.Scope == "global" && len(global) < maxGlobalLearnings {
			global = append(global, "- "+l.Desc)
		}
		if l.Scope == "project" && len(project) < maxProjectLearnings {
			project = append(project, "- "+l.Desc)
		}
	}

	var parts []string
	if len(global) > 0 {
		parts = append(parts, "### Global Learnings\n"+strings.Join(global, "\n"))
	}
	if len(project) > 0 {
		parts = append(parts, "### Project Learnings\n"+strings.Join(project, "\n"))
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "\n\n## Learnings\n" + strings.Join(parts, "\n\n"), nil
}

// loadDocument reads a working document for prompt context, preferring the
// path recorded on the request over the conventional file in the code dir.
func loadDocument(conventionalName, recordedPath, codeDir string) string {
	for _, path := range []string{recordedPath, filepath.Join(codeDir, conventionalName)} {
		if path == "" {
			continue
		}
		if data, err := os.ReadFile(path); err == nil {
			return fmt.Sprintf("\n## Current %s Content\n\n```markdown\n%s\n```\n",
				conventionalName, string(data))
		}
	}
	return ""
}

func displayType(t models.RequestType) string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return string(t)
}
