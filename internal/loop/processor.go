package loop

import (
	"context"
	"fmt"
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/mkettering/foreman/internal/agent"
	"github.com/mkettering/foreman/internal/docs"
	"github.com/mkettering/foreman/internal/models"
	"github.com/mkettering/foreman/internal/notify"
	"github.com/mkettering/foreman/internal/phase"
	"github.com/mkettering/foreman/internal/prompt"
	"github.com/mkettering/foreman/internal/settings"
	"github.com/mkettering/foreman/internal/store"
)

// APIKeyEnv is required when the api auth mode is configured.
const APIKeyEnv = "ANTHROPIC_API_KEY"

// Outcome summarizes one dispatch for the daemon's bookkeeping.
type Outcome int

const (
	// OutcomeAdvanced means the request moved to its next phase (or back to
	// dev for a repair cycle) and is pending again.
	OutcomeAdvanced Outcome = iota

	// OutcomeCompleted means the request reached the complete phase.
	OutcomeCompleted

	// OutcomeFailed means the request was parked in err or tmout.
	OutcomeFailed

	// OutcomeRateLimited means the provider throttled us; the request went
	// back to pending untouched and the daemon should cool down.
	OutcomeRateLimited
)

// Processor executes exactly one phase of one claimed request.
type Processor struct {
	DB        *gorm.DB
	Agent     agent.Runner
	Prompts   prompt.Renderer
	DocsDir   string
	Guard     *Guard
	Escalator *Escalator
	Notifier  *notify.Notifier
}

// Process runs the claimed request's current phase and transitions it
// according to the result. The request arrives in status wip and always
// leaves in tbd, done, err, or tmout.
func (p *Processor) Process(ctx context.Context, view *store.RequestView, set settings.Settings) Outcome {
	if err := p.Agent.Available(); err != nil {
		msg := FriendlyMessage(CategoryCLI, string(view.Phase), err)
		return p.fail(ctx, view, models.StatusErr, msg, false)
	}
	if set.AuthMode == settings.AuthModeAPI && os.Getenv(APIKeyEnv) == "" {
		msg := fmt.Sprintf("auth mode is %q but %s is not set", settings.AuthModeAPI, APIKeyEnv)
		return p.fail(ctx, view, models.StatusErr, msg, false)
	}

	phasePrompt, err := p.Prompts.PhasePrompt(view, set)
	if err != nil {
		return p.fail(ctx, view, models.StatusErr,
			fmt.Sprintf("build prompt for %s phase: %v", view.Phase, err), false)
	}
	systemPrompt, err := p.Prompts.SystemPrompt(view)
	if err != nil {
		return p.fail(ctx, view, models.StatusErr,
			fmt.Sprintf("build system prompt: %v", err), false)
	}

	model := view.PrjModel
	if model == "" {
		model = set.Model
	}
	timeout := phase.Timeout(view.Phase)
	res, err := p.Agent.Run(ctx, agent.Invocation{
		Prompt:         phasePrompt,
		SystemPrompt:   systemPrompt,
		AllowedTools:   phase.Tools(view.Phase),
		WorkDir:        view.EffectiveCodeDir(),
		PermissionMode: agent.DefaultPermissionMode,
		Model:          model,
		MaxTurns:       set.MaxTurns,
		Timeout:        timeout,
	})
	if err != nil {
		switch {
		case agent.IsTimeout(err):
			msg := fmt.Sprintf("timed out after %s in %s phase", timeout, view.Phase)
			return p.fail(ctx, view, models.StatusTimeout, msg, false)
		case IsRateLimitError(err):
			p.Guard.Trip(DefaultBackoff)
			if reqErr := store.Requeue(p.DB, view.ReqID); reqErr != nil {
				log.Printf("loop: requeue rate-limited request %d: %v", view.ReqID, reqErr)
			}
			log.Printf("loop: rate limited in %s phase of request %d, cooling down %s",
				view.Phase, view.ReqID, DefaultBackoff)
			return OutcomeRateLimited
		default:
			// Classification shapes the message only; every terminal agent
			// error records a learning.
			msg := FriendlyMessage(Classify(err), string(view.Phase), err)
			return p.fail(ctx, view, models.StatusErr, msg, true)
		}
	}

	if len(res.Output) >= docs.MinSaveBytes {
		if path, saveErr := docs.Save(p.DocsDir, view, res.Output); saveErr != nil {
			log.Printf("loop: save doc for request %d: %v", view.ReqID, saveErr)
		} else {
			if setErr := store.SetDocPath(p.DB, view.ReqID, path); setErr != nil {
				log.Printf("loop: record doc path for request %d: %v", view.ReqID, setErr)
			}
			if view.Phase == models.PhasePlan && view.PlanPath == "" {
				if setErr := store.SetPlanPath(p.DB, view.ReqID, path); setErr != nil {
					log.Printf("loop: record plan path for request %d: %v", view.ReqID, setErr)
				}
			}
		}
	}

	if view.Phase == models.PhaseTest {
		if outcome, handled := p.handleTestResult(ctx, view, res.Output); handled {
			return outcome
		}
	}

	return p.advance(ctx, view, set)
}

// handleTestResult inspects the test-phase output for a failure report. The
// second return is false when the tests passed and the normal phase
// transition should proceed.
func (p *Processor) handleTestResult(ctx context.Context, view *store.RequestView, output string) (Outcome, bool) {
	report := ParseFailureReport(output)
	if report == nil || report.ErrorCount <= 0 {
		if view.TestRetries > 0 {
			if err := store.ResetTestRetries(p.DB, view.ReqID); err != nil {
				log.Printf("loop: reset test retries for %d: %v", view.ReqID, err)
			}
		}
		return 0, false
	}

	if view.TestRetries >= MaxTestRetries {
		msg := fmt.Sprintf("%d test(s) still failing after %d repair attempts",
			report.ErrorCount, MaxTestRetries)
		return p.fail(ctx, view, models.StatusErr, msg, true), true
	}

	brief := FixBrief(view, report, view.TestRetries+1)
	path, err := WriteFixBrief(p.DocsDir, view, brief)
	if err != nil {
		log.Printf("loop: write fix brief for request %d: %v", view.ReqID, err)
	} else if err := store.SetPlanPath(p.DB, view.ReqID, path); err != nil {
		log.Printf("loop: record fix brief for request %d: %v", view.ReqID, err)
	}

	retries, err := store.IncrementTestRetries(p.DB, view.ReqID)
	if err != nil {
		log.Printf("loop: increment test retries for %d: %v", view.ReqID, err)
	}
	if err := store.SetPhase(p.DB, view.ReqID, models.PhaseDev); err != nil {
		log.Printf("loop: send request %d back to dev: %v", view.ReqID, err)
	}
	if err := store.SetStatus(p.DB, view.ReqID, models.StatusTBD); err != nil {
		log.Printf("loop: requeue request %d for repair: %v", view.ReqID, err)
	}
	log.Printf("loop: request %d has %d failing test(s), repair cycle %d of %d",
		view.ReqID, report.ErrorCount, retries, MaxTestRetries)
	return OutcomeAdvanced, true
}

// advance moves the request to its next phase, honoring infrastructure
// locality and the commit policy.
func (p *Processor) advance(ctx context.Context, view *store.RequestView, set settings.Settings) Outcome {
	infra, err := store.EffectiveInfrastructure(p.DB, view.ReqID)
	if err != nil {
		return p.fail(ctx, view, models.StatusErr,
			fmt.Sprintf("resolve infrastructure: %v", err), false)
	}
	policy := phase.CommitPolicy{
		RequestOverride: view.CommitEnabled,
		ProjectOverride: view.PrjCommitEnabled,
		GlobalEnabled:   set.CommitEnabledOrDefault(),
	}

	next := phase.Next(view.Phase, infra, policy)
	if err := store.SetPhase(p.DB, view.ReqID, next); err != nil {
		log.Printf("loop: advance request %d to %s: %v", view.ReqID, next, err)
		return OutcomeFailed
	}

	if next == models.PhaseComplete {
		if err := store.SetStatus(p.DB, view.ReqID, models.StatusDone); err != nil {
			log.Printf("loop: mark request %d done: %v", view.ReqID, err)
		}
		p.Notifier.Send(ctx, notify.Event{
			Title:    fmt.Sprintf("Request %d complete: %s", view.ReqID, view.Name),
			Body:     fmt.Sprintf("Finished all phases in project %s.", view.PrjName),
			Severity: notify.SeverityInfo,
		})
		return OutcomeCompleted
	}

	if err := store.SetStatus(p.DB, view.ReqID, models.StatusTBD); err != nil {
		log.Printf("loop: requeue request %d for %s phase: %v", view.ReqID, next, err)
	}
	return OutcomeAdvanced
}

// fail parks the request with the given terminal status and error text,
// optionally recording a learning, and escalates.
func (p *Processor) fail(ctx context.Context, view *store.RequestView, status models.Status, msg string, learn bool) Outcome {
	if err := store.SetStatus(p.DB, view.ReqID, status); err != nil {
		log.Printf("loop: set status %s on request %d: %v", status, view.ReqID, err)
	}
	if err := store.SetError(p.DB, view.ReqID, msg); err != nil {
		log.Printf("loop: record error on request %d: %v", view.ReqID, err)
	}
	if learn {
		note := fmt.Sprintf("Request %q failed in %s phase: %s",
			view.Name, view.Phase, truncate(msg, 400))
		if err := store.AddLearning(p.DB, int(view.PrjID), note); err != nil {
			log.Printf("loop: record learning for request %d: %v", view.ReqID, err)
		}
	}
	p.Escalator.FileBugFix(ctx, view, msg)
	return OutcomeFailed
}
