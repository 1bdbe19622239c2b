package loop

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/mkettering/foreman/internal/db"
	"github.com/mkettering/foreman/internal/models"
	"github.com/mkettering/foreman/internal/notify"
	"github.com/mkettering/foreman/internal/store"
)

// Escalator files follow-up bug-fix requests for terminal failures. Filing is
// best-effort: the original failure is already recorded on the request, and a
// broken escalation path must not mask it.
type Escalator struct {
	DB       *gorm.DB
	Notifier *notify.Notifier
}

// FileBugFix creates a bug_fix request against the maintenance project,
// prioritized ahead of normal work, describing the failure. It also sends an
// operator notification. Errors are logged, never returned.
func (e *Escalator) FileBugFix(ctx context.Context, view *store.RequestView, errText string) {
	if e == nil || e.DB == nil {
		return
	}

	title := fmt.Sprintf("Request %d (%s) failed in %s phase", view.ReqID, view.Name, view.Phase)
	e.Notifier.Send(ctx, notify.Event{
		Title:    title,
		Body:     errText,
		Severity: notify.SeverityError,
		Fields: []notify.Field{
			{Name: "Project", Value: view.PrjName},
			{Name: "Phase", Value: string(view.Phase)},
		},
	})

	// A failing maintenance request must not spawn another maintenance
	// request, or a persistent failure would grow the queue forever.
	if view.PrjName == db.MaintenanceProjectName {
		return
	}

	maint, err := store.GetProjectByName(e.DB, db.MaintenanceProjectName)
	if err != nil {
		log.Printf("loop: escalation skipped, no maintenance project: %v", err)
		return
	}

	prompt := fmt.Sprintf(
		"Investigate and fix the failure of request %d (%q) in project %q.\n"+
			"It failed during the %s phase with:\n\n%s\n\n"+
			"Work in the original code directory: %s\n",
		view.ReqID, view.Name, view.PrjName, view.Phase, errText, view.EffectiveCodeDir())

	req := models.Request{
		PrjID:    maint.PrjID,
		Name:     fmt.Sprintf("fix: %s (req %d)", truncate(view.Name, 96), view.ReqID),
		Prompt:   prompt,
		Type:     models.TypeBugFix,
		Priority: models.EscalationPriority,
		CodeDir:  view.EffectiveCodeDir(),
	}
	if err := store.CreateRequest(e.DB, &req); err != nil {
		log.Printf("loop: file escalation for request %d: %v", view.ReqID, err)
		return
	}
	log.Printf("loop: filed escalation request %d for failed request %d", req.ReqID, view.ReqID)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
