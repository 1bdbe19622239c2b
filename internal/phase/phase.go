// Package phase implements the request lifecycle state machine: the fixed
// phase sequence, the conditional skips, and the per-phase agent settings.
package phase

import (
	"time"

	"github.com/mkettering/foreman/internal/models"
)

// successor maps each phase to its unconditional next phase. Skips are
// layered on top in Next.
var successor = map[models.Phase]models.Phase{
	models.PhasePlan:     models.PhaseDev,
	models.PhaseDev:      models.PhaseTest,
	models.PhaseTest:     models.PhaseDeploy,
	models.PhaseDeploy:   models.PhaseVerify,
	models.PhaseVerify:   models.PhaseDocument,
	models.PhaseDocument: models.PhaseCommit,
	models.PhaseCommit:   models.PhaseComplete,
	models.PhaseComplete: models.PhaseComplete,
}

// timeouts bound each agent invocation. Dev gets the longest window since it
// does the bulk of the work.
var timeouts = map[models.Phase]time.Duration{
	models.PhasePlan:     30 * time.Minute,
	models.PhaseDev:      4 * time.Hour,
	models.PhaseTest:     1 * time.Hour,
	models.PhaseDeploy:   30 * time.Minute,
	models.PhaseVerify:   30 * time.Minute,
	models.PhaseDocument: 30 * time.Minute,
	models.PhaseCommit:   10 * time.Minute,
}

// tools is the agent tool allow-list per phase. Phases that only inspect get
// read-only tools.
var tools = map[models.Phase][]string{
	models.PhasePlan:     {"Read", "Glob", "Grep"},
	models.PhaseDev:      {"Read", "Write", "Edit", "Bash", "Glob", "Grep"},
	models.PhaseTest:     {"Read", "Bash", "Glob", "Grep"},
	models.PhaseDeploy:   {"Bash"},
	models.PhaseVerify:   {"Read", "Bash", "WebFetch", "Glob", "Grep"},
	models.PhaseDocument: {"Read", "Write"},
	models.PhaseCommit:   {"Bash", "Read", "Grep"},
}

// Timeout returns the agent invocation timeout for a phase.
func Timeout(p models.Phase) time.Duration {
	if d, ok := timeouts[p]; ok {
		return d
	}
	return 30 * time.Minute
}

// Tools returns the agent tool allow-list for a phase.
func Tools(p models.Phase) []string {
	if t, ok := tools[p]; ok {
		return t
	}
	return []string{"Read"}
}
