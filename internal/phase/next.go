package phase

import (
	"strings"

	"github.com/mkettering/foreman/internal/models"
)

// CommitPolicy carries the three override levels consulted when deciding
// whether the commit phase runs. Request beats project beats global.
type CommitPolicy struct {
	RequestOverride *int // models.CommitForceSkip or models.CommitForceInclude
	ProjectOverride *int // models.CommitDisabled or models.CommitEnabled
	GlobalEnabled   bool // the settings default
}

// commitResolvers returns the override chain, highest precedence first. Each
// resolver returns nil to defer to the next level, so adding a level is a
// one-line change.
func (p CommitPolicy) commitResolvers() []func() *bool {
	return []func() *bool{
		func() *bool {
			if p.RequestOverride == nil {
				return nil
			}
			switch *p.RequestOverride {
			case models.CommitForceSkip:
				return boolPtr(false)
			case models.CommitForceInclude:
				return boolPtr(true)
			}
			return nil
		},
		func() *bool {
			if p.ProjectOverride == nil {
				return nil
			}
			return boolPtr(*p.ProjectOverride != models.CommitDisabled)
		},
		func() *bool { return boolPtr(p.GlobalEnabled) },
	}
}

// Included resolves the commit policy chain.
func (p CommitPolicy) Included() bool {
	for _, resolve := range p.commitResolvers() {
		if v := resolve(); v != nil {
			return *v
		}
	}
	return true
}

// LocalOnly reports whether every infrastructure entry is local. No
// infrastructure at all counts as local: infra absence is not an infra
// requirement.
func LocalOnly(infra []models.EffectiveInfra) bool {
	for _, e := range infra {
		value := strings.ToLower(e.Value)
		if e.Provider != models.ProviderLocal && !strings.Contains(value, "local") {
			return false
		}
	}
	return true
}

// Next returns the phase that follows current for a request with the given
// effective infrastructure and commit policy. Deploy and verify are skipped
// straight to document for local-only requests; the commit phase is skipped
// to complete when the policy excludes it. Complete is terminal.
func Next(current models.Phase, infra []models.EffectiveInfra, commit CommitPolicy) models.Phase {
	next, ok := successor[current]
	if !ok {
		return models.PhaseComplete
	}

	if (next == models.PhaseDeploy || next == models.PhaseVerify) && LocalOnly(infra) {
		return models.PhaseDocument
	}

	if next == models.PhaseCommit && !commit.Included() {
		return models.PhaseComplete
	}

	return next
}

func boolPtr(b bool) *bool { return &b }
