package phase

import (
	"testing"
	"time"

	"github.com/mkettering/foreman/internal/models"
)

func intPtr(v int) *int { return &v }

func cloudInfra() []models.EffectiveInfra {
	return []models.EffectiveInfra{
		{Type: models.InfraCompute, Provider: models.ProviderAWS, Value: "lambda"},
	}
}

func TestNextFullSequenceWithCloudInfra(t *testing.T) {
	commit := CommitPolicy{GlobalEnabled: true}
	infra := cloudInfra()

	want := map[models.Phase]models.Phase{
		models.PhasePlan:     models.PhaseDev,
		models.PhaseDev:      models.PhaseTest,
		models.PhaseTest:     models.PhaseDeploy,
		models.PhaseDeploy:   models.PhaseVerify,
		models.PhaseVerify:   models.PhaseDocument,
		models.PhaseDocument: models.PhaseCommit,
		models.PhaseCommit:   models.PhaseComplete,
		models.PhaseComplete: models.PhaseComplete,
	}
	for current, next := range want {
		if got := Next(current, infra, commit); got != next {
			t.Errorf("Next(%s) = %s, want %s", current, got, next)
		}
	}
}

func TestNextSkipsDeployAndVerifyForLocalOnly(t *testing.T) {
	commit := CommitPolicy{GlobalEnabled: true}

	// No infra at all counts as local.
	if got := Next(models.PhaseTest, nil, commit); got != models.PhaseDocument {
		t.Errorf("Next(test, no infra) = %s, want document", got)
	}

	local := []models.EffectiveInfra{
		{Type: models.InfraCompute, Provider: models.ProviderLocal},
	}
	if got := Next(models.PhaseTest, local, commit); got != models.PhaseDocument {
		t.Errorf("Next(test, local infra) = %s, want document", got)
	}

	// A non-local provider whose value mentions local still counts as local.
	localValue := []models.EffectiveInfra{
		{Type: models.InfraStorage, Provider: models.ProviderContainer, Value: "localstack"},
	}
	if got := Next(models.PhaseTest, localValue, commit); got != models.PhaseDocument {
		t.Errorf("Next(test, localstack) = %s, want document", got)
	}

	// One cloud entry makes the whole request non-local.
	mixed := append(local, cloudInfra()...)
	if got := Next(models.PhaseTest, mixed, commit); got != models.PhaseDeploy {
		t.Errorf("Next(test, mixed infra) = %s, want deploy", got)
	}
}

func TestNextSkipsCommitWhenExcluded(t *testing.T) {
	excluded := CommitPolicy{GlobalEnabled: false}
	if got := Next(models.PhaseDocument, nil, excluded); got != models.PhaseComplete {
		t.Errorf("Next(document, commit off) = %s, want complete", got)
	}

	included := CommitPolicy{GlobalEnabled: true}
	if got := Next(models.PhaseDocument, nil, included); got != models.PhaseCommit {
		t.Errorf("Next(document, commit on) = %s, want commit", got)
	}
}

func TestCommitPolicyPrecedence(t *testing.T) {
	cases := []struct {
		name   string
		policy CommitPolicy
		want   bool
	}{
		{"all defer, global on", CommitPolicy{GlobalEnabled: true}, true},
		{"all defer, global off", CommitPolicy{GlobalEnabled: false}, false},
		{"project enables over global off",
			CommitPolicy{ProjectOverride: intPtr(models.CommitEnabled), GlobalEnabled: false}, true},
		{"project disables over global on",
			CommitPolicy{ProjectOverride: intPtr(models.CommitDisabled), GlobalEnabled: true}, false},
		{"request force-skip beats project enable",
			CommitPolicy{
				RequestOverride: intPtr(models.CommitForceSkip),
				ProjectOverride: intPtr(models.CommitEnabled),
				GlobalEnabled:   true,
			}, false},
		{"request force-include beats project disable",
			CommitPolicy{
				RequestOverride: intPtr(models.CommitForceInclude),
				ProjectOverride: intPtr(models.CommitDisabled),
				GlobalEnabled:   false,
			}, true},
		{"unknown request value defers to project",
			CommitPolicy{
				RequestOverride: intPtr(7),
				ProjectOverride: intPtr(models.CommitDisabled),
				GlobalEnabled:   true,
			}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.policy.Included(); got != tc.want {
				t.Errorf("Included() = %t, want %t", got, tc.want)
			}
		})
	}
}

func TestTimeoutAndToolsFallbacks(t *testing.T) {
	if Timeout(models.PhaseDev) != 4*time.Hour {
		t.Errorf("dev timeout = %s", Timeout(models.PhaseDev))
	}
	if Timeout("bogus") != 30*time.Minute {
		t.Errorf("unknown phase timeout = %s, want 30m default", Timeout("bogus"))
	}
	if len(Tools(models.PhaseDev)) == 0 {
		t.Error("dev tools empty")
	}
	if got := Tools("bogus"); len(got) != 1 || got[0] != "Read" {
		t.Errorf("unknown phase tools = %v, want read-only", got)
	}
}
