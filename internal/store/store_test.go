package store

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mkettering/foreman/internal/models"
)

// testDB creates an in-memory SQLite database with all required tables.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.Project{},
		&models.Request{},
		&models.Infrastructure{},
		&models.RequestInfrastructure{},
		&models.Learning{},
		&models.InfraOption{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func mustProject(t *testing.T, gdb *gorm.DB, name string) *models.Project {
	t.Helper()
	prj := models.Project{Name: name}
	if err := CreateProject(gdb, &prj); err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	return &prj
}

func mustRequest(t *testing.T, gdb *gorm.DB, prjID uint, name string, priority int) *models.Request {
	t.Helper()
	req := models.Request{PrjID: prjID, Name: name, Prompt: "do " + name, Priority: priority}
	if err := CreateRequest(gdb, &req); err != nil {
		t.Fatalf("create request %s: %v", name, err)
	}
	return &req
}

func TestCreateProjectDuplicateName(t *testing.T) {
	gdb := testDB(t)
	mustProject(t, gdb, "alpha")

	dup := models.Project{Name: "alpha"}
	err := CreateProject(gdb, &dup)
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestCreateRequestDefaults(t *testing.T) {
	gdb := testDB(t)
	prj := mustProject(t, gdb, "alpha")

	req := models.Request{PrjID: prj.PrjID, Name: "r1", Prompt: "build it"}
	if err := CreateRequest(gdb, &req); err != nil {
		t.Fatalf("create request: %v", err)
	}
	if req.Phase != models.PhasePlan {
		t.Errorf("phase = %s, want plan", req.Phase)
	}
	if req.Status != models.StatusTBD {
		t.Errorf("status = %s, want tbd", req.Status)
	}
	if req.Priority != models.DefaultPriority {
		t.Errorf("priority = %d, want %d", req.Priority, models.DefaultPriority)
	}
	if req.Type != models.TypeNewFeature {
		t.Errorf("type = %s, want new_feature", req.Type)
	}
}

func TestCreateRequestUnknownProject(t *testing.T) {
	gdb := testDB(t)
	req := models.Request{PrjID: 999, Name: "r1", Prompt: "x"}
	if err := CreateRequest(gdb, &req); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimNextOrdering(t *testing.T) {
	gdb := testDB(t)
	prj := mustProject(t, gdb, "alpha")

	low := mustRequest(t, gdb, prj.PrjID, "low", 8)
	high := mustRequest(t, gdb, prj.PrjID, "high", 1)
	mid := mustRequest(t, gdb, prj.PrjID, "mid", 5)

	want := []uint{high.ReqID, mid.ReqID, low.ReqID}
	for i, id := range want {
		view, err := ClaimNext(gdb)
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		if view.ReqID != id {
			t.Fatalf("claim %d = request %d, want %d", i, view.ReqID, id)
		}
		if view.Status != models.StatusWIP {
			t.Errorf("claimed status = %s, want wip", view.Status)
		}
	}

	if _, err := ClaimNext(gdb); !errors.Is(err, ErrNoPending) {
		t.Fatalf("expected ErrNoPending on empty queue, got %v", err)
	}
}

func TestClaimNextTieBreakByTouch(t *testing.T) {
	gdb := testDB(t)
	prj := mustProject(t, gdb, "alpha")

	older := mustRequest(t, gdb, prj.PrjID, "older", 5)
	newer := mustRequest(t, gdb, prj.PrjID, "newer", 5)

	// Same priority, so the stale touch timestamp goes first.
	past := time.Now().Add(-time.Hour)
	if err := gdb.Model(&models.Request{}).Where("reqid = ?", older.ReqID).
		Update("reqtouchts", past).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	view, err := ClaimNext(gdb)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if view.ReqID != older.ReqID {
		t.Fatalf("claimed %d, want older request %d (newer is %d)", view.ReqID, older.ReqID, newer.ReqID)
	}
}

func TestClaimNextSkipsConcurrentlyClaimedRow(t *testing.T) {
	gdb := testDB(t)
	prj := mustProject(t, gdb, "alpha")

	first := mustRequest(t, gdb, prj.PrjID, "first", 1)
	second := mustRequest(t, gdb, prj.PrjID, "second", 5)

	// Simulate another instance winning the top row between select and claim:
	// the row is already wip, so the conditional update misses and the claim
	// loop must fall through to the next pending request.
	if err := gdb.Model(&models.Request{}).Where("reqid = ?", first.ReqID).
		Update("reqstatus", models.StatusWIP).Error; err != nil {
		t.Fatalf("pre-claim: %v", err)
	}

	view, err := ClaimNext(gdb)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if view.ReqID != second.ReqID {
		t.Fatalf("claimed %d, want %d", view.ReqID, second.ReqID)
	}
}

func TestClaimClearsError(t *testing.T) {
	gdb := testDB(t)
	prj := mustProject(t, gdb, "alpha")
	req := mustRequest(t, gdb, prj.PrjID, "r1", 5)

	if err := SetError(gdb, req.ReqID, "previous failure"); err != nil {
		t.Fatalf("set error: %v", err)
	}
	view, err := ClaimNext(gdb)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if view.LastError != "" {
		t.Errorf("claimed request still carries error %q", view.LastError)
	}
	got, err := GetRequest(gdb, req.ReqID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastError != "" {
		t.Errorf("stored error = %q, want empty", got.LastError)
	}
}

func TestRequestViewJoinsProjectFields(t *testing.T) {
	gdb := testDB(t)
	prj := models.Project{Name: "alpha", CodeDir: "/srv/alpha", Model: "opus"}
	if err := CreateProject(gdb, &prj); err != nil {
		t.Fatalf("create project: %v", err)
	}
	req := mustRequest(t, gdb, prj.PrjID, "r1", 5)

	view, err := GetRequestView(gdb, req.ReqID)
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	if view.PrjName != "alpha" {
		t.Errorf("prjname = %q", view.PrjName)
	}
	if view.PrjModel != "opus" {
		t.Errorf("prjmodel = %q", view.PrjModel)
	}
	if view.EffectiveCodeDir() != "/srv/alpha" {
		t.Errorf("effective code dir = %q, want project default", view.EffectiveCodeDir())
	}

	// Request override wins.
	dir := "/srv/feature"
	if err := UpdateRequest(gdb, req.ReqID, RequestUpdate{CodeDir: &dir}); err != nil {
		t.Fatalf("update: %v", err)
	}
	view, err = GetRequestView(gdb, req.ReqID)
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	if view.EffectiveCodeDir() != "/srv/feature" {
		t.Errorf("effective code dir = %q, want request override", view.EffectiveCodeDir())
	}
}

func TestTestRetriesIncrementAndReset(t *testing.T) {
	gdb := testDB(t)
	prj := mustProject(t, gdb, "alpha")
	req := mustRequest(t, gdb, prj.PrjID, "r1", 5)

	for want := 1; want <= 3; want++ {
		got, err := IncrementTestRetries(gdb, req.ReqID)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if got != want {
			t.Fatalf("retries = %d, want %d", got, want)
		}
	}

	if err := ResetTestRetries(gdb, req.ReqID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got, err := GetRequest(gdb, req.ReqID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TestRetries != 0 {
		t.Errorf("retries after reset = %d", got.TestRetries)
	}
}

func TestEffectiveInfrastructureMerge(t *testing.T) {
	gdb := testDB(t)
	prj := mustProject(t, gdb, "alpha")
	req := mustRequest(t, gdb, prj.PrjID, "r1", 5)

	for _, inf := range []models.Infrastructure{
		{PrjID: prj.PrjID, Type: models.InfraCompute, Provider: models.ProviderAWS, Value: "lambda"},
		{PrjID: prj.PrjID, Type: models.InfraStorage, Provider: models.ProviderAWS, Value: "s3"},
	} {
		inf := inf
		if err := AddProjectInfra(gdb, &inf); err != nil {
			t.Fatalf("add project infra: %v", err)
		}
	}
	override := models.RequestInfrastructure{
		ReqID: req.ReqID, Type: models.InfraCompute, Provider: models.ProviderLocal, Value: "local",
	}
	if err := AddRequestInfra(gdb, &override); err != nil {
		t.Fatalf("add request infra: %v", err)
	}

	entries, err := EffectiveInfrastructure(gdb, req.ReqID)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	byType := map[models.InfraType]models.EffectiveInfra{}
	for _, e := range entries {
		byType[e.Type] = e
	}
	if c := byType[models.InfraCompute]; c.Provider != models.ProviderLocal || c.Source != "request" {
		t.Errorf("compute = %+v, want request-level local override", c)
	}
	if s := byType[models.InfraStorage]; s.Provider != models.ProviderAWS || s.Source != "project" {
		t.Errorf("storage = %+v, want project-level aws", s)
	}
}

func TestLearningsWithGlobal(t *testing.T) {
	gdb := testDB(t)
	prj := mustProject(t, gdb, "alpha")
	other := mustProject(t, gdb, "beta")

	if err := AddLearning(gdb, int(prj.PrjID), "project note"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := AddLearning(gdb, models.GlobalLearningID, "global note"); err != nil {
		t.Fatalf("add global: %v", err)
	}
	if err := AddLearning(gdb, int(other.PrjID), "other note"); err != nil {
		t.Fatalf("add other: %v", err)
	}

	rows, err := LearningsWithGlobal(gdb, int(prj.PrjID))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d learnings, want 2", len(rows))
	}
	scopes := map[string]bool{}
	for _, l := range rows {
		scopes[l.Scope] = true
	}
	if !scopes["project"] || !scopes["global"] {
		t.Errorf("scopes = %v, want project and global", scopes)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	gdb := testDB(t)
	prj := mustProject(t, gdb, "alpha")
	req := mustRequest(t, gdb, prj.PrjID, "r1", 5)

	inf := models.Infrastructure{PrjID: prj.PrjID, Type: models.InfraCompute}
	if err := AddProjectInfra(gdb, &inf); err != nil {
		t.Fatalf("add infra: %v", err)
	}
	rinf := models.RequestInfrastructure{ReqID: req.ReqID, Type: models.InfraStorage}
	if err := AddRequestInfra(gdb, &rinf); err != nil {
		t.Fatalf("add request infra: %v", err)
	}
	if err := AddLearning(gdb, int(prj.PrjID), "note"); err != nil {
		t.Fatalf("add learning: %v", err)
	}
	if err := AddLearning(gdb, models.GlobalLearningID, "keep me"); err != nil {
		t.Fatalf("add global learning: %v", err)
	}

	if err := DeleteProject(gdb, prj.PrjID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var count int64
	for _, m := range []interface{}{&models.Request{}, &models.Infrastructure{}, &models.RequestInfrastructure{}} {
		if err := gdb.Model(m).Count(&count).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 0 {
			t.Errorf("%T rows remaining: %d", m, count)
		}
	}
	if err := gdb.Model(&models.Learning{}).Count(&count).Error; err != nil {
		t.Fatalf("count learnings: %v", err)
	}
	if count != 1 {
		t.Errorf("learnings remaining = %d, want the global one only", count)
	}
}

func TestRequeue(t *testing.T) {
	gdb := testDB(t)
	prj := mustProject(t, gdb, "alpha")
	req := mustRequest(t, gdb, prj.PrjID, "r1", 5)

	if _, err := ClaimNext(gdb); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := Requeue(gdb, req.ReqID); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	got, err := GetRequest(gdb, req.ReqID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusTBD {
		t.Errorf("status = %s, want tbd", got.Status)
	}
}
