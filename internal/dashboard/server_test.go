package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mkettering/foreman/internal/config"
	"github.com/mkettering/foreman/internal/db"
	"github.com/mkettering/foreman/internal/models"
	"github.com/mkettering/foreman/internal/settings"
	"github.com/mkettering/foreman/internal/store"
)

func testRouter(t *testing.T) (*gin.Engine, *gorm.DB, *config.Config) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg, err := config.Parse([]byte("data_dir: " + t.TempDir() + "\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerRoutes(router, gdb, cfg)
	return router, gdb, cfg
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedQueue(t *testing.T, gdb *gorm.DB) (*models.Project, *models.Request) {
	t.Helper()
	prj := models.Project{Name: "shop"}
	if err := store.CreateProject(gdb, &prj); err != nil {
		t.Fatalf("create project: %v", err)
	}
	req := models.Request{PrjID: prj.PrjID, Name: "checkout", Prompt: "build it"}
	if err := store.CreateRequest(gdb, &req); err != nil {
		t.Fatalf("create request: %v", err)
	}
	return &prj, &req
}

func TestStatusEndpoint(t *testing.T) {
	router, gdb, _ := testRouter(t)
	seedQueue(t, gdb)

	w := doRequest(t, router, http.MethodGet, "/api/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body struct {
		Queue         QueueSummary `json:"queue"`
		DaemonRunning bool         `json:"daemon_running"`
		LoopPaused    bool         `json:"loop_paused"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Queue.Pending != 1 || body.Queue.Total != 1 {
		t.Errorf("queue = %+v", body.Queue)
	}
	if body.DaemonRunning {
		t.Error("no daemon is running in tests")
	}
}

func TestRequestEndpoints(t *testing.T) {
	router, gdb, _ := testRouter(t)
	prj, req := seedQueue(t, gdb)

	w := doRequest(t, router, http.MethodGet, "/api/requests", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list []store.RequestView
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].PrjName != prj.Name {
		t.Errorf("list = %+v", list)
	}

	w = doRequest(t, router, http.MethodGet, "/api/requests/999", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing request status = %d, want 404", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/api/requests/abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/api/requests?status=bogus", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad status filter = %d, want 400", w.Code)
	}

	_ = req
}

func TestPauseResumeEndpoints(t *testing.T) {
	router, _, cfg := testRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/loop/pause", "")
	if w.Code != http.StatusOK {
		t.Fatalf("pause status = %d", w.Code)
	}
	if s := settings.Load(cfg.SettingsPath()); !s.LoopPaused {
		t.Error("pause did not persist")
	}

	w = doRequest(t, router, http.MethodPost, "/api/loop/resume", "")
	if w.Code != http.StatusOK {
		t.Fatalf("resume status = %d", w.Code)
	}
	if s := settings.Load(cfg.SettingsPath()); s.LoopPaused {
		t.Error("resume did not persist")
	}
}

func TestSettingsUpdateMergesPartialBody(t *testing.T) {
	router, _, cfg := testRouter(t)

	w := doRequest(t, router, http.MethodPut, "/api/settings", `{"model": "claude-opus-4"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}

	s := settings.Load(cfg.SettingsPath())
	if s.Model != "claude-opus-4" {
		t.Errorf("model = %q", s.Model)
	}
	// Untouched fields keep their defaults.
	if s.MaxTurns != settings.Defaults().MaxTurns {
		t.Errorf("max turns = %d, want default", s.MaxTurns)
	}
}

func TestProjectDetailEndpoint(t *testing.T) {
	router, gdb, _ := testRouter(t)
	prj, _ := seedQueue(t, gdb)

	w := doRequest(t, router, http.MethodGet, "/api/projects/"+strconv.Itoa(int(prj.PrjID)), "")
	if w.Code != http.StatusOK {
		t.Fatalf("detail status = %d", w.Code)
	}
	var body struct {
		Project  models.Project      `json:"project"`
		Requests []store.RequestView `json:"requests"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Project.Name != "shop" || len(body.Requests) != 1 {
		t.Errorf("detail = %+v", body)
	}
}
