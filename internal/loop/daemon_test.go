package loop

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/mkettering/foreman/internal/config"
	"github.com/mkettering/foreman/internal/models"
	"github.com/mkettering/foreman/internal/notify"
	"github.com/mkettering/foreman/internal/prompt"
	"github.com/mkettering/foreman/internal/settings"
	"github.com/mkettering/foreman/internal/store"
)

func testDaemon(t *testing.T, gdb *gorm.DB, runner *stubRunner, out *bytes.Buffer) (*Daemon, *config.Config) {
	t.Helper()
	cfg, err := config.Parse([]byte("data_dir: " + t.TempDir() + "\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	guard := NewGuard()
	d := &Daemon{
		DB:  gdb,
		Cfg: cfg,
		Processor: &Processor{
			DB:        gdb,
			Agent:     runner,
			Prompts:   prompt.NewBuilder(gdb, ""),
			DocsDir:   cfg.DocsDir,
			Guard:     guard,
			Escalator: &Escalator{DB: gdb, Notifier: notify.New()},
			Notifier:  notify.New(),
		},
		Guard: guard,
		Out:   out,
	}
	return d, cfg
}

func saveSettings(t *testing.T, cfg *config.Config, mutate func(*settings.Settings)) {
	t.Helper()
	s := settings.Defaults()
	mutate(&s)
	if err := settings.Save(cfg.SettingsPath(), s); err != nil {
		t.Fatalf("save settings: %v", err)
	}
}

func TestDaemonStopsAtMaxIterations(t *testing.T) {
	gdb := testDB(t)
	runner := &stubRunner{output: "ok"}
	var out bytes.Buffer
	d, cfg := testDaemon(t, gdb, runner, &out)
	saveSettings(t, cfg, func(s *settings.Settings) {
		s.MaxIterations = 1
		s.PollIntervalSecs = 1
	})

	seedRequest(t, gdb, t.TempDir())

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	snap := d.Snapshot()
	if snap.Processed != 1 {
		t.Errorf("processed = %d, want 1", snap.Processed)
	}
	if !strings.Contains(out.String(), "max iterations") {
		t.Errorf("output missing stop reason: %q", out.String())
	}

	// The request advanced out of plan.
	views, err := store.ListRequests(gdb, 0, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 || views[0].Phase != models.PhaseDev {
		t.Errorf("request state after one iteration: %+v", views)
	}
}

func TestDaemonPauseSkipsDispatch(t *testing.T) {
	gdb := testDB(t)
	runner := &stubRunner{output: "ok"}
	var out bytes.Buffer
	d, cfg := testDaemon(t, gdb, runner, &out)
	saveSettings(t, cfg, func(s *settings.Settings) {
		s.LoopPaused = true
		s.MaxIterations = 2
		s.PollIntervalSecs = 1
	})

	seedRequest(t, gdb, t.TempDir())

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}

	if len(runner.invocations) != 0 {
		t.Errorf("agent invoked %d times while paused", len(runner.invocations))
	}
	if !strings.Contains(out.String(), "loop paused") {
		t.Errorf("output missing pause notice: %q", out.String())
	}
}

func TestDaemonStopsOnContextCancel(t *testing.T) {
	gdb := testDB(t)
	runner := &stubRunner{output: "ok"}
	var out bytes.Buffer
	d, cfg := testDaemon(t, gdb, runner, &out)
	saveSettings(t, cfg, func(s *settings.Settings) {
		s.PollIntervalSecs = 1
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop on cancel")
	}
}

func TestSleepWithContext(t *testing.T) {
	if !sleepWithContext(context.Background(), time.Millisecond) {
		t.Error("uncancelled sleep reported cancellation")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepWithContext(ctx, time.Hour) {
		t.Error("cancelled sleep reported success")
	}
}
