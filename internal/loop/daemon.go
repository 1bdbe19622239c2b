// Package loop implements the work loop: claiming pending requests, running
// their current phase through the agent, and transitioning them until they
// complete or fail.
package loop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/mkettering/foreman/internal/agent"
	"github.com/mkettering/foreman/internal/config"
	"github.com/mkettering/foreman/internal/docs"
	"github.com/mkettering/foreman/internal/notify"
	"github.com/mkettering/foreman/internal/prompt"
	"github.com/mkettering/foreman/internal/settings"
	"github.com/mkettering/foreman/internal/store"
)

// Counters is a snapshot of daemon activity for status displays.
type Counters struct {
	Iterations   int       `json:"iterations"`
	Processed    int       `json:"processed"`
	Completed    int       `json:"completed"`
	Failed       int       `json:"failed"`
	Paused       bool      `json:"paused"`
	RateLimited  bool      `json:"rate_limited"`
	CurrentReqID uint      `json:"current_request_id"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Daemon is the single-worker scheduler. One Daemon owns one Guard, so
// rate-limit cooldowns never leak across instances.
type Daemon struct {
	DB        *gorm.DB
	Cfg       *config.Config
	Processor *Processor
	Guard     *Guard
	Out       io.Writer

	mu          sync.Mutex
	counters    Counters
	cleanupCron string
	nextCleanup time.Time
}

// New wires a Daemon from its collaborators. Operator-facing progress lines
// go to out; diagnostics go to the standard logger.
func New(gdb *gorm.DB, cfg *config.Config, runner agent.Runner, notifier *notify.Notifier, out io.Writer) *Daemon {
	if out == nil {
		out = io.Discard
	}
	guard := NewGuard()
	esc := &Escalator{DB: gdb, Notifier: notifier}
	return &Daemon{
		DB:  gdb,
		Cfg: cfg,
		Processor: &Processor{
			DB:        gdb,
			Agent:     runner,
			Prompts:   prompt.NewBuilder(gdb, filepath.Join(cfg.DataDir, "prompts")),
			DocsDir:   cfg.DocsDir,
			Guard:     guard,
			Escalator: esc,
			Notifier:  notifier,
		},
		Guard: guard,
		Out:   out,
	}
}

// Run executes the loop until ctx is cancelled or the configured iteration
// cap is reached. Settings are reloaded from disk every pass, so pause,
// poll interval, and model changes take effect without a restart.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.Out, "daemon started (data dir %s)\n", d.Cfg.DataDir)
	d.mu.Lock()
	d.counters.StartedAt = time.Now()
	d.mu.Unlock()

	wasPaused := false
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(d.Out, "daemon stopped")
			return nil
		default:
		}

		set := settings.Load(d.Cfg.SettingsPath())
		poll := time.Duration(set.PollIntervalSecs) * time.Second

		d.mu.Lock()
		d.counters.Iterations++
		d.counters.Paused = set.LoopPaused
		d.counters.RateLimited = d.Guard.IsRateLimited()
		iterations := d.counters.Iterations
		d.mu.Unlock()

		if set.MaxIterations > 0 && iterations > set.MaxIterations {
			fmt.Fprintf(d.Out, "reached max iterations (%d), stopping\n", set.MaxIterations)
			return nil
		}

		if set.LoopPaused {
			if !wasPaused {
				fmt.Fprintln(d.Out, "loop paused")
				wasPaused = true
			}
			if !sleepWithContext(ctx, poll) {
				return nil
			}
			continue
		}
		if wasPaused {
			fmt.Fprintln(d.Out, "loop resumed")
			wasPaused = false
		}

		d.maybeCleanupDocs(set)

		if d.Guard.IsRateLimited() {
			wait := d.Guard.Remaining()
			if wait > poll {
				wait = poll
			}
			if !sleepWithContext(ctx, wait) {
				return nil
			}
			continue
		}

		if worked := d.iterate(ctx, set); !worked {
			if !sleepWithContext(ctx, poll) {
				return nil
			}
		}
	}
}

// iterate claims and processes at most one request. Returns false when the
// queue was empty. A panic in the loop body is contained to the iteration.
func (d *Daemon) iterate(ctx context.Context, set settings.Settings) (worked bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("loop: recovered panic in iteration: %v", r)
			worked = false
		}
	}()

	view, err := store.ClaimNext(d.DB)
	if err != nil {
		if !errors.Is(err, store.ErrNoPending) {
			log.Printf("loop: claim next request: %v", err)
		}
		return false
	}

	d.mu.Lock()
	d.counters.CurrentReqID = view.ReqID
	d.mu.Unlock()
	fmt.Fprintf(d.Out, "processing request %d (%s) in %s phase\n",
		view.ReqID, view.Name, view.Phase)

	outcome := d.Processor.Process(ctx, view, set)

	d.mu.Lock()
	d.counters.Processed++
	d.counters.CurrentReqID = 0
	d.counters.LastActivity = time.Now()
	switch outcome {
	case OutcomeCompleted:
		d.counters.Completed++
	case OutcomeFailed:
		d.counters.Failed++
	}
	d.mu.Unlock()

	switch outcome {
	case OutcomeCompleted:
		fmt.Fprintf(d.Out, "request %d complete\n", view.ReqID)
	case OutcomeFailed:
		fmt.Fprintf(d.Out, "request %d failed in %s phase\n", view.ReqID, view.Phase)
	case OutcomeRateLimited:
		fmt.Fprintf(d.Out, "rate limited, backing off %s\n", DefaultBackoff)
		return false
	}
	return true
}

// maybeCleanupDocs runs retention cleanup when the cron schedule fires. The
// schedule is re-read from settings so edits take effect between runs.
func (d *Daemon) maybeCleanupDocs(set settings.Settings) {
	if set.DocRetentionDays <= 0 || set.DocCleanupCron == "" {
		return
	}
	now := time.Now()

	d.mu.Lock()
	if set.DocCleanupCron != d.cleanupCron || d.nextCleanup.IsZero() {
		d.cleanupCron = set.DocCleanupCron
		d.nextCleanup = docs.NextCleanup(set.DocCleanupCron, now)
	}
	due := !d.nextCleanup.IsZero() && !now.Before(d.nextCleanup)
	if due {
		d.nextCleanup = docs.NextCleanup(set.DocCleanupCron, now)
	}
	d.mu.Unlock()

	if !due {
		return
	}
	deleted, err := docs.CleanupOld(d.Cfg.DocsDir, set.DocRetentionDays)
	if err != nil {
		log.Printf("loop: doc cleanup: %v", err)
		return
	}
	if deleted > 0 {
		fmt.Fprintf(d.Out, "doc cleanup removed %d file(s)\n", deleted)
	}
}

// Snapshot returns a copy of the activity counters.
func (d *Daemon) Snapshot() Counters {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counters
}

// sleepWithContext sleeps for dur, returning false if ctx was cancelled.
func sleepWithContext(ctx context.Context, dur time.Duration) bool {
	if dur <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
