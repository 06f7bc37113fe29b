// Package ticker drives the engine: it periodically enumerates due
// activities and active stratagems and invokes their processors. Invocation
// is at-least-once and not necessarily ordered; the processors carry the
// idempotence and deferral logic that makes that safe.
package ticker

import (
	"log/slog"
	"sync/atomic"
	"time"

	"rialto/internal/activity"
	"rialto/internal/model"
	"rialto/internal/store"
	"rialto/internal/stratagem"
)

// Driver runs the scheduling loop.
type Driver struct {
	Activities store.ActivityRepo
	Stratagems store.StratagemRepo
	Processor  *activity.Processor
	StratProc  *stratagem.Processor
	Interval   time.Duration
	Now        func() time.Time

	running atomic.Bool
}

func (d *Driver) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// TickReport summarizes one pass over due work.
type TickReport struct {
	Concluded int
	Failed    int
	Deferred  int
	Skipped   int
	Ticked    int // Stratagems processed
}

// RunOnce processes everything due at the given time: activities first,
// ordered by priority then start time, then one tick per active stratagem.
// Deferred activities stay in created status and come back next pass.
func (d *Driver) RunOnce(now time.Time) TickReport {
	var report TickReport

	due, err := d.Activities.DueActivities(now)
	if err != nil {
		slog.Error("tick: listing due activities failed", "error", err)
	}
	for _, a := range due {
		res, err := d.Processor.Execute(a)
		switch res.Outcome {
		case activity.OutcomeConcluded:
			report.Concluded++
		case activity.OutcomeFailed:
			report.Failed++
		case activity.OutcomeDeferred:
			report.Deferred++
		case activity.OutcomeNoop:
			report.Skipped++
		}
		if err != nil && res.Outcome != activity.OutcomeFailed {
			// Failed outcomes already logged themselves; this is store or
			// planner trouble worth a separate line.
			slog.Error("tick: activity execution error",
				"activity", a.ID, "type", a.Type, "error", err)
		}
	}

	active, err := d.Stratagems.ActiveStratagems()
	if err != nil {
		slog.Error("tick: listing active stratagems failed", "error", err)
	}
	for _, s := range active {
		if _, err := d.StratProc.Tick(s, now); err != nil {
			slog.Error("tick: stratagem error", "stratagem", s.ID, "type", s.Type, "error", err)
		}
		report.Ticked++
	}

	if report.Concluded+report.Failed+report.Deferred+report.Ticked > 0 {
		slog.Info("tick complete",
			"concluded", report.Concluded, "failed", report.Failed,
			"deferred", report.Deferred, "stratagems", report.Ticked)
	}
	return report
}

// Run loops RunOnce at the configured interval until Stop is called.
// Blocks; start it in a goroutine.
func (d *Driver) Run() {
	d.running.Store(true)
	interval := d.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	slog.Info("tick driver started", "interval", interval)

	for d.running.Load() {
		start := time.Now()
		d.RunOnce(d.now())

		elapsed := time.Since(start)
		if elapsed < interval {
			time.Sleep(interval - elapsed)
		}
	}
	slog.Info("tick driver stopped")
}

// Stop halts the loop after the current pass.
func (d *Driver) Stop() {
	d.running.Store(false)
}

// Persist stores a planned chain in dependency order. A failure partway
// leaves earlier records in place; their dependents were never written, so
// the chain simply ends early.
func Persist(repo store.ActivityRepo, plan []*model.Activity) error {
	for _, a := range plan {
		if err := repo.CreateActivity(a); err != nil {
			return err
		}
	}
	return nil
}
