package oracle

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"rialto/internal/activity"
	"rialto/internal/store"
	"rialto/internal/ticker"
)

// Advisor periodically consults the oracle for idle citizens and turns
// accepted proposals into persisted activity chains. Citizens with pending
// work are left alone; the treasury never acts on its own.
type Advisor struct {
	Citizens   store.CitizenRepo
	Activities store.ActivityRepo
	Creator    *activity.Creator
	Pool       *Pool
	Interval   time.Duration
	Treasury   string

	running atomic.Bool
}

// RunOnce consults the oracle for every idle citizen and plans whatever comes
// back. Proposals still pass the creator's full validation; a rejected one is
// logged and dropped.
func (a *Advisor) RunOnce(ctx context.Context) {
	citizens, err := a.Citizens.ListCitizens()
	if err != nil {
		slog.Error("advisor: listing citizens failed", "error", err)
		return
	}

	var tasks []*Task
	for _, c := range citizens {
		if c.Username == a.Treasury {
			continue
		}
		pending, err := a.Activities.PendingByCitizen(c.Username)
		if err != nil || len(pending) > 0 {
			continue
		}
		task, ok := a.Pool.Submit(ctx, c)
		if !ok {
			break // Queue full; the rest wait for the next round.
		}
		tasks = append(tasks, task)
	}

	for _, task := range tasks {
		res := <-task.Done
		if res.Err != nil || res.Intent == nil {
			continue
		}
		plan, err := a.Creator.Plan(*res.Intent)
		if err != nil {
			slog.Info("advisor: proposal rejected",
				"citizen", res.Intent.Citizen, "type", res.Intent.Type, "error", err)
			continue
		}
		if err := ticker.Persist(a.Activities, plan); err != nil {
			slog.Error("advisor: plan not persisted", "citizen", res.Intent.Citizen, "error", err)
			continue
		}
		slog.Info("advisor: plan accepted",
			"citizen", res.Intent.Citizen, "type", res.Intent.Type, "steps", len(plan))
	}
}

// Run loops RunOnce at the configured interval until Stop is called.
// Blocks; start it in a goroutine.
func (a *Advisor) Run() {
	a.running.Store(true)
	interval := a.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	slog.Info("oracle advisor started", "interval", interval)
	for a.running.Load() {
		a.RunOnce(context.Background())
		time.Sleep(interval)
	}
}

// Stop halts the loop after the current round.
func (a *Advisor) Stop() {
	a.running.Store(false)
}
