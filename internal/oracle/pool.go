package oracle

import (
	"context"
	"log/slog"
	"sync"

	"rialto/internal/activity"
	"rialto/internal/model"
)

// Task is one oracle consultation. The result arrives on Done, so callers
// can wait, time out, or collect — nothing disappears into a goroutine.
type Task struct {
	Citizen *model.Citizen
	Done    chan TaskResult

	ctx context.Context
}

// TaskResult carries the proposal or the error, never both.
type TaskResult struct {
	Intent *activity.Intent
	Err    error
}

// Pool runs oracle consultations on a fixed number of workers.
type Pool struct {
	oracle Oracle
	tasks  chan *Task
	wg     sync.WaitGroup
}

// NewPool starts a pool with the given worker count.
func NewPool(o Oracle, workers int) *Pool {
	if workers <= 0 {
		workers = 2
	}
	p := &Pool{
		oracle: o,
		tasks:  make(chan *Task, workers*4),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		intent, err := p.oracle.ProposeIntent(task.ctx, task.Citizen)
		if err != nil && err != ErrNoProposal {
			slog.Warn("oracle consultation failed",
				"citizen", task.Citizen.Username, "error", err)
		}
		task.Done <- TaskResult{Intent: intent, Err: err}
	}
}

// Submit queues a consultation and returns the task. Returns false if the
// queue is full; the caller should just try again next tick.
func (p *Pool) Submit(ctx context.Context, citizen *model.Citizen) (*Task, bool) {
	task := &Task{
		Citizen: citizen,
		Done:    make(chan TaskResult, 1),
		ctx:     ctx,
	}
	select {
	case p.tasks <- task:
		return task, true
	default:
		return nil, false
	}
}

// Close stops accepting tasks and waits for in-flight work to finish.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}
