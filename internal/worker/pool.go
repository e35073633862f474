package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type schedule struct {
	interval time.Duration
	task     Task
}

// Pool manages one goroutine per registered task. A random workerID is
// attached to every log line so concurrent processes can be told apart.
type Pool struct {
	workerID string
	mu       sync.RWMutex
	tasks    map[string]schedule
}

// New creates an empty Pool.
func New() *Pool {
	return &Pool{
		workerID: uuid.New().String(),
		tasks:    make(map[string]schedule),
	}
}

// Register schedules t under name every interval. Must be called before
// Start. A non-positive interval disables the task.
func (p *Pool) Register(name string, interval time.Duration, t Task) {
	if interval <= 0 {
		slog.Info("worker task disabled", "task", name)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks[name] = schedule{interval: interval, task: t}
}

// Len returns the number of registered tasks.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tasks)
}

// Start launches every registered task and blocks until ctx is cancelled.
// An in-flight run completes before Start returns.
func (p *Pool) Start(ctx context.Context) {
	p.mu.RLock()
	tasks := make(map[string]schedule, len(p.tasks))
	for name, s := range p.tasks {
		tasks[name] = s
	}
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for name, s := range tasks {
		wg.Add(1)
		go func(name string, s schedule) {
			defer wg.Done()
			p.runTask(ctx, name, s)
		}(name, s)
	}

	wg.Wait()
	slog.Info("worker pool stopped", "worker_id", p.workerID)
}

// runTask runs s.task immediately and then on every tick until ctx is
// cancelled. Uses time.NewTicker (not time.After) to avoid timer leaks.
func (p *Pool) runTask(ctx context.Context, name string, s schedule) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("worker task started", "task", name, "interval", s.interval, "worker_id", p.workerID)

	p.runOnce(ctx, name, s.task)
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker task stopping", "task", name)
			return
		case <-ticker.C:
			p.runOnce(ctx, name, s.task)
		}
	}
}

// runOnce executes one run. Errors are logged but do not stop the loop.
func (p *Pool) runOnce(ctx context.Context, name string, t Task) {
	if ctx.Err() != nil {
		return
	}
	if err := t(ctx); err != nil {
		slog.Error("worker task failed", "task", name, "worker_id", p.workerID, "error", err)
	}
}
