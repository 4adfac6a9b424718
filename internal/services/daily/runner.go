package daily

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Clock interface {
	Day() int64
}

type Metrics interface {
	RecordTask(task string, took time.Duration)
	SetDay(day int64)
}

// TaskFunc does one day's worth of work. It must be safe to call twice for
// the same day.
type TaskFunc func(ctx context.Context, day int64) error

type task struct {
	name string
	run  TaskFunc
}

// Runner drives the registered tasks once per in-game day, in
// registration order.
type Runner struct {
	clock   Clock
	metrics Metrics

	mu      sync.Mutex
	tasks   []task
	lastDay int64
	started bool
}

func New(clock Clock, metrics Metrics) *Runner {
	return &Runner{clock: clock, metrics: metrics, lastDay: -1}
}

func (r *Runner) Add(name string, fn TaskFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = append(r.tasks, task{name: name, run: fn})
}

// LastDay is the most recent day fully handed to the tasks, or -1.
func (r *Runner) LastDay() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastDay
}

// Poll runs every day between the last processed one and the clock's
// current day. The first poll after start runs the current day only.
func (r *Runner) Poll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Day()

	from := r.lastDay + 1
	if !r.started {
		from = now
	}

	for day := from; day <= now; day++ {
		err := r.runDay(ctx, day)
		if err != nil {
			return err
		}

		r.lastDay = day
		r.started = true
	}

	return nil
}

// RunDay runs all tasks for day regardless of the clock.
func (r *Runner) RunDay(ctx context.Context, day int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.runDay(ctx, day)
}

// runDay keeps going when a task fails; only cancellation stops it early.
func (r *Runner) runDay(ctx context.Context, day int64) error {
	slog.InfoContext(ctx, "daily processing started", "day", day)

	var errs []error

	for _, t := range r.tasks {
		err := ctx.Err()
		if err != nil {
			errs = append(errs, fmt.Errorf("day %d: %w", day, err))
			return errors.Join(errs...)
		}

		start := time.Now()
		err = t.run(ctx, day)
		took := time.Since(start)

		if r.metrics != nil {
			r.metrics.RecordTask(t.name, took)
		}

		if err != nil {
			slog.ErrorContext(ctx, "daily task failed", "task", t.name, "day", day, "error", err)
			errs = append(errs, fmt.Errorf("task %s: %w", t.name, err))

			if ctx.Err() != nil {
				return errors.Join(errs...)
			}

			continue
		}

		slog.DebugContext(ctx, "daily task done", "task", t.name, "day", day, "took", took)
	}

	if r.metrics != nil {
		r.metrics.SetDay(day)
	}

	if len(errs) > 0 {
		slog.WarnContext(ctx, "daily processing finished with errors", "day", day, "errors", len(errs))
	}

	return nil
}

// Run polls the clock every interval until ctx ends.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		err := r.Poll(ctx)
		if err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "daily poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
