package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ErrRateLimited marks a provider response that asked us to slow down (HTTP 429).
var ErrRateLimited = errors.New("rate limited")

// IsRateLimited reports whether err carries ErrRateLimited.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// Task is one unit of work admitted by a Queue.
type Task func(ctx context.Context) (any, error)

// Config describes a single-resource admission budget.
type Config struct {
	Name string
	// MaxPerWindow tasks may start within any rolling Window.
	MaxPerWindow int
	Window       time.Duration
	// Gap is slept after every task regardless of window state.
	Gap time.Duration
	// Backoff is the retry ladder for ErrRateLimited; empty means no retries.
	Backoff []time.Duration
}

// Queue dispatches tasks strictly one at a time in submission order while
// keeping the start times within the configured budget.
type Queue struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	pending []*job
	running bool
	starts  []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type job struct {
	ctx     context.Context
	task    Task
	retries int
	done    chan result
}

type result struct {
	value any
	err   error
}

// NewQueue builds a queue; MaxPerWindow <= 0 disables the window check.
func NewQueue(cfg Config, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Queue{
		cfg:    cfg,
		logger: logger.With("queue", cfg.Name),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Submit enqueues task and waits for its final outcome.
func (q *Queue) Submit(ctx context.Context, task Task) (any, error) {
	if task == nil {
		return nil, fmt.Errorf("queue %s: nil task", q.cfg.Name)
	}
	j := &job{ctx: ctx, task: task, done: make(chan result, 1)}
	q.enqueue(j)

	select {
	case r := <-j.done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do is a typed wrapper around Queue.Submit.
func Do[T any](ctx context.Context, q *Queue, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := q.Submit(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}

// Pending returns the number of queued tasks not yet started.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) enqueue(j *job) {
	q.mu.Lock()
	q.pending = append(q.pending, j)
	if !q.running {
		q.running = true
		go q.drain()
	}
	q.mu.Unlock()
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.run(next)
	}
}

func (q *Queue) run(j *job) {
	if err := j.ctx.Err(); err != nil {
		j.done <- result{err: err}
		return
	}

	if err := q.waitForSlot(j.ctx); err != nil {
		j.done <- result{err: err}
		return
	}

	value, err := j.task(j.ctx)
	switch {
	case err != nil && IsRateLimited(err) && j.retries < len(q.cfg.Backoff):
		delay := q.cfg.Backoff[j.retries]
		j.retries++
		q.logger.Warn("rate limited, scheduling retry", "attempt", j.retries, "delay", delay)
		time.AfterFunc(delay, func() { q.enqueue(j) })
	case err != nil && IsRateLimited(err):
		j.done <- result{err: fmt.Errorf("queue %s: retries exhausted: %w", q.cfg.Name, err)}
	default:
		j.done <- result{value: value, err: err}
	}

	if q.cfg.Gap > 0 {
		_ = q.sleep(context.Background(), q.cfg.Gap)
	}
}

// waitForSlot blocks until starting a task keeps at most MaxPerWindow starts
// inside the trailing Window, then records the start.
func (q *Queue) waitForSlot(ctx context.Context) error {
	limit := q.cfg.MaxPerWindow
	if limit <= 0 || q.cfg.Window <= 0 {
		q.record(q.now())
		return nil
	}

	for {
		now := q.now()
		q.mu.Lock()
		q.starts = trimBefore(q.starts, now.Add(-q.cfg.Window))
		if len(q.starts) < limit {
			q.starts = append(q.starts, now)
			q.mu.Unlock()
			return nil
		}
		wait := q.starts[0].Add(q.cfg.Window).Sub(now)
		q.mu.Unlock()

		q.logger.Debug("window budget reached, waiting", "wait", wait)
		if err := q.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (q *Queue) record(t time.Time) {
	q.mu.Lock()
	q.starts = append(q.starts, t)
	if len(q.starts) > 1024 {
		q.starts = q.starts[len(q.starts)-1024:]
	}
	q.mu.Unlock()
}

// trimBefore drops start times at or before cutoff; starts is ascending.
func trimBefore(starts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(starts) && !starts[i].After(cutoff) {
		i++
	}
	return starts[i:]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
