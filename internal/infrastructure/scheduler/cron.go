package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"NewsDesk/internal/ports"
)

// CronScheduler runs a job on a standard five field cron expression.
type CronScheduler struct {
	spec       string
	loc        *time.Location
	runOnStart bool

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler; a nil location means UTC.
func NewCronScheduler(spec string, loc *time.Location, runOnStart bool) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{spec: spec, loc: loc, runOnStart: runOnStart}
}

// Start registers job and begins ticking until Stop or ctx cancellation.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cr := cron.New(cron.WithLocation(c.loc))
	if _, err := cr.AddFunc(c.spec, func() { job(time.Now().In(c.loc)) }); err != nil {
		return fmt.Errorf("parse cron expression %q: %w", c.spec, err)
	}
	cr.Start()
	c.cron = cr

	if c.runOnStart {
		go job(time.Now().In(c.loc))
	}
	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()
	return nil
}

// Stop halts the scheduler and waits for a running job, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()

	if cr == nil {
		return nil
	}
	select {
	case <-cr.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
