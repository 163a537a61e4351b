package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ArticleEnricher/internal/ports"
)

// CronScheduler triggers jobs on a standard five-field cron expression
// (descriptors such as "@hourly" or "@every 30m" are accepted too).
type CronScheduler struct {
	spec     string
	location *time.Location

	mu   sync.Mutex
	cron *cron.Cron
	// done is closed once the stopped runner's last job has returned.
	done context.Context
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler configured via cron expression string.
func NewCronScheduler(spec string, location *time.Location) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	return &CronScheduler{spec: spec, location: location}
}

// Start registers job and begins ticking. Overlapping runs are skipped. The
// scheduler stops by itself when ctx is done.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	schedule, err := cron.ParseStandard(c.spec)
	if err != nil {
		return fmt.Errorf("parse cron expression %q: %w", c.spec, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	runner := cron.New(
		cron.WithLocation(c.location),
		cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	runner.Schedule(schedule, cron.FuncJob(func() {
		job(time.Now().In(c.location))
	}))
	runner.Start()
	c.cron = runner
	c.done = nil

	go func() {
		<-ctx.Done()
		c.halt()
	}()

	return nil
}

// Stop halts the scheduler and waits for a running job, bounded by ctx.
// It keeps waiting on that job even when the start context already halted
// the ticking.
func (c *CronScheduler) Stop(ctx context.Context) error {
	done := c.halt()
	if done == nil {
		return nil
	}

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// halt stops new triggers without waiting and returns the runner's done context.
func (c *CronScheduler) halt() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		c.done = c.cron.Stop()
		c.cron = nil
	}
	return c.done
}
