// Package jobs runs the bot's periodic background work on cron schedules.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"
)

// Job is a unit of periodic work.
type Job func(ctx context.Context)

// Runner wraps a cron scheduler. Jobs never overlap with themselves
// and a panicking job is recovered and reported.
type Runner struct {
	cron *cron.Cron
	ctx  context.Context
	jobs map[string]cron.EntryID
}

// NewRunner creates a runner evaluating schedules in loc.
// Jobs receive ctx without its cancellation so in-flight work finishes on shutdown.
func NewRunner(ctx context.Context, loc *time.Location) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	logger := cron.PrintfLogger(log.Default())
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	return &Runner{
		cron: c,
		ctx:  context.WithoutCancel(ctx),
		jobs: make(map[string]cron.EntryID),
	}
}

// Add registers job under name with a cron spec such as "@every 1m" or "0 3 * * *".
func (r *Runner) Add(spec, name string, job Job) error {
	if _, exists := r.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	id, err := r.cron.AddFunc(spec, func() {
		defer func() {
			if rec := recover(); rec != nil {
				sentry.CurrentHub().Recover(rec)
				panic(rec)
			}
		}()
		start := time.Now()
		job(r.ctx)
		log.Printf("[Jobs] %s finished in %s", name, time.Since(start).Round(time.Millisecond))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %q with spec %q: %w", name, spec, err)
	}
	r.jobs[name] = id
	log.Printf("[Jobs] Registered %s (%s)", name, spec)
	return nil
}

// Next returns the next activation time of the named job.
func (r *Runner) Next(name string) (time.Time, bool) {
	id, ok := r.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	return r.cron.Entry(id).Next, true
}

// Start begins running jobs in the background.
func (r *Runner) Start() {
	r.cron.Start()
	log.Printf("[Jobs] Started %d job(s)", len(r.jobs))
}

// Stop halts scheduling and waits for running jobs, or for ctx to expire.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		log.Println("[Jobs] Stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}
