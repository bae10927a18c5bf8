package kfc

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// CronScheduler is a Scheduler backed by robfig/cron, registering each
// callback as a fixed-period "@every" entry.
type CronScheduler struct {
	c      *cron.Cron
	parent context.Context
}

// NewCronScheduler creates a scheduler that runs callbacks under parent's
// cancellation.
func NewCronScheduler(parent context.Context) *CronScheduler {
	return &CronScheduler{c: cron.New(), parent: parent}
}

// RegisterRecurring implements Scheduler, registering fn to run every period
// seconds. name is used only for error messages.
func (s *CronScheduler) RegisterRecurring(name string, period float64, fn func(ctx context.Context)) error {
	if period <= 0 {
		return fmt.Errorf("register %s: period must be positive", name)
	}
	spec := fmt.Sprintf("@every %.0fs", period)
	_, err := s.c.AddFunc(spec, func() { fn(s.parent) })
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	return nil
}

// Start begins running registered entries in the background.
func (s *CronScheduler) Start() { s.c.Start() }

// Stop halts the scheduler, waiting for any running entry to finish.
func (s *CronScheduler) Stop() { <-s.c.Stop().Done() }
