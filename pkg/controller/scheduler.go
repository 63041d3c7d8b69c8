package controller

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Scheduler refreshes the counters and the current wallet's list on a cron
// schedule. It never notifies; failures stay in the log.
type Scheduler struct {
	ctrl *Controller
	cron *cron.Cron
}

// NewScheduler accepts standard cron specs and descriptors ("@every 30s").
func NewScheduler(ctrl *Controller, spec string) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s := &Scheduler{ctrl: ctrl, cron: c}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	s.ctrl.refreshAll(ctx, s.ctrl.Wallet())
}

func (s *Scheduler) Start() {
	s.ctrl.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("⏱️ refresh scheduler started")
	s.cron.Start()
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
