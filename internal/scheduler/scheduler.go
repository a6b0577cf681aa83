package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSpec fires five seconds after every half-hour boundary.
const DefaultSpec = "5 0,30 * * * *"

// Scheduler drives the Refresher from a seconds-enabled cron spec.
type Scheduler struct {
	Cron      *cron.Cron
	Refresher *Refresher
	Ctx       context.Context
}

// NewScheduler creates a scheduler evaluating specs in loc. Overlapping runs
// are skipped and panics in a run are recovered.
func NewScheduler(ctx context.Context, r *Refresher, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	logger := cron.PrintfLogger(zap.NewStdLog(zap.L().Named("cron")))
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		Refresher: r,
		Ctx:       ctx,
	}
}

// Register adds the refresh job.
func (s *Scheduler) Register(spec string) error {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := s.Cron.AddFunc(spec, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	zap.L().Info("[Scheduler] Started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	zap.L().Info("[Scheduler] Stopped")
}

// RunNow executes a refresh immediately (startup / manual trigger).
func (s *Scheduler) RunNow() {
	s.refreshTask()
}

// Next reports when the refresh job fires next; zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.Cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) refreshTask() {
	if s.Ctx.Err() != nil {
		return
	}
	if _, err := s.Refresher.Refresh(s.Ctx); err != nil {
		zap.L().Warn("[Scheduler] Refresh did not produce a result", zap.Error(err))
	}
}
