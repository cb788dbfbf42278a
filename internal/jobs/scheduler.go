// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/projectdash/dashboard-backend/internal/api/http/middleware"
	"github.com/projectdash/dashboard-backend/internal/capability"
	"github.com/projectdash/dashboard-backend/internal/export"
)

// Job is a named unit of periodic work.
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

// NewScheduler skips a run while the previous run of the same job is still
// going and recovers panics.
func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		log: log,
	}
}

func (s *Scheduler) Add(job Job) error {
	if _, err := s.cron.AddFunc(job.Spec, func() { s.run(job) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
	}
	s.log.Info("job scheduled", zap.String("job", job.Name), zap.String("spec", job.Spec))
	return nil
}

func (s *Scheduler) run(job Job) {
	ctx := context.Background()
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.log.Error("job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	s.log.Debug("job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for running jobs up to ctx's deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// CapabilityRefresh re-detects the owner column so a migration is picked
// up without an operator signal.
func CapabilityRefresh(d capability.Detector, spec string, log *zap.Logger) Job {
	return Job{
		Name:    "capability_refresh",
		Spec:    spec,
		Timeout: 10 * time.Second,
		Run: func(ctx context.Context) error {
			present, err := capability.Refresh(ctx, d)
			if err != nil {
				return err
			}
			log.Debug("capability refreshed", zap.Bool("owner_column", present))
			return nil
		},
	}
}

// ExportSweep removes export files a crashed process left behind.
func ExportSweep(e *export.Exporter, maxAge time.Duration, spec string, log *zap.Logger) Job {
	return Job{
		Name: "export_sweep",
		Spec: spec,
		Run: func(context.Context) error {
			n, err := e.Sweep(maxAge)
			if err != nil {
				return err
			}
			if n > 0 {
				log.Info("stale exports removed", zap.Int("files", n))
			}
			return nil
		},
	}
}

func RateLimiterCleanup(idle time.Duration, spec string, limiters ...*middleware.RateLimiter) Job {
	return Job{
		Name: "rate_limiter_cleanup",
		Spec: spec,
		Run: func(context.Context) error {
			for _, rl := range limiters {
				rl.Cleanup(idle)
			}
			return nil
		},
	}
}
