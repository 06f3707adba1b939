package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs the periodic idle-session sweep.
type Scheduler struct {
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	sweepFunc func(ctx context.Context, now time.Time) int
	logger    zerolog.Logger
}

func New(logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// SetSweepFunction sets the job run on every tick. It returns how many
// sessions were dropped.
func (s *Scheduler) SetSweepFunction(f func(ctx context.Context, now time.Time) int) {
	s.sweepFunc = f
}

// Start schedules the sweep with a cron spec such as "@every 10m".
func (s *Scheduler) Start(spec string) error {
	if s.sweepFunc == nil {
		s.logger.Warn().Msg("⚠️ sweep function not set, idle sessions will never expire")
		return nil
	}
	if spec == "" {
		return errors.New("empty sweep schedule")
	}

	_, err := s.cron.AddFunc(spec, s.runSweep)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("spec", spec).Msg("📅 scheduler started")
	return nil
}

func (s *Scheduler) runSweep() {
	n := s.sweepFunc(s.ctx, time.Now())
	if n > 0 {
		s.logger.Info().Int("dropped", n).Msg("🧹 idle sessions expired")
	}
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info().Msg("📅 scheduler stopped")
}
