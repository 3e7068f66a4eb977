// Package maintenance runs the background jobs that keep credential and
// billing state tidy.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// GraceSweeper clears rotation grace keys whose window has elapsed.
type GraceSweeper interface {
	SweepExpiredGracePeriods(ctx context.Context) (int, error)
}

// SweepScheduler periodically expires stale rotation grace keys so old
// credentials stop verifying even if no request touches the tenant.
type SweepScheduler struct {
	sweeper  GraceSweeper
	interval time.Duration
	cron     *cron.Cron
	logger   zerolog.Logger
	mu       sync.Mutex
	running  bool
}

// NewSweepScheduler creates a grace-key sweep scheduler.
func NewSweepScheduler(sweeper GraceSweeper, interval time.Duration, logger zerolog.Logger) *SweepScheduler {
	return &SweepScheduler{
		sweeper:  sweeper,
		interval: interval,
		cron:     cron.New(),
		logger:   logger.With().Str("component", "grace_sweep").Logger(),
	}
}

// Start begins the periodic sweep.
func (s *SweepScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("sweep scheduler already running")
	}

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.runSweep)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Dur("interval", s.interval).
		Msg("grace key sweep scheduler started")

	return nil
}

// Stop stops the scheduler gracefully.
func (s *SweepScheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	s.running = false
	s.logger.Info().Msg("stopping grace key sweep scheduler")
	return s.cron.Stop()
}

// runSweep executes one sweep pass.
func (s *SweepScheduler) runSweep() {
	ctx := context.Background()

	cleared, err := s.sweeper.SweepExpiredGracePeriods(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("grace key sweep failed")
		return
	}

	if cleared > 0 {
		s.logger.Info().
			Int("cleared", cleared).
			Msg("grace key sweep completed")
	} else {
		s.logger.Debug().Msg("grace key sweep found nothing to clear")
	}
}

// RunNow triggers an immediate sweep pass.
func (s *SweepScheduler) RunNow() {
	s.runSweep()
}
