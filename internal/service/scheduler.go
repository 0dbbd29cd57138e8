package service

import (
	"context"
	"time"

	"linguasync/internal/constants"

	"github.com/sirupsen/logrus"
)

// RetrySweeper is the slice of RetryQueueService the scheduler drives.
type RetrySweeper interface {
	Sweep(ctx context.Context) error
}

// Scheduler runs the retry-queue sweep on a fixed interval. Sweeps need no
// cross-run coordination because every cache key is independently TTL'd.
type Scheduler struct {
	sweeper  RetrySweeper
	interval time.Duration
	logger   *logrus.Logger
	stopCh   chan struct{}
}

func NewScheduler(sweeper RetrySweeper, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if interval <= 0 {
		interval = constants.DefaultRetrySweepInterval
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.interval).Info("Starting retry sweep scheduler")

	s.runSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled, stopping")
			return
		case <-s.stopCh:
			s.logger.Info("Scheduler stop signal received, stopping")
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if err := s.sweeper.Sweep(ctx); err != nil {
		s.logger.WithError(err).Error("Retry queue sweep failed")
	}
}
