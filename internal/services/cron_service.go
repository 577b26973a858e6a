package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron     *cron.Cron
	sweeper  *ReservationSweepService
	schedule string
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(sweeper *ReservationSweepService, schedule string, logger *logrus.Logger) *CronService {
	// Cron format with seconds: second minute hour day month weekday
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	return &CronService{
		cron:     c,
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  time.Minute,
		logger:   logger,
	}
}

// Start schedules the jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweepExpiredJob); err != nil {
		return fmt.Errorf("failed to schedule reservation sweep job: %w", err)
	}
	s.logger.WithField("schedule", s.schedule).Info("Scheduled: expired reservation sweep")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// sweepExpiredJob runs one reservation sweep
func (s *CronService) sweepExpiredJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	startTime := time.Now()
	count, err := s.sweeper.RunOnce(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Reservation sweep failed")
		return
	}
	if count > 0 {
		s.logger.WithFields(logrus.Fields{
			"count":    count,
			"duration": time.Since(startTime).String(),
		}).Info("[CRON] Reservation sweep finished")
	}
}

// RunSweepNow runs the sweep immediately (admin trigger)
func (s *CronService) RunSweepNow(ctx context.Context) (int, error) {
	return s.sweeper.RunOnce(ctx)
}
