package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RouteSweeper closes open routes whose date has passed.
type RouteSweeper interface {
	CloseExpiredRoutes(ctx context.Context, now time.Time) (int, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  RouteSweeper
	cronExpr string
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewScheduler creates a scheduler that runs the route sweep on cronExpr
// (standard 5-field cron) in the given location.
func NewScheduler(cronExpr string, loc *time.Location, sweeper RouteSweeper, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		sweeper:  sweeper,
		cronExpr: cronExpr,
		location: loc,
		now:      time.Now,
		logger:   logger,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("route_sweep", s.cronExpr), zap.String("timezone", s.location.String()))

	if _, err := s.cron.AddFunc(s.cronExpr, s.sweepExpiredRoutes); err != nil {
		return fmt.Errorf("schedule route sweep %q: %w", s.cronExpr, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweepExpiredRoutes() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	closed, err := s.sweeper.CloseExpiredRoutes(ctx, s.now().In(s.location))
	if err != nil {
		s.logger.Error("route sweep finished with errors", zap.Int("closed", closed), zap.Error(err))
		return
	}
	s.logger.Info("route sweep finished", zap.Int("closed", closed))
}
