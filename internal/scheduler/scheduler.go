package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/config"
)

const weeklySchedule = "0 20 * * 5"

// Reporter renders the owner's reports.
type Reporter interface {
	DailyReport(ctx context.Context, ns string, day time.Time) (string, error)
	WeeklyReport(ctx context.Context, ns string, end time.Time) (string, error)
}

// Notifier delivers a message to the owner.
type Notifier interface {
	NotifyOwner(ctx context.Context, message string) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	reporter Reporter
	notifier Notifier
	cfg      config.ReportingConfig
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance running in the configured timezone.
func NewScheduler(cfg config.ReportingConfig, reporter Reporter, notifier Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		reporter: reporter,
		notifier: notifier,
		cfg:      cfg,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start registers the report jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("daily", s.cfg.CronSchedule),
		zap.String("weekly", weeklySchedule),
		zap.String("timezone", s.location.String()))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.sendDailyReport); err != nil {
		return fmt.Errorf("schedule daily report: %w", err)
	}
	if _, err := s.cron.AddFunc(weeklySchedule, s.sendWeeklyReport); err != nil {
		return fmt.Errorf("schedule weekly report: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sendDailyReport() {
	s.run("daily", s.reporter.DailyReport)
}

func (s *Scheduler) sendWeeklyReport() {
	s.run("weekly", s.reporter.WeeklyReport)
}

func (s *Scheduler) run(kind string, build func(ctx context.Context, ns string, at time.Time) (string, error)) {
	s.logger.Info("generating report", zap.String("kind", kind))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := build(ctx, s.cfg.Owner, s.now().In(s.location))
	if err != nil {
		s.logger.Error("failed to generate report", zap.String("kind", kind), zap.Error(err))
		return
	}

	if err := s.notifier.NotifyOwner(ctx, report); err != nil {
		s.logger.Error("failed to send report", zap.String("kind", kind), zap.Error(err))
	} else {
		s.logger.Info("report sent successfully", zap.String("kind", kind))
	}
}
