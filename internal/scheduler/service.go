package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/websapdev/ai-visibility/internal/config"
	"github.com/websapdev/ai-visibility/internal/models"
)

// Runner performs one scheduled visibility poll
type Runner interface {
	RunScheduledPoll(ctx context.Context) (*models.Report, error)
}

// Service handles scheduling of visibility polls
type Service struct {
	config *config.Config
	runner Runner
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, runner Runner) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		config: cfg,
		runner: runner,
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location())),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers POLL_SCHEDULE and starts the cron loop. Overlapping runs
// are skipped.
func (s *Service) Start() error {
	if s.config.PollSchedule == "" {
		return fmt.Errorf("poll schedule is not configured")
	}

	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(s.run))
	if _, err := s.cron.AddJob(s.config.PollSchedule, job); err != nil {
		return fmt.Errorf("invalid poll schedule %q: %w", s.config.PollSchedule, err)
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q", s.config.PollSchedule)
	return nil
}

func (s *Service) run() {
	logrus.Info("Starting scheduled visibility poll")
	if _, err := s.runner.RunScheduledPoll(s.ctx); err != nil {
		logrus.Errorf("Scheduled visibility poll failed: %v", err)
	}
}

// Stop cancels a running poll and waits for it to return
func (s *Service) Stop() {
	if s.cron != nil {
		s.cancel()
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
