package visibility

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/websapdev/ai-visibility/internal/config"
	"github.com/websapdev/ai-visibility/internal/models"
	"github.com/websapdev/ai-visibility/internal/notifications"
	"github.com/websapdev/ai-visibility/internal/store"
)

// Service ties polling and reporting together and keeps run metrics
type Service struct {
	config   *config.Config
	repo     store.Repository
	poller   *Poller
	reporter *Reporter
	notifier notifications.NotificationInterface
	metrics  *Metrics
	mu       sync.RWMutex
}

// Metrics holds polling metrics
type Metrics struct {
	TotalPolls      int       `json:"total_polls"`
	TotalAnswers    int       `json:"total_answers"`
	FailedFetches   int       `json:"failed_fetches"`
	LastRun         time.Time `json:"last_run"`
	LastRunDuration string    `json:"last_run_duration"`
	ErrorCount      int       `json:"error_count"`
}

// NewService creates a visibility service. notifier may be nil.
func NewService(cfg *config.Config, repo store.Repository, poller *Poller, reporter *Reporter, notifier notifications.NotificationInterface) *Service {
	return &Service{
		config:   cfg,
		repo:     repo,
		poller:   poller,
		reporter: reporter,
		notifier: notifier,
		metrics:  &Metrics{},
	}
}

// RunPoll polls one brand and records the outcome in the metrics
func (s *Service) RunPoll(ctx context.Context, brandID string) (*models.PollResult, error) {
	start := time.Now()
	result, err := s.poller.RunPoll(ctx, brandID)
	s.updateMetrics(result, time.Since(start), err)
	return result, err
}

// GetOverview returns the brand's visibility overview
func (s *Service) GetOverview(ctx context.Context, brandID string) (*models.Overview, error) {
	return s.reporter.GetOverview(ctx, brandID)
}

// RunScheduledPoll polls the configured brands (all brands when none are
// configured) and sends a digest. A failing brand is recorded in the digest
// and does not stop the others.
func (s *Service) RunScheduledPoll(ctx context.Context) (*models.Report, error) {
	start := time.Now()
	logrus.Info("Starting scheduled visibility poll")

	brandIDs, err := s.scheduledBrandIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		GeneratedAt: start,
		Period:      "scheduled",
		Brands:      make([]models.BrandDigest, 0, len(brandIDs)),
	}

	for _, id := range brandIDs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		report.Brands = append(report.Brands, s.digestBrand(ctx, id))
	}

	if s.notifier != nil && len(report.Brands) > 0 {
		if err := s.notifier.SendReport(ctx, report); err != nil {
			logrus.Errorf("Failed to send visibility digest: %v", err)
			return report, err
		}
	}

	logrus.Infof("Scheduled visibility poll of %d brands completed in %v", len(brandIDs), time.Since(start))
	return report, nil
}

func (s *Service) scheduledBrandIDs(ctx context.Context) ([]string, error) {
	if len(s.config.ScheduledBrands) > 0 {
		return s.config.ScheduledBrands, nil
	}

	brands, err := s.repo.ListBrands(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list brands", Err: err}
	}
	ids := make([]string, 0, len(brands))
	for _, b := range brands {
		ids = append(ids, b.ID)
	}
	return ids, nil
}

func (s *Service) digestBrand(ctx context.Context, brandID string) models.BrandDigest {
	digest := models.BrandDigest{BrandID: brandID, BrandName: brandID}
	if brand, err := s.repo.GetBrand(ctx, brandID); err == nil {
		digest.BrandName = brand.Name
	}

	result, err := s.RunPoll(ctx, brandID)
	if result != nil {
		digest.NewAnswers = result.NewAnswers
	}
	if err != nil {
		logrus.WithField("brand_id", brandID).Errorf("Scheduled poll failed: %v", err)
		digest.Error = err.Error()
		return digest
	}

	overview, err := s.GetOverview(ctx, brandID)
	if err != nil {
		logrus.WithField("brand_id", brandID).Errorf("Failed to build overview: %v", err)
		digest.Error = err.Error()
		return digest
	}
	digest.Headline = overview.Headline
	digest.EngineSov = overview.EngineChart
	return digest
}

func (s *Service) updateMetrics(result *models.PollResult, duration time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.TotalPolls++
	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()

	if err != nil {
		s.metrics.ErrorCount++
	}
	// An aborted poll still reports what it committed
	if result != nil {
		s.metrics.TotalAnswers += result.NewAnswers
		s.metrics.FailedFetches += result.FailedFetches
	}
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
