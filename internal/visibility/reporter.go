package visibility

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/websapdev/ai-visibility/internal/models"
	"github.com/websapdev/ai-visibility/internal/store"
)

// Reporter builds the read-only visibility overview from stored snapshots
type Reporter struct {
	repo       store.Repository
	loc        *time.Location
	windowDays int
	now        func() time.Time
}

// NewReporter creates a reporter over a trailing window of windowDays
func NewReporter(repo store.Repository, loc *time.Location, windowDays int) *Reporter {
	if loc == nil {
		loc = time.UTC
	}
	if windowDays < 1 {
		windowDays = 30
	}
	return &Reporter{repo: repo, loc: loc, windowDays: windowDays, now: time.Now}
}

type mentionTotals struct {
	brand int
	total int
}

func (m mentionTotals) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.brand) / float64(m.total) * 100
}

// GetOverview summarizes the brand's snapshots from the trailing window. A
// brand without snapshots yields a zero-valued overview.
func (r *Reporter) GetOverview(ctx context.Context, brandID string) (*models.Overview, error) {
	if brandID == "" {
		return nil, fmt.Errorf("brandId is required: %w", ErrValidation)
	}

	if _, err := r.repo.GetBrand(ctx, brandID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("brand %s: %w", brandID, ErrNotFound)
		}
		return nil, &PersistenceError{Op: "load brand", Err: err}
	}

	since := r.now().AddDate(0, 0, -r.windowDays)
	snapshots, err := r.repo.ListSnapshotsSince(ctx, brandID, since)
	if err != nil {
		return nil, &PersistenceError{Op: "load snapshots", Err: err}
	}

	overview := &models.Overview{
		EngineChart: []models.EngineSov{},
		Trend:       []models.TrendPoint{},
		Prompts:     []models.PromptActivity{},
	}

	var overall mentionTotals
	var engineOrder, dateOrder []string
	perEngine := make(map[string]*mentionTotals)
	perDate := make(map[string]*mentionTotals)

	for _, s := range snapshots {
		mentions := s.BrandMentionCount + s.CompetitorMentionCount

		overview.Headline.TotalAnswers += s.TotalAnswers
		overall.brand += s.BrandMentionCount
		overall.total += mentions

		e, ok := perEngine[s.EngineDisplayName]
		if !ok {
			e = &mentionTotals{}
			perEngine[s.EngineDisplayName] = e
			engineOrder = append(engineOrder, s.EngineDisplayName)
		}
		e.brand += s.BrandMentionCount
		e.total += mentions

		dateKey := s.Date.In(r.loc).Format("2006-01-02")
		d, ok := perDate[dateKey]
		if !ok {
			d = &mentionTotals{}
			perDate[dateKey] = d
			dateOrder = append(dateOrder, dateKey)
		}
		d.brand += s.BrandMentionCount
		d.total += mentions
	}

	overview.Headline.OverallSov = int(math.Round(overall.percent()))

	for _, name := range engineOrder {
		overview.EngineChart = append(overview.EngineChart, models.EngineSov{Name: name, Sov: perEngine[name].percent()})
	}
	for _, date := range dateOrder {
		overview.Trend = append(overview.Trend, models.TrendPoint{Date: date, BrandSov: perDate[date].percent()})
	}

	competitors, err := r.repo.CountCompetitors(ctx, brandID)
	if err != nil {
		return nil, &PersistenceError{Op: "count competitors", Err: err}
	}
	overview.Headline.CompetitorsTracked = competitors

	prompts, err := r.repo.ListPromptActivity(ctx, brandID)
	if err != nil {
		return nil, &PersistenceError{Op: "load prompt activity", Err: err}
	}
	if prompts != nil {
		overview.Prompts = prompts
	}

	return overview, nil
}
