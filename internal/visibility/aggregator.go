package visibility

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/websapdev/ai-visibility/internal/models"
	"github.com/websapdev/ai-visibility/internal/store"
)

// Aggregator rolls today's answers into one snapshot per engine
type Aggregator struct {
	repo store.Repository
	loc  *time.Location
	now  func() time.Time
}

// NewAggregator creates an aggregator that starts days at midnight in loc
func NewAggregator(repo store.Repository, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{repo: repo, loc: loc, now: time.Now}
}

// ShareOfVoice is brand / (brand + competitor), or 0 when nothing was mentioned
func ShareOfVoice(brandMentions, competitorMentions int) float64 {
	total := brandMentions + competitorMentions
	if total == 0 {
		return 0
	}
	return float64(brandMentions) / float64(total)
}

// UpdateDailySnapshot recomputes today's snapshot for every registered engine
// that has at least one answer for the brand today. Existing rows are
// overwritten, never incremented. The first store error aborts the loop.
func (a *Aggregator) UpdateDailySnapshot(ctx context.Context, brandID string) error {
	today := startOfDay(a.now(), a.loc)

	engines, err := a.repo.ListEngines(ctx)
	if err != nil {
		return &PersistenceError{Op: "load engines", Err: err}
	}

	for _, engine := range engines {
		answers, err := a.repo.ListAnswersSince(ctx, brandID, engine.ID, today)
		if err != nil {
			return &PersistenceError{Op: "load answers for " + engine.Slug, Err: err}
		}

		if len(answers) == 0 {
			continue
		}

		snapshot := buildSnapshot(brandID, engine.ID, today, answers)
		if err := a.repo.UpsertSnapshot(ctx, snapshot); err != nil {
			return &PersistenceError{Op: "upsert snapshot for " + engine.Slug, Err: err}
		}

		logrus.WithFields(logrus.Fields{
			"brand_id":            brandID,
			"engine":              engine.Slug,
			"total_answers":       snapshot.TotalAnswers,
			"brand_mentions":      snapshot.BrandMentionCount,
			"competitor_mentions": snapshot.CompetitorMentionCount,
		}).Debug("Updated daily snapshot")
	}

	return nil
}

func buildSnapshot(brandID, engineID string, day time.Time, answers []models.AiAnswer) *models.VisibilitySnapshot {
	brandMentions := 0
	competitorMentions := 0
	competitorCounts := make(map[string]int)

	for _, a := range answers {
		for _, m := range a.Mentions {
			switch m.EntityType {
			case models.EntityBrand:
				brandMentions++
			case models.EntityCompetitor:
				competitorMentions++
				competitorCounts[m.EntityName]++
			}
		}
	}

	return &models.VisibilitySnapshot{
		BrandID:                brandID,
		AiEngineID:             engineID,
		Date:                   day,
		TotalAnswers:           len(answers),
		BrandMentionCount:      brandMentions,
		CompetitorMentionCount: competitorMentions,
		BrandShareOfVoice:      ShareOfVoice(brandMentions, competitorMentions),
		CompetitorShareOfVoice: competitorCounts,
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
