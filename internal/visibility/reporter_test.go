package visibility

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/websapdev/ai-visibility/internal/models"
	"github.com/websapdev/ai-visibility/internal/store"
)

func newTestReporter(repo store.Repository) *Reporter {
	r := NewReporter(repo, time.UTC, 30)
	r.now = func() time.Time { return fixedNow }
	return r
}

func putSnapshot(t *testing.T, repo store.Repository, brandID string, engine *models.AiEngine, day time.Time, answers, brand, competitor int) {
	t.Helper()
	require.NoError(t, repo.UpsertSnapshot(context.Background(), &models.VisibilitySnapshot{
		BrandID:                brandID,
		AiEngineID:             engine.ID,
		Date:                   day,
		TotalAnswers:           answers,
		BrandMentionCount:      brand,
		CompetitorMentionCount: competitor,
		BrandShareOfVoice:      ShareOfVoice(brand, competitor),
	}))
}

func TestReporter_GetOverview(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor", "cheapest widget"}, "chatgpt", "perplexity")
	chatgpt, perplexity := f.engines[0], f.engines[1]

	today := startOfDay(fixedNow, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	putSnapshot(t, repo, f.brand.ID, chatgpt, yesterday, 4, 3, 1)
	putSnapshot(t, repo, f.brand.ID, perplexity, yesterday, 2, 1, 3)
	putSnapshot(t, repo, f.brand.ID, chatgpt, today, 3, 2, 0)

	overview, err := newTestReporter(repo).GetOverview(ctx, f.brand.ID)
	require.NoError(t, err)

	// 6 of 10 mentions belong to the brand
	assert.Equal(t, 60, overview.Headline.OverallSov)
	assert.Equal(t, 9, overview.Headline.TotalAnswers)
	assert.Equal(t, 1, overview.Headline.CompetitorsTracked)

	sov := make(map[string]float64)
	for _, e := range overview.EngineChart {
		sov[e.Name] = e.Sov
	}
	require.Len(t, sov, 2)
	assert.InDelta(t, 5.0/6.0*100, sov["chatgpt"], 1e-9)
	assert.InDelta(t, 25, sov["perplexity"], 1e-9)

	require.Len(t, overview.Trend, 2)
	assert.Equal(t, "2026-10-18", overview.Trend[0].Date)
	assert.InDelta(t, 50, overview.Trend[0].BrandSov, 1e-9)
	assert.Equal(t, "2026-10-19", overview.Trend[1].Date)
	assert.InDelta(t, 100, overview.Trend[1].BrandSov, 1e-9)

	require.Len(t, overview.Prompts, 2)
	for _, p := range overview.Prompts {
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, 0, p.AnswerCount)
	}
}

func TestReporter_GetOverview_WindowExcludesOldSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor"}, "chatgpt")

	today := startOfDay(fixedNow, time.UTC)
	putSnapshot(t, repo, f.brand.ID, f.engines[0], today.AddDate(0, 0, -40), 10, 0, 10)
	putSnapshot(t, repo, f.brand.ID, f.engines[0], today, 1, 1, 0)

	overview, err := newTestReporter(repo).GetOverview(ctx, f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, overview.Headline.OverallSov)
	assert.Equal(t, 1, overview.Headline.TotalAnswers)
	require.Len(t, overview.Trend, 1)
}

func TestReporter_GetOverview_NoGapFilling(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor"}, "chatgpt")

	today := startOfDay(fixedNow, time.UTC)
	putSnapshot(t, repo, f.brand.ID, f.engines[0], today.AddDate(0, 0, -5), 1, 1, 1)
	putSnapshot(t, repo, f.brand.ID, f.engines[0], today, 1, 1, 1)

	overview, err := newTestReporter(repo).GetOverview(ctx, f.brand.ID)
	require.NoError(t, err)
	require.Len(t, overview.Trend, 2)
	assert.Equal(t, "2026-10-14", overview.Trend[0].Date)
	assert.Equal(t, "2026-10-19", overview.Trend[1].Date)
}

func TestReporter_GetOverview_NoSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, nil, "chatgpt")

	overview, err := newTestReporter(repo).GetOverview(ctx, f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Headline{CompetitorsTracked: 1}, overview.Headline)
	assert.NotNil(t, overview.EngineChart)
	assert.Empty(t, overview.EngineChart)
	assert.NotNil(t, overview.Trend)
	assert.Empty(t, overview.Trend)
	assert.NotNil(t, overview.Prompts)
}

func TestReporter_GetOverview_PromptCountsAreLifetime(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor"}, "chatgpt")

	createAnswer(t, repo, f, f.engines[0], fixedNow.AddDate(0, -6, 0), brandMention())
	createAnswer(t, repo, f, f.engines[0], fixedNow, brandMention())

	overview, err := newTestReporter(repo).GetOverview(ctx, f.brand.ID)
	require.NoError(t, err)
	require.Len(t, overview.Prompts, 1)
	assert.Equal(t, f.prompts[0].ID, overview.Prompts[0].ID)
	assert.Equal(t, "best widget vendor", overview.Prompts[0].Text)
	assert.Equal(t, 2, overview.Prompts[0].AnswerCount)
}

func TestReporter_GetOverview_Errors(t *testing.T) {
	reporter := newTestReporter(newTestRepo(t))

	_, err := reporter.GetOverview(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = reporter.GetOverview(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
