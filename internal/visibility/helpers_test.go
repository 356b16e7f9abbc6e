package visibility

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/websapdev/ai-visibility/internal/config"
	"github.com/websapdev/ai-visibility/internal/engines"
	"github.com/websapdev/ai-visibility/internal/models"
	"github.com/websapdev/ai-visibility/internal/storage"
	"github.com/websapdev/ai-visibility/internal/store"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *store.SQLStore {
	t.Helper()
	s, err := store.Open(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type fixture struct {
	brand   *models.Brand
	prompts []*models.TrackedPrompt
	engines []*models.AiEngine
}

// seed creates a brand with one competitor, the given prompt texts and the
// given engine slugs
func seed(t *testing.T, repo store.Repository, prompts []string, slugs ...string) fixture {
	t.Helper()
	ctx := context.Background()

	f := fixture{brand: &models.Brand{Name: "Acme", PrimaryDomain: "acme.com"}}
	require.NoError(t, repo.CreateBrand(ctx, f.brand))
	require.NoError(t, repo.CreateCompetitor(ctx, &models.Competitor{BrandID: f.brand.ID, Name: "Globex"}))

	for _, text := range prompts {
		p := &models.TrackedPrompt{BrandID: f.brand.ID, Text: text, IsActive: true}
		require.NoError(t, repo.CreatePrompt(ctx, p))
		f.prompts = append(f.prompts, p)
	}
	for _, slug := range slugs {
		e := &models.AiEngine{Slug: slug, DisplayName: slug}
		require.NoError(t, repo.UpsertEngine(ctx, e))
		f.engines = append(f.engines, e)
	}
	return f
}

func newTestPoller(repo store.Repository, fetcher engines.Fetcher, archive storage.StorageInterface) *Poller {
	cfg := &config.Config{PollConcurrency: 2, FetchTimeout: 5 * time.Second}
	agg := NewAggregator(repo, time.UTC)
	agg.now = func() time.Time { return fixedNow }
	p := NewPoller(cfg, repo, fetcher, agg, archive)
	p.now = func() time.Time { return fixedNow }
	return p
}

// MockFetcher is a mock implementation of engines.Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) GetName() string {
	return "mock"
}

func (m *MockFetcher) Fetch(ctx context.Context, engine models.AiEngine, prompt, brandName string, competitorNames []string) (string, error) {
	args := m.Called(ctx, engine, prompt, brandName, competitorNames)
	return args.String(0), args.Error(1)
}

func engineSlug(slug string) interface{} {
	return mock.MatchedBy(func(e models.AiEngine) bool { return e.Slug == slug })
}

// failingAnswers wraps a repository whose CreateAnswer always fails
type failingAnswers struct {
	store.Repository
}

func (f failingAnswers) CreateAnswer(ctx context.Context, answer *models.AiAnswer) error {
	return errors.New("disk full")
}

// cancellingFetcher answers the first call and cancels the poll's parent
// context on the second, failing that fetch
type cancellingFetcher struct {
	engines.FakeFetcher
	cancel context.CancelFunc
	mu     sync.Mutex
	calls  int
}

func (c *cancellingFetcher) Fetch(ctx context.Context, engine models.AiEngine, prompt, brandName string, competitorNames []string) (string, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()

	if n >= 2 {
		c.cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}
	return c.FakeFetcher.Fetch(ctx, engine, prompt, brandName, competitorNames)
}

// failAfter lets the first n CreateAnswer calls through and fails the rest
type failAfter struct {
	store.Repository
	mu sync.Mutex
	n  int
}

func (f *failAfter) CreateAnswer(ctx context.Context, answer *models.AiAnswer) error {
	f.mu.Lock()
	allowed := f.n > 0
	f.n--
	f.mu.Unlock()

	if !allowed {
		return errors.New("disk full")
	}
	return f.Repository.CreateAnswer(ctx, answer)
}
