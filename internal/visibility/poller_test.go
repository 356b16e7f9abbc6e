package visibility

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/websapdev/ai-visibility/internal/engines"
	"github.com/websapdev/ai-visibility/internal/models"
	"github.com/websapdev/ai-visibility/internal/storage"
)

func TestPoller_RunPoll_EndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor"}, "chatgpt")

	poller := newTestPoller(repo, engines.NewFakeFetcher(0), nil)

	result, err := poller.RunPoll(ctx, f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewAnswers)
	assert.Equal(t, 0, result.FailedFetches)

	answers, err := repo.ListAnswersSince(ctx, f.brand.ID, f.engines[0].ID, fixedNow.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, answers, 1)
	require.NotEmpty(t, answers[0].Mentions)
	assert.Equal(t, models.EntityBrand, answers[0].Mentions[0].EntityType)
	assert.Equal(t, "Acme", answers[0].Mentions[0].EntityName)

	snapshots, err := repo.ListSnapshotsSince(ctx, f.brand.ID, fixedNow.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, 1, snapshots[0].TotalAnswers)
	assert.Equal(t, 1, snapshots[0].BrandMentionCount)

	reporter := NewReporter(repo, time.UTC, 30)
	reporter.now = func() time.Time { return fixedNow }
	overview, err := reporter.GetOverview(ctx, f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, overview.Headline.TotalAnswers)
	assert.Equal(t, 1, overview.Headline.CompetitorsTracked)
	require.Len(t, overview.Trend, 1)
	assert.Equal(t, "2026-10-19", overview.Trend[0].Date)
	require.Len(t, overview.Prompts, 1)
	assert.Equal(t, 1, overview.Prompts[0].AnswerCount)
}

func TestPoller_RunPoll_Validation(t *testing.T) {
	poller := newTestPoller(newTestRepo(t), engines.NewFakeFetcher(0), nil)

	_, err := poller.RunPoll(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPoller_RunPoll_UnknownBrand(t *testing.T) {
	poller := newTestPoller(newTestRepo(t), engines.NewFakeFetcher(0), nil)

	_, err := poller.RunPoll(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPoller_RunPoll_NothingToPoll(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, nil, "chatgpt")

	result, err := newTestPoller(repo, engines.NewFakeFetcher(0), nil).RunPoll(ctx, f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.NewAnswers)

	snapshots, err := repo.ListSnapshotsSince(ctx, f.brand.ID, fixedNow.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestPoller_RunPoll_SkipsFailedFetch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor"}, "chatgpt", "perplexity")

	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, engineSlug("chatgpt"), mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("rate limited"))
	fetcher.On("Fetch", mock.Anything, engineSlug("perplexity"), mock.Anything, mock.Anything, mock.Anything).
		Return("Acme is great. Globex is fine.", nil)

	result, err := newTestPoller(repo, fetcher, nil).RunPoll(ctx, f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewAnswers)
	assert.Equal(t, 1, result.FailedFetches)

	snapshots, err := repo.ListSnapshotsSince(ctx, f.brand.ID, fixedNow.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "perplexity", snapshots[0].EngineDisplayName)
	fetcher.AssertExpectations(t)
}

func TestPoller_RunPoll_AllFetchesFail(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor"}, "chatgpt")

	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("upstream 503"))

	_, err := newTestPoller(repo, fetcher, nil).RunPoll(ctx, f.brand.ID)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "chatgpt", fetchErr.Engine)
	assert.Equal(t, f.prompts[0].ID, fetchErr.PromptID)

	snapshots, err := repo.ListSnapshotsSince(ctx, f.brand.ID, fixedNow.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestPoller_RunPoll_PersistenceErrorAborts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor", "cheapest widget"}, "chatgpt")

	_, err := newTestPoller(failingAnswers{repo}, engines.NewFakeFetcher(0), nil).RunPoll(ctx, f.brand.ID)

	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "create answer", persistErr.Op)

	answers, err := repo.ListAnswersSince(ctx, f.brand.ID, f.engines[0].ID, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, answers)

	snapshots, err := repo.ListSnapshotsSince(ctx, f.brand.ID, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestPoller_RunPoll_CancelledContext(t *testing.T) {
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor"}, "chatgpt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPoller(repo, engines.NewFakeFetcher(time.Second), nil).RunPoll(ctx, f.brand.ID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoller_RunPoll_ConcurrentPollsOfSameBrand(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor", "cheapest widget"}, "chatgpt")

	poller := newTestPoller(repo, engines.NewFakeFetcher(5*time.Millisecond), nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = poller.RunPoll(ctx, f.brand.ID)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	snapshots, err := repo.ListSnapshotsSince(ctx, f.brand.ID, fixedNow.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, 4, snapshots[0].TotalAnswers)
	assert.Equal(t, 0, poller.locks.size())
}

func TestPoller_RunPoll_WritesArchive(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor"}, "chatgpt", "perplexity")

	archive, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	_, err = newTestPoller(repo, engines.NewFakeFetcher(0), archive).RunPoll(ctx, f.brand.ID)
	require.NoError(t, err)

	files, err := archive.List(ctx, "polls/"+f.brand.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "polls/"+f.brand.ID+"/2026-10-19-12-00-00.000.json", files[0])

	data, err := archive.Retrieve(ctx, files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"brand_name":"Acme"`)
}

func TestPoller_RunPoll_CancelledMidPollKeepsSnapshots(t *testing.T) {
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor", "cheapest widget"}, "chatgpt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := newTestPoller(repo, &cancellingFetcher{cancel: cancel}, nil)
	poller.concurrency = 1

	result, err := poller.RunPoll(ctx, f.brand.ID)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.NewAnswers)

	answers, err := repo.ListAnswersSince(context.Background(), f.brand.ID, f.engines[0].ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, answers, 1)

	snapshots, err := repo.ListSnapshotsSince(context.Background(), f.brand.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, 1, snapshots[0].TotalAnswers)
	assert.Equal(t, 0, poller.locks.size())
}

func TestPoller_RunPoll_LatePersistenceErrorKeepsSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor", "cheapest widget"}, "chatgpt")

	poller := newTestPoller(&failAfter{Repository: repo, n: 1}, engines.NewFakeFetcher(0), nil)
	poller.concurrency = 1

	result, err := poller.RunPoll(ctx, f.brand.ID)

	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.NewAnswers)

	snapshots, err := repo.ListSnapshotsSince(ctx, f.brand.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, 1, snapshots[0].TotalAnswers)
}
