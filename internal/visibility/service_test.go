package visibility

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/websapdev/ai-visibility/internal/config"
	"github.com/websapdev/ai-visibility/internal/engines"
	"github.com/websapdev/ai-visibility/internal/models"
	"github.com/websapdev/ai-visibility/internal/notifications"
	"github.com/websapdev/ai-visibility/internal/store"
)

// MockNotificationService is a mock implementation of notifications.NotificationInterface
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendReport(ctx context.Context, report *models.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func newTestService(cfg *config.Config, repo store.Repository, mockNotifier *MockNotificationService) *Service {
	var notifier notifications.NotificationInterface
	if mockNotifier != nil {
		notifier = mockNotifier
	}
	return NewService(cfg, repo, newTestPoller(repo, engines.NewFakeFetcher(0), nil), newTestReporter(repo), notifier)
}

func TestService_RunPoll_UpdatesMetrics(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor"}, "chatgpt", "perplexity")
	svc := newTestService(&config.Config{}, repo, nil)

	_, err := svc.RunPoll(ctx, f.brand.ID)
	require.NoError(t, err)
	_, err = svc.RunPoll(ctx, "missing")
	require.Error(t, err)

	var metrics Metrics
	require.NoError(t, json.Unmarshal([]byte(svc.GetMetrics()), &metrics))
	assert.Equal(t, 2, metrics.TotalPolls)
	assert.Equal(t, 2, metrics.TotalAnswers)
	assert.Equal(t, 1, metrics.ErrorCount)
	assert.False(t, metrics.LastRun.IsZero())
}

func TestService_RunScheduledPoll(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor"}, "chatgpt")

	notifier := &MockNotificationService{}
	notifier.On("SendReport", mock.Anything, mock.AnythingOfType("*models.Report")).Return(nil).Once()

	cfg := &config.Config{ScheduledBrands: []string{f.brand.ID, "missing"}}
	report, err := newTestService(cfg, repo, notifier).RunScheduledPoll(ctx)
	require.NoError(t, err)

	require.Len(t, report.Brands, 2)
	ok := report.Brands[0]
	assert.Equal(t, "Acme", ok.BrandName)
	assert.Equal(t, 1, ok.NewAnswers)
	assert.Equal(t, 1, ok.Headline.TotalAnswers)
	assert.Len(t, ok.EngineSov, 1)
	assert.Empty(t, ok.Error)

	failed := report.Brands[1]
	assert.Equal(t, "missing", failed.BrandName)
	assert.Contains(t, failed.Error, "not found")

	notifier.AssertExpectations(t)
}

func TestService_RunScheduledPoll_AllBrands(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed(t, repo, []string{"best widget vendor"}, "chatgpt")

	report, err := newTestService(&config.Config{}, repo, nil).RunScheduledPoll(ctx)
	require.NoError(t, err)
	require.Len(t, report.Brands, 1)
	assert.Equal(t, "scheduled", report.Period)
}

func TestService_RunScheduledPoll_NotificationFailure(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed(t, repo, []string{"best widget vendor"}, "chatgpt")

	notifier := &MockNotificationService{}
	notifier.On("SendReport", mock.Anything, mock.Anything).Return(errors.New("webhook down"))

	report, err := newTestService(&config.Config{}, repo, notifier).RunScheduledPoll(ctx)
	assert.EqualError(t, err, "webhook down")
	require.NotNil(t, report)
}

func TestBrandLocks(t *testing.T) {
	locks := newBrandLocks()

	unlockA := locks.lock("a")
	unlockB := locks.lock("b")
	assert.Equal(t, 2, locks.size())

	acquired := make(chan struct{})
	go func() {
		unlock := locks.lock("a")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock on the same brand acquired while held")
	case <-time.After(20 * time.Millisecond):
	}

	unlockA()
	<-acquired
	unlockB()

	assert.Eventually(t, func() bool { return locks.size() == 0 }, time.Second, time.Millisecond)
}

func TestService_RunPoll_CountsPartialAnswers(t *testing.T) {
	repo := newTestRepo(t)
	f := seed(t, repo, []string{"best widget vendor", "cheapest widget"}, "chatgpt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := newTestPoller(repo, &cancellingFetcher{cancel: cancel}, nil)
	poller.concurrency = 1
	svc := NewService(&config.Config{}, repo, poller, newTestReporter(repo), nil)

	result, err := svc.RunPoll(ctx, f.brand.ID)
	require.Error(t, err)
	require.NotNil(t, result)

	var metrics Metrics
	require.NoError(t, json.Unmarshal([]byte(svc.GetMetrics()), &metrics))
	assert.Equal(t, 1, metrics.TotalPolls)
	assert.Equal(t, 1, metrics.ErrorCount)
	assert.Equal(t, 1, metrics.TotalAnswers)
}
