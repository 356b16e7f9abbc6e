package visibility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/websapdev/ai-visibility/internal/config"
	"github.com/websapdev/ai-visibility/internal/engines"
	"github.com/websapdev/ai-visibility/internal/extraction"
	"github.com/websapdev/ai-visibility/internal/models"
	"github.com/websapdev/ai-visibility/internal/storage"
	"github.com/websapdev/ai-visibility/internal/store"
	"golang.org/x/sync/errgroup"
)

// Poller asks every registered engine every active prompt of a brand and
// stores the answers with their mentions.
type Poller struct {
	repo         store.Repository
	fetcher      engines.Fetcher
	aggregator   *Aggregator
	archive      storage.StorageInterface
	concurrency  int
	fetchTimeout time.Duration
	locks        *brandLocks
	now          func() time.Time
}

// pollTask is one (prompt, engine) pair of a poll
type pollTask struct {
	prompt models.TrackedPrompt
	engine models.AiEngine
}

// pollArchive is the document written to the archive after a poll
type pollArchive struct {
	BrandID   string            `json:"brand_id"`
	BrandName string            `json:"brand_name"`
	PolledAt  time.Time         `json:"polled_at"`
	Answers   []models.AiAnswer `json:"answers"`
}

// NewPoller creates a poller. archive may be nil to skip archiving.
func NewPoller(cfg *config.Config, repo store.Repository, fetcher engines.Fetcher, aggregator *Aggregator, archive storage.StorageInterface) *Poller {
	concurrency := cfg.PollConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Poller{
		repo:         repo,
		fetcher:      fetcher,
		aggregator:   aggregator,
		archive:      archive,
		concurrency:  concurrency,
		fetchTimeout: cfg.FetchTimeout,
		locks:        newBrandLocks(),
		now:          time.Now,
	}
}

// RunPoll polls all active prompts of the brand against every engine, then
// recomputes today's snapshots. Polls of the same brand run one at a time.
//
// A failed fetch is logged and skipped; the poll only fails with a
// *FetchError when every fetch failed. A store error or cancellation aborts
// the remaining fetches; answers committed before that are still aggregated
// and the returned result counts them alongside the error.
func (p *Poller) RunPoll(ctx context.Context, brandID string) (*models.PollResult, error) {
	if brandID == "" {
		return nil, fmt.Errorf("brandId is required: %w", ErrValidation)
	}

	unlock := p.locks.lock(brandID)
	defer unlock()

	start := p.now()
	log := logrus.WithField("brand_id", brandID)
	log.Info("Starting visibility poll")

	brand, err := p.repo.GetBrand(ctx, brandID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("brand %s: %w", brandID, ErrNotFound)
		}
		return nil, &PersistenceError{Op: "load brand", Err: err}
	}

	competitors, err := p.repo.ListCompetitors(ctx, brandID)
	if err != nil {
		return nil, &PersistenceError{Op: "load competitors", Err: err}
	}
	competitorNames := make([]string, 0, len(competitors))
	for _, c := range competitors {
		competitorNames = append(competitorNames, c.Name)
	}

	prompts, err := p.repo.ListActivePrompts(ctx, brandID)
	if err != nil {
		return nil, &PersistenceError{Op: "load prompts", Err: err}
	}

	registry, err := p.repo.ListEngines(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load engines", Err: err}
	}

	var tasks []pollTask
	for _, prompt := range prompts {
		for _, engine := range registry {
			tasks = append(tasks, pollTask{prompt: prompt, engine: engine})
		}
	}

	log.Infof("Polling %d prompts across %d engines", len(prompts), len(registry))

	created := make([]*models.AiAnswer, len(tasks))
	var (
		mu        sync.Mutex
		failures  int
		lastFetch error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, task := range tasks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			raw, err := p.fetch(gctx, task, brand.Name, competitorNames)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.WithFields(logrus.Fields{
					"engine":    task.engine.Slug,
					"prompt_id": task.prompt.ID,
				}).Warnf("Engine fetch failed, skipping: %v", err)

				mu.Lock()
				failures++
				lastFetch = &FetchError{Engine: task.engine.Slug, PromptID: task.prompt.ID, Err: err}
				mu.Unlock()
				return nil
			}

			answer := &models.AiAnswer{
				BrandID:         brand.ID,
				TrackedPromptID: task.prompt.ID,
				AiEngineID:      task.engine.ID,
				RawAnswer:       raw,
				AskedAt:         p.now(),
				Mentions:        extraction.ExtractMentions(raw, brand.Name, competitorNames),
			}
			if err := p.repo.CreateAnswer(gctx, answer); err != nil {
				return &PersistenceError{Op: "create answer", Err: err}
			}

			created[i] = answer
			return nil
		})
	}

	waitErr := g.Wait()

	answers := make([]models.AiAnswer, 0, len(tasks))
	for _, a := range created {
		if a != nil {
			answers = append(answers, *a)
		}
	}

	if waitErr == nil && len(answers) == 0 && failures > 0 {
		return nil, lastFetch
	}

	result := &models.PollResult{
		BrandID:       brandID,
		NewAnswers:    len(answers),
		FailedFetches: failures,
		StartedAt:     start,
	}

	// Committed answers always get their snapshots, even when the poll was
	// cancelled or aborted part way. Every write has returned by now.
	if len(answers) > 0 || waitErr == nil {
		detached := context.WithoutCancel(ctx)
		if err := p.aggregator.UpdateDailySnapshot(detached, brandID); err != nil {
			log.Errorf("Snapshot aggregation failed: %v", err)
			if waitErr == nil {
				result.Duration = p.now().Sub(start)
				return result, err
			}
		}
		p.archiveAnswers(detached, brand, start, answers)
	}

	result.Duration = p.now().Sub(start)

	if waitErr != nil {
		log.WithField("new_answers", result.NewAnswers).Errorf("Visibility poll aborted: %v", waitErr)
		return result, waitErr
	}

	log.WithFields(logrus.Fields{
		"new_answers":    result.NewAnswers,
		"failed_fetches": result.FailedFetches,
	}).Infof("Visibility poll completed in %v", result.Duration)

	return result, nil
}

func (p *Poller) fetch(ctx context.Context, task pollTask, brandName string, competitorNames []string) (string, error) {
	if p.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()
	}
	return p.fetcher.Fetch(ctx, task.engine, task.prompt.Text, brandName, competitorNames)
}

// archiveAnswers stores the poll's answers as JSON. The relational store is
// the source of truth, so failures are only logged.
func (p *Poller) archiveAnswers(ctx context.Context, brand *models.Brand, polledAt time.Time, answers []models.AiAnswer) {
	if p.archive == nil || len(answers) == 0 {
		return
	}

	data, err := json.Marshal(pollArchive{
		BrandID:   brand.ID,
		BrandName: brand.Name,
		PolledAt:  polledAt,
		Answers:   answers,
	})
	if err != nil {
		logrus.Errorf("Failed to marshal poll archive: %v", err)
		return
	}

	filename := fmt.Sprintf("polls/%s/%s.json", brand.ID, polledAt.UTC().Format("2006-01-02-15-04-05.000"))
	if err := p.archive.Store(ctx, filename, data); err != nil {
		logrus.Errorf("Failed to archive poll for brand %s: %v", brand.ID, err)
	}
}
