package store

import (
	"context"
	"errors"
	"time"

	"github.com/websapdev/ai-visibility/internal/models"
)

// ErrNotFound is returned when a looked-up row does not exist
var ErrNotFound = errors.New("not found")

// Repository defines the contract for the relational visibility store
type Repository interface {
	// Catalog reads and writes (brand, competitor, prompt and engine rows)
	CreateBrand(ctx context.Context, brand *models.Brand) error
	GetBrand(ctx context.Context, id string) (*models.Brand, error)
	ListBrands(ctx context.Context) ([]models.Brand, error)
	CreateCompetitor(ctx context.Context, competitor *models.Competitor) error
	ListCompetitors(ctx context.Context, brandID string) ([]models.Competitor, error)
	CountCompetitors(ctx context.Context, brandID string) (int, error)
	CreatePrompt(ctx context.Context, prompt *models.TrackedPrompt) error
	ListActivePrompts(ctx context.Context, brandID string) ([]models.TrackedPrompt, error)
	UpsertEngine(ctx context.Context, engine *models.AiEngine) error
	ListEngines(ctx context.Context) ([]models.AiEngine, error)

	// CreateAnswer stores an answer and its mentions atomically
	CreateAnswer(ctx context.Context, answer *models.AiAnswer) error
	ListAnswersSince(ctx context.Context, brandID, engineID string, since time.Time) ([]models.AiAnswer, error)
	ListPromptActivity(ctx context.Context, brandID string) ([]models.PromptActivity, error)

	UpsertSnapshot(ctx context.Context, snapshot *models.VisibilitySnapshot) error
	ListSnapshotsSince(ctx context.Context, brandID string, since time.Time) ([]models.VisibilitySnapshot, error)

	Close() error
}
