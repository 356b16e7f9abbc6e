package engines

import (
	"context"

	"github.com/websapdev/ai-visibility/internal/models"
)

// Fetcher asks an AI engine a tracked prompt and returns its raw answer.
// Implementations may be slow or remote and must honour ctx cancellation.
type Fetcher interface {
	GetName() string
	Fetch(ctx context.Context, engine models.AiEngine, prompt, brandName string, competitorNames []string) (string, error)
}
