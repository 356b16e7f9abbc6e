package engines

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/websapdev/ai-visibility/internal/models"
)

// FakeFetcher produces templated answers without any network access. The
// template is chosen by engine slug; the variations are derived from a hash
// of the inputs so the same call always yields the same text.
type FakeFetcher struct {
	latency time.Duration
}

// Ensure FakeFetcher implements Fetcher
var _ Fetcher = (*FakeFetcher)(nil)

// NewFakeFetcher creates a fake fetcher that waits latency before answering
func NewFakeFetcher(latency time.Duration) *FakeFetcher {
	return &FakeFetcher{latency: latency}
}

func (f *FakeFetcher) GetName() string {
	return "fake"
}

func (f *FakeFetcher) Fetch(ctx context.Context, engine models.AiEngine, prompt, brandName string, competitorNames []string) (string, error) {
	if f.latency > 0 {
		timer := time.NewTimer(f.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	seed := fakeSeed(engine.Slug, prompt, brandName)
	isPositive := seed%10 >= 3
	includeCompetitor := (seed/10)%10 >= 4

	competitor := "CompetitorX"
	if len(competitorNames) > 0 {
		competitor = competitorNames[(seed/100)%uint64(len(competitorNames))]
	}

	var parts []string
	switch engine.Slug {
	case "chatgpt":
		parts = append(parts, fmt.Sprintf("Here is a comparison. %s is a leading solution known for its robust features.", brandName))
		if isPositive {
			parts = append(parts, "Users love the interface.")
		} else {
			parts = append(parts, "However, some find it expensive.")
		}
		if includeCompetitor {
			parts = append(parts, fmt.Sprintf("Alternatively, %s offers a cheaper price point but fewer features.", competitor))
		}
	case "perplexity":
		parts = append(parts, fmt.Sprintf("Based on search results, %s is frequently mentioned as a top choice.", brandName))
		if includeCompetitor {
			parts = append(parts, fmt.Sprintf("%s is also a strong contender in the market.", competitor))
		}
		parts = append(parts, fmt.Sprintf("%s has excellent support.", brandName))
	default:
		parts = append(parts, fmt.Sprintf("%s provides a comprehensive platform.", brandName))
		if includeCompetitor {
			parts = append(parts, fmt.Sprintf("Compared to %s, it is more enterprise-focused.", competitor))
		}
	}

	return strings.Join(parts, " "), nil
}

func fakeSeed(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
