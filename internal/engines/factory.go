package engines

import (
	"fmt"

	"github.com/websapdev/ai-visibility/internal/config"
)

// NewFetcher builds the fetcher named by cfg.Fetcher
func NewFetcher(cfg *config.Config) (Fetcher, error) {
	switch cfg.Fetcher {
	case "fake":
		return NewFakeFetcher(cfg.FakeFetchLatency), nil
	case "openai":
		return NewOpenAIFetcher(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case "ollama":
		o, err := NewOllamaFetcher(cfg.OllamaBaseURL, cfg.OllamaModel, nil)
		if err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unknown fetcher %q", cfg.Fetcher)
	}
}
