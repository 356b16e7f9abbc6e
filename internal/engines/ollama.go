package engines

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/websapdev/ai-visibility/internal/models"
)

// OllamaFetcher asks a local Ollama model
type OllamaFetcher struct {
	api   *api.Client
	model string
}

// Ensure OllamaFetcher implements Fetcher
var _ Fetcher = (*OllamaFetcher)(nil)

// NewOllamaFetcher creates a fetcher against an Ollama server at baseURL
func NewOllamaFetcher(baseURL, model string, httpClient *http.Client) (*OllamaFetcher, error) {
	u, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaFetcher{
		api:   api.NewClient(u, httpClient),
		model: model,
	}, nil
}

func (o *OllamaFetcher) GetName() string {
	return "ollama"
}

func (o *OllamaFetcher) Fetch(ctx context.Context, engine models.AiEngine, prompt, brandName string, competitorNames []string) (string, error) {
	stream := false
	req := &api.GenerateRequest{Model: o.model, Prompt: prompt, Stream: &stream}

	var out strings.Builder
	err := o.api.Generate(ctx, req, func(r api.GenerateResponse) error {
		out.WriteString(r.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate failed for engine %s: %w", engine.Slug, err)
	}
	return out.String(), nil
}
