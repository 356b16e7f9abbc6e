package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/websapdev/ai-visibility/internal/models"
)

// OpenAIFetcher asks any OpenAI-compatible chat completions endpoint
type OpenAIFetcher struct {
	client *resty.Client
	model  string
}

// Ensure OpenAIFetcher implements Fetcher
var _ Fetcher = (*OpenAIFetcher)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIFetcher creates a fetcher for baseURL (e.g. https://api.openai.com/v1)
func NewOpenAIFetcher(baseURL, apiKey, model string) *OpenAIFetcher {
	return &OpenAIFetcher{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetAuthToken(apiKey).
			SetTimeout(60*time.Second).
			SetHeader("User-Agent", "AI-Visibility-Poller/1.0"),
		model: model,
	}
}

func (o *OpenAIFetcher) GetName() string {
	return "openai"
}

func (o *OpenAIFetcher) Fetch(ctx context.Context, engine models.AiEngine, prompt, brandName string, competitorNames []string) (string, error) {
	// Only the prompt is sent, exactly as a user would ask it.
	body := chatCompletionRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}

	resp, err := o.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil && resp.IsSuccess() {
		return "", fmt.Errorf("failed to decode chat completion: %w", err)
	}

	if !resp.IsSuccess() {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("chat completion returned status %d: %s", resp.StatusCode(), parsed.Error.Message)
		}
		return "", fmt.Errorf("chat completion returned status %d", resp.StatusCode())
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	logrus.Debugf("Engine %s answered %d characters via %s", engine.Slug, len(parsed.Choices[0].Message.Content), o.model)
	return parsed.Choices[0].Message.Content, nil
}
