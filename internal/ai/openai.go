package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"noteforge-server/internal/service"

	"github.com/sashabaranov/go-openai"
)

const temperature = 0.7

const systemPrompt = "You write well-structured notes. Answer with the note body only."

type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds a generator for the chat completions API. An
// empty baseURL keeps the library default.
func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classify(err error) error {
	status := 0

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", service.ErrGeneratorAuth, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", service.ErrGeneratorRateLimited, err)
	}

	return fmt.Errorf("failed to generate text: %w", err)
}
