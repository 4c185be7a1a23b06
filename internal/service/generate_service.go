package service

import (
	"context"
	"strings"
)

const (
	DefaultGenerateMaxTokens = 500
	msgPromptRequired        = "Prompt cannot be empty"
)

// TextGenerator drafts text from a prompt. Implementations report rejected
// credentials as ErrGeneratorAuth and throttling as ErrGeneratorRateLimited.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type GenerateService struct {
	generator    TextGenerator
	maxTokensCap int
}

func NewGenerateService(generator TextGenerator, maxTokensCap int) *GenerateService {
	return &GenerateService{
		generator:    generator,
		maxTokensCap: maxTokensCap,
	}
}

func (s *GenerateService) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &ValidationError{Message: msgPromptRequired}
	}

	if maxTokens <= 0 {
		maxTokens = DefaultGenerateMaxTokens
	}
	if s.maxTokensCap > 0 && maxTokens > s.maxTokensCap {
		maxTokens = s.maxTokensCap
	}

	return s.generator.Generate(ctx, prompt, maxTokens)
}
