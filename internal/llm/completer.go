// Package llm adapts hosted language models to a single text completion call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/abutispinach/agroplan/pkg/config"
)

// ErrEmptyResponse is returned when the backend answers with no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Completer sends one prompt and returns the free-text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// ModelCompleter drives any langchaingo model.
type ModelCompleter struct {
	Model llms.Model
}

func NewModelCompleter(model llms.Model) *ModelCompleter {
	return &ModelCompleter{Model: model}
}

func (c *ModelCompleter) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	resp, err := c.Model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithTemperature(temperature))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// New builds the completer for the named provider.
func New(ctx context.Context, name string, p config.ProviderConfig) (Completer, error) {
	switch name {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(p.APIKey),
			openai.WithModel(p.Model),
		}
		if p.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(p.BaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", name, err)
		}
		return NewModelCompleter(model), nil
	case "gemini":
		return NewGeminiCompleter(ctx, p.APIKey, p.Model)
	case "":
		return nil, errors.New("no enabled provider found in config")
	default:
		return nil, fmt.Errorf("provider %s not supported", name)
	}
}
