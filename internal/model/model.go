package model

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Message is one prior turn handed to the backend as context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ErrUnavailable wraps every backend failure so callers can treat "the
// model could not answer" uniformly, whatever the provider.
var ErrUnavailable = errors.New("model backend unavailable")

// Client is the narrow contract the chat engine depends on.
type Client interface {
	Generate(ctx context.Context, prompt string, history []Message) (string, error)
}

// Config controls client construction.
type Config struct {
	Mode         string
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
}

// NewClient builds a backend client for the configured mode. Forcing a real
// provider without its credential is a startup-fatal configuration error.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, errors.New("MODEL_PROVIDER=gemini but GOOGLE_API_KEY is not set")
		}
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, errors.New("MODEL_PROVIDER=openai but OPENAI_API_KEY is not set")
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case "mock":
		return NewMockClient(), nil
	case "auto":
		if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
			log.Printf("model provider: gemini (%s)", cfg.GeminiModel)
			return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		}
		if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
			log.Printf("model provider: openai (%s)", cfg.OpenAIModel)
			return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
		}
		log.Printf("model provider: mock (no API key configured)")
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Mode)
	}
}
