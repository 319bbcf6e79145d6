// Package provider builds the llm.Generator named by configuration.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/papercomputeco/scribe/pkg/llm"
	"github.com/papercomputeco/scribe/pkg/llm/provider/gemini"
	"github.com/papercomputeco/scribe/pkg/llm/provider/ollama"
	"github.com/papercomputeco/scribe/pkg/llm/provider/openai"
)

// ErrUnknownProvider is returned by New for unrecognised provider names.
var ErrUnknownProvider = errors.New("unknown provider")

// Config selects and configures a provider. Empty Model and BaseURL fall
// back to the provider's defaults.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string

	HTTPClient *http.Client
}

// New creates the Generator for cfg.Provider.
func New(ctx context.Context, cfg Config) (llm.Generator, error) {
	switch cfg.Provider {
	case Gemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			HTTPClient: cfg.HTTPClient,
		})
	case OpenAI:
		return openai.New(openai.Config{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			HTTPClient: cfg.HTTPClient,
		}), nil
	case Ollama:
		return ollama.New(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			HTTPClient: cfg.HTTPClient,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownProvider, cfg.Provider, SupportedProviders())
	}
}
