package provider

import (
	"github.com/papercomputeco/scribe/pkg/llm/provider/gemini"
	"github.com/papercomputeco/scribe/pkg/llm/provider/ollama"
	"github.com/papercomputeco/scribe/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Gemini = gemini.Name
	OpenAI = openai.Name
	Ollama = ollama.Name
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Gemini, OpenAI, Ollama}
}

// DefaultModel returns the model used by providerType when none is configured.
func DefaultModel(providerType string) string {
	switch providerType {
	case Gemini:
		return gemini.DefaultModel
	case OpenAI:
		return openai.DefaultModel
	case Ollama:
		return ollama.DefaultModel
	default:
		return ""
	}
}

// APIKeyEnv returns the vendor environment variables holding an API key for
// providerType, in lookup order. Ollama takes no key.
func APIKeyEnv(providerType string) []string {
	switch providerType {
	case Gemini:
		return []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}
	case OpenAI:
		return []string{"OPENAI_API_KEY"}
	default:
		return nil
	}
}
