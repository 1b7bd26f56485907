package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by NewFromEnv
const (
	EnvProvider     = "MEMINDEX_EMBEDDING_PROVIDER"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvVoyageAPIKey = "VOYAGE_API_KEY"
)

// Config holds provider configuration
type Config struct {
	Provider string
	APIKey   string
	Model    string
}

// New creates a provider from explicit configuration
func New(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model)
	case ProviderVoyage:
		return NewVoyageProvider(cfg.APIKey, cfg.Model)
	case ProviderLocal, "":
		return NewLocalProvider(), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// NewFromEnv creates a provider based on environment variables.
// Priority: explicit MEMINDEX_EMBEDDING_PROVIDER, then available API
// keys (openai before voyage), then the offline local provider.
func NewFromEnv() (Provider, error) {
	provider := strings.ToLower(os.Getenv(EnvProvider))
	openaiKey := os.Getenv(EnvOpenAIAPIKey)
	voyageKey := os.Getenv(EnvVoyageAPIKey)

	if provider != "" {
		switch provider {
		case ProviderOpenAI:
			return NewOpenAIProvider(openaiKey, "")
		case ProviderVoyage:
			return NewVoyageProvider(voyageKey, "")
		case ProviderLocal:
			return NewLocalProvider(), nil
		default:
			return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, provider)
		}
	}

	if openaiKey != "" {
		return NewOpenAIProvider(openaiKey, "")
	}
	if voyageKey != "" {
		return NewVoyageProvider(voyageKey, "")
	}
	return NewLocalProvider(), nil
}

// DetectProvider returns the provider NewFromEnv would select
func DetectProvider() string {
	if provider := strings.ToLower(os.Getenv(EnvProvider)); provider != "" {
		return provider
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	if os.Getenv(EnvVoyageAPIKey) != "" {
		return ProviderVoyage
	}
	return ProviderLocal
}
