package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"jobradar.fyi/jobradar/internal/config"
)

// BatchProvider is implemented by providers that can embed many texts
// in one request. The backfill worker prefers it when available.
type BatchProvider interface {
	Provider
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// NewProvider builds the configured provider. An unset or "disabled"
// provider yields the Disabled stub so callers never branch on nil.
func NewProvider(cfg *config.Config, logger zerolog.Logger) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.EmbeddingProvider)) {
	case "", "disabled":
		logger.Info().Msg("embeddings disabled")
		return Disabled{}, nil
	case "http":
		provider := NewHTTPProvider(HTTPOptions{
			Endpoint:   cfg.EmbeddingEndpoint,
			ModelName:  cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
			MaxLength:  cfg.EmbeddingMaxLength,
		})
		logger.Info().
			Str("endpoint", cfg.EmbeddingEndpoint).
			Str("model", provider.ModelName()).
			Msg("using http embedding provider")
		return provider, nil
	case "openai":
		provider, err := NewOpenAIProvider(OpenAIOptions{
			BaseURL:    cfg.EmbeddingBaseURL,
			APIKey:     cfg.EmbeddingAPIKey,
			ModelName:  cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().
			Str("base_url", cfg.EmbeddingBaseURL).
			Str("model", provider.ModelName()).
			Msg("using openai-compatible embedding provider")
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}
