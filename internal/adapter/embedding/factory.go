package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"catalograg/config"
	"catalograg/internal/adapter/cache"
	"catalograg/internal/adapter/guard"
	"catalograg/internal/domain"
	"catalograg/internal/port"
)

// New builds the configured embedder wrapped with a guard and, for query
// embeddings, an LRU cache.
func New(ctx context.Context, cfg config.EmbeddingConfig, logger *slog.Logger) (port.Embedder, error) {
	var (
		inner port.Embedder
		err   error
	)

	switch cfg.Provider {
	case "gemini", "google", "":
		inner, err = NewGeminiEmbedder(ctx, cfg.APIKeyEnv, cfg.Model, cfg.Dimension, cfg.BatchSize)
	case "openai":
		inner, err = NewOpenAICompatibleEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.Dimension)
	case "ollama":
		inner, err = NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.Dimension)
	case "hashing":
		inner = NewHashingEmbedder(cfg.Dimension)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider: %s", domain.ErrConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	// The local provider has no remote failure modes to guard against.
	if cfg.Provider == "hashing" {
		return inner, nil
	}

	g := guard.New(guard.Settings{
		Name:      "embedding/" + inner.ModelName(),
		Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		RateLimit: cfg.RateLimit,
		Logger:    logger,
	})
	var embedder port.Embedder = NewGuardedEmbedder(inner, g)

	if cfg.CacheSize > 0 {
		qc := cache.NewQueryCache(cfg.CacheSize, time.Duration(cfg.CacheTTLSec)*time.Second)
		embedder = cache.NewCachedEmbedder(embedder, qc)
	}
	return embedder, nil
}
