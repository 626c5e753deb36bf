package embedding

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"docrag/config"
	"docrag/internal/adapter/cache"
	"docrag/internal/port"
	"docrag/internal/resilience"
)

// New builds the embedder described by cfg, with normalization and query
// caching layered on top when configured.
func New(ctx context.Context, cfg config.EmbeddingConfig, log *zap.Logger) (port.Embedder, error) {
	var (
		embedder port.Embedder
		err      error
	)

	guard := resilience.NewGuard("embeddings:"+cfg.Provider, cfg.RequestsPerMin, log)

	switch cfg.Provider {
	case "hashing", "":
		embedder = NewHashingEmbedder(cfg.Dimension)
	case "ollama":
		embedder = NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.Dimension, cfg.BatchSize, guard)
	case "openai":
		embedder, err = NewOpenAICompatibleEmbedder(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Dimension, cfg.BatchSize, guard)
	case "google", "gemini":
		embedder, err = NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.Dimension, cfg.BatchSize, guard)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	if cfg.Normalize {
		embedder = NormalizingEmbedder{Embedder: embedder}
	}
	if cfg.QueryCacheSize > 0 {
		embedder = NewCachingEmbedder(embedder, cache.NewQueryCache(cfg.QueryCacheSize, cfg.QueryCacheTTL))
	}
	return embedder, nil
}

// Close releases the client behind embedder, if it holds one.
func Close(embedder port.Embedder) error {
	for {
		switch e := embedder.(type) {
		case io.Closer:
			return e.Close()
		case *CachingEmbedder:
			embedder = e.Embedder
		case NormalizingEmbedder:
			embedder = e.Embedder
		default:
			return nil
		}
	}
}
