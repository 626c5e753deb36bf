package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"docrag/config"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/extractor"
	"docrag/internal/adapter/memstore"
	"docrag/internal/adapter/store"
	"docrag/internal/logger"
	"docrag/internal/port"
	"docrag/internal/usecase"
)

// pipeline bundles the RAG tool use case with the resources it borrows.
type pipeline struct {
	rag      *usecase.RAGToolUseCase
	embedder port.Embedder
}

func (p *pipeline) Close() error {
	return embedding.Close(p.embedder)
}

func newPipeline(ctx context.Context, cfg *config.Config, root string, log *zap.Logger) (*pipeline, error) {
	embedder, err := embedding.New(ctx, cfg.Embedding, log)
	if err != nil {
		return nil, err
	}

	opener, err := indexOpener(cfg.Store, root, log)
	if err != nil {
		_ = embedding.Close(embedder)
		return nil, err
	}

	return &pipeline{
		rag:      usecase.NewRAGToolUseCase(extractor.New(log), embedder, opener, log),
		embedder: embedder,
	}, nil
}

// indexOpener maps the store section of the config to a connection factory.
func indexOpener(sc config.StoreConfig, root string, log *zap.Logger) (usecase.IndexOpener, error) {
	log = logger.OrNop(log)
	switch sc.Type {
	case "memory":
		var shared *memstore.MemoryIndex
		return func(_ context.Context, dimension int) (port.VectorIndex, error) {
			if shared == nil || shared.Dimension() != dimension {
				shared = memstore.NewMemoryIndex(dimension)
			}
			return shared, nil
		}, nil

	case "bolt":
		path := config.ResolvePath(root, sc.Path)
		return func(_ context.Context, dimension int) (port.VectorIndex, error) {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create index directory: %w", err)
			}
			return store.OpenBoltIndex(path, dimension)
		}, nil

	case "mongodb":
		opts := store.MongoOptions{
			URI:            sc.URI,
			Database:       sc.Database,
			IndexName:      sc.IndexName,
			ConnectTimeout: sc.ConnectTimeout,
			NumCandidates:  sc.NumCandidates,
		}
		return func(ctx context.Context, dimension int) (port.VectorIndex, error) {
			log.Info("connecting to MongoDB Atlas",
				zap.String("database", sc.Database),
				zap.String("collection", sc.Collection),
			)
			return store.OpenMongoIndex(ctx, opts, dimension, log)
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}

// absPath resolves a user-supplied document path against the root directory.
func absPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(GetRootDir(), path)
}
