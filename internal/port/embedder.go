package port

import (
	"context"

	"docrag/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorIndex is a collection-scoped store of embedded chunks.
type VectorIndex interface {
	// Verify checks that collection can hold vectors of Dimension().
	Verify(ctx context.Context, collection string) error

	// Clear removes every entry of the collection.
	Clear(ctx context.Context, collection string) error

	// Upsert stores all entries or none of them.
	Upsert(ctx context.Context, collection string, entries []domain.IndexEntry) error

	// Query returns the min(k, n) entries closest to vector,
	// ordered by descending cosine similarity.
	Query(ctx context.Context, collection string, vector []float32, k int) ([]VectorResult, error)

	// Dimension is the vector length the index was opened with.
	Dimension() int

	// Name identifies the index in error messages.
	Name() string

	Close() error
}

// VectorResult represents a search result.
type VectorResult struct {
	ID       string            // Entry ID
	Score    float64           // Similarity score (higher is better)
	Text     string            // Stored chunk text
	Metadata map[string]string // Stored metadata
}
