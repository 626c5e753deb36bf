package retriever

import (
	"context"
	"fmt"
	"strconv"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// SemanticRetriever embeds the query and searches one collection.
type SemanticRetriever struct {
	index      port.VectorIndex
	embedder   port.Embedder
	collection string
}

func NewSemanticRetriever(index port.VectorIndex, embedder port.Embedder, collection string) (*SemanticRetriever, error) {
	if index == nil || embedder == nil {
		return nil, fmt.Errorf("semantic search not available: index and embedder are required")
	}
	if embedder.Dimension() != index.Dimension() {
		return nil, fmt.Errorf("embedder produces %d-dimensional vectors but index %s expects %d",
			embedder.Dimension(), index.Name(), index.Dimension())
	}
	return &SemanticRetriever{
		index:      index,
		embedder:   embedder,
		collection: collection,
	}, nil
}

func (r *SemanticRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.index.Query(ctx, r.collection, vector, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	chunks := make([]domain.ScoredChunk, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, domain.ScoredChunk{
			Chunk: chunkFromResult(result),
			Score: result.Score,
		})
	}

	return chunks, nil
}

func chunkFromResult(r port.VectorResult) domain.Chunk {
	c := domain.Chunk{
		ID:       r.ID,
		Text:     r.Text,
		Metadata: r.Metadata,
	}
	if idx, err := strconv.Atoi(r.Metadata[domain.MetaChunkIndex]); err == nil {
		c.Index = idx
	}
	return c
}
