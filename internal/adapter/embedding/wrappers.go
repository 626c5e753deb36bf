package embedding

import (
	"context"
	"math"

	"docrag/internal/adapter/cache"
	"docrag/internal/port"
)

// NormalizingEmbedder scales every vector to unit length.
type NormalizingEmbedder struct {
	port.Embedder
}

func (e NormalizingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	for _, v := range vectors {
		normalize(v)
	}
	return vectors, nil
}

func (e NormalizingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := e.Embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	normalize(v)
	return v, nil
}

// normalize scales v in place; zero vectors are left unchanged.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

// CachingEmbedder remembers query embeddings. Document embeddings are not
// cached.
type CachingEmbedder struct {
	port.Embedder
	cache *cache.QueryCache
}

func NewCachingEmbedder(inner port.Embedder, c *cache.QueryCache) *CachingEmbedder {
	return &CachingEmbedder{Embedder: inner, cache: c}
}

func (e *CachingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(e.ModelName(), text); ok {
		return v, nil
	}
	v, err := e.Embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Put(e.ModelName(), text, v)
	return v, nil
}
