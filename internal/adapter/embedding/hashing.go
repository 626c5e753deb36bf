package embedding

import (
	"context"
	"fmt"
	"hash/fnv"

	"docrag/internal/adapter/analyzer"
	"docrag/internal/port"
)

// HashingEmbedder is a local, deterministic embedder. Each term and each
// adjacent term pair is hashed into one of dimension buckets with a
// hash-derived sign. It needs no network and no model files.
type HashingEmbedder struct {
	dimension int
	tokenizer port.Tokenizer
}

func NewHashingEmbedder(dimension int) *HashingEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashingEmbedder{
		dimension: dimension,
		tokenizer: analyzer.NewTokenizer(true),
	}
}

func (e *HashingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.vector(text)
	}
	return embeddings, nil
}

func (e *HashingEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *HashingEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dimension)
	terms := e.tokenizer.Tokenize(text)
	for i, term := range terms {
		e.add(v, term, 1)
		if i > 0 {
			e.add(v, terms[i-1]+" "+term, 0.5)
		}
	}
	return v
}

func (e *HashingEmbedder) add(v []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	idx := sum % uint64(e.dimension)
	if sum>>63 == 1 {
		weight = -weight
	}
	v[idx] += weight
}

func (e *HashingEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashingEmbedder) ModelName() string {
	return fmt.Sprintf("hashing-%d", e.dimension)
}
