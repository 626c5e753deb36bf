package store

import (
	"fmt"
	"math"
	"sort"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// RankByCosine scores every entry against query and returns the top k by
// descending similarity. Ties keep insertion order.
func RankByCosine(query []float32, entries []domain.IndexEntry, k int) []port.VectorResult {
	if k <= 0 || len(entries) == 0 {
		return nil
	}

	type scored struct {
		entry domain.IndexEntry
		score float64
	}

	scores := make([]scored, len(entries))
	for i, e := range entries {
		scores[i] = scored{entry: e, score: CosineSimilarity(query, e.Vector)}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if k > len(scores) {
		k = len(scores)
	}

	results := make([]port.VectorResult, k)
	for i := 0; i < k; i++ {
		results[i] = port.VectorResult{
			ID:       scores[i].entry.ID,
			Score:    scores[i].score,
			Text:     scores[i].entry.Text,
			Metadata: scores[i].entry.Metadata,
		}
	}
	return results
}

// CosineSimilarity calculates the cosine similarity between two vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CheckEntries verifies every entry has the expected dimension.
func CheckEntries(entries []domain.IndexEntry, dimension int) error {
	for i, e := range entries {
		if len(e.Vector) != dimension {
			return &DimensionError{Expected: dimension, Got: len(e.Vector), Position: i}
		}
	}
	return nil
}

// DimensionError reports a vector whose length does not match the index.
// CheckQuery reports a query vector whose length differs from dimension.
func CheckQuery(vector []float32, dimension int) error {
	if len(vector) != dimension {
		return fmt.Errorf("query dimension mismatch: expected %d, got %d", dimension, len(vector))
	}
	return nil
}

type DimensionError struct {
	Expected int
	Got      int
	Position int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vector dimension mismatch at entry %d: expected %d, got %d", e.Position, e.Expected, e.Got)
}
