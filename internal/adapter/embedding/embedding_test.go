package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/config"
	"docrag/internal/adapter/cache"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashingEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	e := NewHashingEmbedder(384)
	texts := []string{"The sky is blue.", "Quarterly revenue grew by 12 percent."}

	first, err := e.Embed(ctx, texts)
	require.NoError(t, err)
	second, err := NewHashingEmbedder(384).Embed(ctx, texts)
	require.NoError(t, err)

	require.Len(t, first, 2)
	for i := range first {
		require.Len(t, first[i], 384)
		assert.InDeltaSlice(t, first[i], second[i], 1e-6)
	}

	q, err := e.EmbedQuery(ctx, texts[0])
	require.NoError(t, err)
	assert.InDeltaSlice(t, first[0], q, 1e-6)
}

func TestHashingEmbedder_RanksRelatedTextHigher(t *testing.T) {
	ctx := context.Background()
	e := NewHashingEmbedder(384)

	docs, err := e.Embed(ctx, []string{
		"The sky is blue.",
		"The grass is green.",
		"Invoices are due within thirty days.",
	})
	require.NoError(t, err)
	q, err := e.EmbedQuery(ctx, "What color is the sky?")
	require.NoError(t, err)

	sky := cosine(q, docs[0])
	assert.Greater(t, sky, cosine(q, docs[1]))
	assert.Greater(t, sky, cosine(q, docs[2]))
}

func TestHashingEmbedder_NotNormalized(t *testing.T) {
	v, err := NewHashingEmbedder(64).EmbedQuery(context.Background(), "alpha beta gamma delta")
	require.NoError(t, err)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.Greater(t, sum, 1.5)
}

func TestNormalizingEmbedder(t *testing.T) {
	e := NormalizingEmbedder{Embedder: NewHashingEmbedder(64)}

	v, err := e.EmbedQuery(context.Background(), "alpha beta gamma delta")
	require.NoError(t, err)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)

	zero, err := e.EmbedQuery(context.Background(), "")
	require.NoError(t, err)
	for _, x := range zero {
		assert.Zero(t, x)
	}
}

type countingEmbedder struct {
	*HashingEmbedder
	queries int
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	c.queries++
	return c.HashingEmbedder.EmbedQuery(ctx, text)
}

func TestCachingEmbedder(t *testing.T) {
	inner := &countingEmbedder{HashingEmbedder: NewHashingEmbedder(32)}
	e := NewCachingEmbedder(inner, cache.NewQueryCache(10, time.Minute))

	a, err := e.EmbedQuery(context.Background(), "sky")
	require.NoError(t, err)
	b, err := e.EmbedQuery(context.Background(), "sky")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, inner.queries)
}

func newEmbeddingServer(t *testing.T, dim int, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"overloaded"}}`))
			return
		}

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// answer in reverse order to exercise index mapping
		resp := embeddingResponse{}
		for i := len(req.Input) - 1; i >= 0; i-- {
			v := make([]float32, dim)
			v[0] = float32(len(req.Input[i]))
			resp.Data = append(resp.Data, embeddingData{Embedding: v, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIEmbedder_PreservesOrderAcrossBatches(t *testing.T) {
	srv := newEmbeddingServer(t, 4, http.StatusOK)
	defer srv.Close()

	e, err := NewOpenAICompatibleEmbedder("secret", "test-model", srv.URL, 4, 2, nil)
	require.NoError(t, err)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := e.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, v := range vectors {
		assert.Equal(t, float32(len(texts[i])), v[0])
	}
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	srv := newEmbeddingServer(t, 8, http.StatusOK)
	defer srv.Close()

	e, err := NewOpenAICompatibleEmbedder("secret", "test-model", srv.URL, 384, 10, nil)
	require.NoError(t, err)

	_, err = e.EmbedQuery(context.Background(), "sky")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 384")
}

func TestOpenAIEmbedder_HTTPError(t *testing.T) {
	srv := newEmbeddingServer(t, 4, http.StatusServiceUnavailable)
	defer srv.Close()

	e, err := NewOpenAICompatibleEmbedder("secret", "test-model", srv.URL, 4, 10, nil)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestOllamaEmbedder_Defaults(t *testing.T) {
	e := NewOllamaEmbedder("", "", 0, 0, nil)
	assert.Equal(t, "all-minilm", e.ModelName())
	assert.Equal(t, 384, e.Dimension())
}

func TestNew_Providers(t *testing.T) {
	ctx := context.Background()

	e, err := New(ctx, config.DefaultConfig().Embedding, nil)
	require.NoError(t, err)
	assert.Equal(t, 384, e.Dimension())
	assert.Equal(t, "hashing-384", e.ModelName())
	assert.NoError(t, Close(e))

	_, err = New(ctx, config.EmbeddingConfig{Provider: "word2vec"}, nil)
	assert.Error(t, err)

	_, err = New(ctx, config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small"}, nil)
	assert.Error(t, err, "missing API key")

	e, err = New(ctx, config.EmbeddingConfig{Provider: "hashing", Dimension: 16, Normalize: true}, nil)
	require.NoError(t, err)
	_, ok := e.(NormalizingEmbedder)
	assert.True(t, ok)
}
