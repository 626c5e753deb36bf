package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/memstore"
	"docrag/internal/domain"
	"docrag/internal/port"
)

var (
	_ port.Tool = (*RetrievalTool)(nil)
	_ port.Tool = (*ErrorTool)(nil)
)

type stubRetriever struct {
	chunks []domain.ScoredChunk
	err    error
	panics bool
	gotK   int
}

func (s *stubRetriever) Search(_ context.Context, _ string, k int) ([]domain.ScoredChunk, error) {
	if s.panics {
		panic("index exploded")
	}
	s.gotK = k
	return s.chunks, s.err
}

type closeRecorder struct {
	closed int
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed++
	return c.err
}

func scored(texts ...string) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(texts))
	for i, t := range texts {
		out[i] = domain.ScoredChunk{Chunk: domain.Chunk{Text: t}, Score: 1 - float64(i)*0.1}
	}
	return out
}

func TestRetrievalTool_JoinsChunksInRankOrder(t *testing.T) {
	r := &stubRetriever{chunks: scored("first", "second", "third")}
	tool := NewRetrievalTool(r, 5, nil)

	assert.Equal(t, "document_query_tool", tool.Name())
	assert.NotEmpty(t, tool.Description())
	assert.Equal(t, "first\n\nsecond\n\nthird", tool.Invoke(context.Background(), "anything"))
	assert.Equal(t, 5, r.gotK)
}

func TestRetrievalTool_ErrorsBecomeText(t *testing.T) {
	tool := NewRetrievalTool(&stubRetriever{err: errors.New("connection reset")}, 5, nil)
	out := tool.Invoke(context.Background(), "q")
	assert.Contains(t, out, "Error:")
	assert.Contains(t, out, "connection reset")

	tool = NewRetrievalTool(&stubRetriever{panics: true}, 5, nil)
	out = tool.Invoke(context.Background(), "q")
	assert.Contains(t, out, "index exploded")
}

func TestRetrievalTool_EmptyQueryAndNoResults(t *testing.T) {
	tool := NewRetrievalTool(&stubRetriever{}, 5, nil)

	assert.Contains(t, tool.Invoke(context.Background(), "  "), "Error:")
	assert.Equal(t, NoResultsMessage, tool.Invoke(context.Background(), "q"))
}

func TestRetrievalTool_CloseReleasesOnce(t *testing.T) {
	a := &closeRecorder{}
	b := &closeRecorder{err: errors.New("disconnect failed")}
	tool := NewRetrievalTool(&stubRetriever{}, 5, nil, a, b)

	err := tool.Close()
	assert.ErrorContains(t, err, "disconnect failed")
	assert.NoError(t, tool.Close())
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)
}

func TestErrorTool_ReturnsSameMessage(t *testing.T) {
	tool := NewErrorTool("Error: file not found at path: /tmp/x.pdf", "")

	assert.Equal(t, "Error Tool", tool.Name())
	for _, q := range []string{"", "what?", "anything else"} {
		assert.Equal(t, "Error: file not found at path: /tmp/x.pdf", tool.Invoke(context.Background(), q))
	}
	assert.NoError(t, tool.Close())
}

func TestSemanticRetriever_EndToEnd(t *testing.T) {
	ctx := context.Background()
	emb := embedding.NewHashingEmbedder(384)
	idx := memstore.NewMemoryIndex(384)

	texts := []string{"The sky is blue.", "The grass is green.", "Payment terms are thirty days."}
	vectors, err := emb.Embed(ctx, texts)
	require.NoError(t, err)
	entries := make([]domain.IndexEntry, len(texts))
	for i := range texts {
		entries[i] = domain.IndexEntry{
			ID:       texts[i],
			Vector:   vectors[i],
			Text:     texts[i],
			Metadata: map[string]string{domain.MetaChunkIndex: "7"},
		}
	}
	require.NoError(t, idx.Upsert(ctx, "docs", entries))

	r, err := NewSemanticRetriever(idx, emb, "docs")
	require.NoError(t, err)

	results, err := r.Search(ctx, "What color is the sky?", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "The sky is blue.", results[0].Chunk.Text)
	assert.Equal(t, 7, results[0].Chunk.Index)
}

func TestNewSemanticRetriever_DimensionMismatch(t *testing.T) {
	_, err := NewSemanticRetriever(memstore.NewMemoryIndex(10), embedding.NewHashingEmbedder(384), "docs")
	assert.Error(t, err)

	_, err = NewSemanticRetriever(nil, embedding.NewHashingEmbedder(384), "docs")
	assert.Error(t, err)
}
