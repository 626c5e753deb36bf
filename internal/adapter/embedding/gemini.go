package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"docrag/internal/resilience"
)

const (
	defaultGeminiModel = "text-embedding-004"
	geminiMaxBatch     = 100
)

// GeminiEmbedder uses Google's embedding models. Documents and queries are
// embedded with their respective retrieval task types.
type GeminiEmbedder struct {
	client    *genai.Client
	docs      *genai.EmbeddingModel
	queries   *genai.EmbeddingModel
	model     string
	dimension int
	batchSize int
	guard     *resilience.Guard
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimension, batchSize int, guard *resilience.Guard) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for the google embedding provider")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	if dimension <= 0 {
		dimension = 768
	}
	if batchSize <= 0 || batchSize > geminiMaxBatch {
		batchSize = geminiMaxBatch
	}
	if guard == nil {
		guard = resilience.NewGuard("gemini-embeddings", 0, nil)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	docs := client.EmbeddingModel(model)
	docs.TaskType = genai.TaskTypeRetrievalDocument
	queries := client.EmbeddingModel(model)
	queries.TaskType = genai.TaskTypeRetrievalQuery

	return &GeminiEmbedder{
		client:    client,
		docs:      docs,
		queries:   queries,
		model:     model,
		dimension: dimension,
		batchSize: batchSize,
		guard:     guard,
	}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := e.docs.NewBatch()
		for _, text := range texts[i:end] {
			batch.AddContent(genai.Text(text))
		}

		resp, err := resilience.Do(ctx, e.guard, func() (*genai.BatchEmbedContentsResponse, error) {
			return e.docs.BatchEmbedContents(ctx, batch)
		})
		if err != nil {
			return nil, fmt.Errorf("gemini batch embedding failed: %w", err)
		}
		if len(resp.Embeddings) != end-i {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), end-i)
		}
		for _, emb := range resp.Embeddings {
			if err := e.check(emb); err != nil {
				return nil, err
			}
			out = append(out, emb.Values)
		}
	}
	return out, nil
}

func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	resp, err := resilience.Do(ctx, e.guard, func() (*genai.EmbedContentResponse, error) {
		return e.queries.EmbedContent(ctx, genai.Text(text))
	})
	if err != nil {
		return nil, fmt.Errorf("gemini query embedding failed: %w", err)
	}
	if err := e.check(resp.Embedding); err != nil {
		return nil, err
	}
	return resp.Embedding.Values, nil
}

func (e *GeminiEmbedder) check(emb *genai.ContentEmbedding) error {
	if emb == nil {
		return fmt.Errorf("gemini returned an empty embedding")
	}
	if len(emb.Values) != e.dimension {
		return fmt.Errorf("model %s returned %d-dimensional vectors, expected %d", e.model, len(emb.Values), e.dimension)
	}
	return nil
}

func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

func (e *GeminiEmbedder) ModelName() string {
	return e.model
}

func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
