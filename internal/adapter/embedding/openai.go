package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docrag/internal/resilience"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint
// (OpenAI, Ollama, Jina, DeepSeek).
type OpenAIEmbedder struct {
	apiKey    string
	model     string
	baseURL   string
	dimension int
	batchSize int
	client    *http.Client
	guard     *resilience.Guard
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// knownDimensions maps model names to their native output size.
var knownDimensions = map[string]int{
	"all-minilm":             384,
	"all-minilm:l6-v2":       384,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"jina-embeddings-v3":     1024,
}

// ModelDimension returns the native dimension of a known model, or 0.
func ModelDimension(model string) int {
	return knownDimensions[model]
}

// NewOllamaEmbedder talks to a local Ollama server. all-minilm produces the
// same 384-dimensional space as sentence-transformers' all-MiniLM-L6-v2.
func NewOllamaEmbedder(model, baseURL string, dimension, batchSize int, guard *resilience.Guard) *OpenAIEmbedder {
	if model == "" {
		model = "all-minilm"
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	return newOpenAIEmbedder("ollama", model, baseURL, dimension, batchSize, 120*time.Second, guard)
}

// NewOpenAICompatibleEmbedder creates an embedder for a hosted API.
func NewOpenAICompatibleEmbedder(apiKey, model, baseURL string, dimension, batchSize int, guard *resilience.Guard) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for %s", baseURL)
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return newOpenAIEmbedder(apiKey, model, baseURL, dimension, batchSize, 60*time.Second, guard), nil
}

func newOpenAIEmbedder(apiKey, model, baseURL string, dimension, batchSize int, timeout time.Duration, guard *resilience.Guard) *OpenAIEmbedder {
	if dimension <= 0 {
		dimension = ModelDimension(model)
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if guard == nil {
		guard = resilience.NewGuard("embeddings:"+model, 0, nil)
	}
	return &OpenAIEmbedder{
		apiKey:    apiKey,
		model:     model,
		baseURL:   baseURL,
		dimension: dimension,
		batchSize: batchSize,
		client: &http.Client{
			Timeout: timeout,
		},
		guard: guard,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		embeddings, err := resilience.Do(ctx, e.guard, func() ([][]float32, error) {
			return e.embedBatch(ctx, batch)
		})
		if err != nil {
			return nil, err
		}
		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Input: texts,
		Model: e.model,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, preview(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", preview(body), err)
	}

	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, fmt.Errorf("API returned out of range index %d", data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}
	for i, v := range embeddings {
		if v == nil {
			return nil, fmt.Errorf("API returned no embedding for input %d", i)
		}
		if e.dimension > 0 && len(v) != e.dimension {
			return nil, fmt.Errorf("model %s returned %d-dimensional vectors, expected %d", e.model, len(v), e.dimension)
		}
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

func preview(body []byte) string {
	if len(body) > 200 {
		return string(body[:200])
	}
	return string(body)
}
