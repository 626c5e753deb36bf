package retriever

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"docrag/internal/logger"
	"docrag/internal/port"
)

const (
	ToolName        = "document_query_tool"
	ToolDescription = "A tool to query the uploaded document. Use this to find specific information, facts, or answers from the document's content."

	ErrorToolName = "Error Tool"

	// NoResultsMessage is returned when the collection has nothing to match.
	NoResultsMessage = "No relevant content was found in the document."
)

// RetrievalTool answers a query with the top-k chunks joined by blank lines.
// It owns the resources passed as closers.
type RetrievalTool struct {
	retriever port.Retriever
	topK      int
	closers   []io.Closer
	logger    *zap.Logger
}

func NewRetrievalTool(r port.Retriever, topK int, log *zap.Logger, closers ...io.Closer) *RetrievalTool {
	if topK <= 0 {
		topK = 5
	}
	return &RetrievalTool{
		retriever: r,
		topK:      topK,
		closers:   closers,
		logger:    logger.OrNop(log),
	}
}

func (t *RetrievalTool) Name() string        { return ToolName }
func (t *RetrievalTool) Description() string { return ToolDescription }

// Invoke never panics and never returns an error; failures come back as an
// "Error: ..." string the agent can read.
func (t *RetrievalTool) Invoke(ctx context.Context, query string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("retrieval panicked", zap.Any("panic", r))
			out = fmt.Sprintf("Error: document query failed: %v", r)
		}
	}()

	if strings.TrimSpace(query) == "" {
		return "Error: the query is empty"
	}

	chunks, err := t.retriever.Search(ctx, query, t.topK)
	if err != nil {
		t.logger.Warn("retrieval failed", zap.String("query", query), zap.Error(err))
		return "Error: document query failed: " + err.Error()
	}
	if len(chunks) == 0 {
		return NoResultsMessage
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk.Text
	}
	return strings.Join(texts, "\n\n")
}

// Close releases the index connection and any other owned resources.
func (t *RetrievalTool) Close() error {
	var errs []error
	for _, c := range t.closers {
		errs = append(errs, c.Close())
	}
	t.closers = nil
	return errors.Join(errs...)
}

// ErrorTool stands in for the retrieval tool when the pipeline failed. It
// returns the same message for every query.
type ErrorTool struct {
	message     string
	description string
}

func NewErrorTool(message, description string) *ErrorTool {
	if description == "" {
		description = "A dummy tool that reports a document processing error."
	}
	return &ErrorTool{message: message, description: description}
}

func (t *ErrorTool) Name() string        { return ErrorToolName }
func (t *ErrorTool) Description() string { return t.description }

func (t *ErrorTool) Invoke(context.Context, string) string {
	return t.message
}

func (t *ErrorTool) Close() error { return nil }

// Message is the captured failure text.
func (t *ErrorTool) Message() string { return t.message }
