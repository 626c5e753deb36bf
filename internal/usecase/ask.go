package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"docrag/internal/adapter/retriever"
	"docrag/internal/logger"
	"docrag/internal/port"
)

const analystSystemPrompt = `You are a Document Analyst, an expert at parsing documents and extracting key information.
You are given text snippets retrieved from the uploaded document with the document_query_tool.
Select every snippet that helps answer the user's question and return them verbatim.
Do not summarize, paraphrase, or add information that is not in the snippets.
If nothing is relevant, reply exactly: NO RELEVANT CONTEXT`

const assistantSystemPrompt = `You are a friendly and professional Sales AI Assistant.
You do not have access to any tools or documents yourself. You rely only on the context
given to you by the Document Analyst to formulate your final answer.
If the context does not contain the answer, say that the document does not cover it.`

// AskResult is the outcome of the two-agent flow.
type AskResult struct {
	Answer    string
	Analysis  string
	Retrieved string
}

// AskUseCase runs the sequential hand-off: the analyst queries the document
// tool, and the assistant answers from the analyst's output alone.
type AskUseCase struct {
	llm    port.LLM
	logger *zap.Logger
}

func NewAskUseCase(llm port.LLM, log *zap.Logger) *AskUseCase {
	return &AskUseCase{llm: llm, logger: logger.OrNop(log)}
}

// Ask answers question about the document behind tool. An error tool fails
// the whole flow with the captured pipeline message.
func (u *AskUseCase) Ask(ctx context.Context, tool port.Tool, question string) (*AskResult, error) {
	if tool.Name() == retriever.ErrorToolName {
		return nil, fmt.Errorf("Failed to process document: %s", tool.Invoke(ctx, ""))
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is empty")
	}

	retrieved := tool.Invoke(ctx, question)
	u.logger.Debug("document analyst retrieved context",
		zap.String("tool", tool.Name()),
		zap.Int("chars", len(retrieved)),
	)

	analysis, err := u.llm.GenerateWithSystem(ctx, analystSystemPrompt, analystPrompt(question, retrieved))
	if err != nil {
		return nil, fmt.Errorf("document analyst failed: %w", err)
	}

	answer, err := u.llm.GenerateWithSystem(ctx, assistantSystemPrompt, assistantPrompt(question, analysis))
	if err != nil {
		return nil, fmt.Errorf("sales assistant failed: %w", err)
	}

	u.logger.Info("answer composed", zap.String("model", u.llm.ModelName()))
	return &AskResult{
		Answer:    strings.TrimSpace(answer),
		Analysis:  analysis,
		Retrieved: retrieved,
	}, nil
}

func analystPrompt(question, retrieved string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\n", question)
	sb.WriteString("Output of document_query_tool:\n")
	sb.WriteString(retrieved)
	return sb.String()
}

func assistantPrompt(question, analysis string) string {
	var sb strings.Builder
	sb.WriteString("Context from the Document Analyst:\n")
	sb.WriteString(analysis)
	fmt.Fprintf(&sb, "\n\nUsing only this context, craft a clear and helpful answer to the question: %s", question)
	return sb.String()
}
