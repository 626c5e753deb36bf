package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docrag/internal/adapter/llm"
	"docrag/internal/resilience"
	"docrag/internal/usecase"
)

var (
	askFile     string
	askQuestion string
	askVerbose  bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question about a document with two agents",
	Long: `Ingest a document, let the Document Analyst retrieve the relevant passages
with document_query_tool, and let the Sales AI Assistant compose the final answer
from the analyst's context alone.

The LLM is configured in the llm section (Groq by default; set GROQ_API_KEY).

Examples:
  docrag ask -f brochure.pdf -q "What is the warranty period?"
  docrag ask -f notes.txt -q "Who owns the follow-up?" -v`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "document to ask about (required)")
	askCmd.Flags().StringVarP(&askQuestion, "query", "q", "", "question (required)")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "print the analyst's context as well")
	askCmd.MarkFlagRequired("file")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()
	log := GetLogger()

	client, err := llm.NewClient(llm.Options{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		Guard:       resilience.NewGuard("llm:"+cfg.LLM.Provider, 0, log),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize LLM: %w", err)
	}

	p, err := newPipeline(ctx, cfg, GetRootDir(), log)
	if err != nil {
		return err
	}
	defer p.Close()

	tool := p.rag.Tool(ctx, usecase.Request{Path: absPath(askFile), Config: cfg})
	defer tool.Close()

	res, err := usecase.NewAskUseCase(client, log).Ask(ctx, tool, askQuestion)
	if err != nil {
		return err
	}

	if askVerbose {
		fmt.Println("--- Document Analyst ---")
		fmt.Println(res.Analysis)
		fmt.Println()
		fmt.Println("--- Answer ---")
	}
	fmt.Println(res.Answer)

	stats := client.Stats()
	log.Debug("LLM usage",
		zap.Int("calls", stats.TotalCalls),
		zap.Int("input_chars", stats.TotalInputChars),
		zap.Int("output_chars", stats.TotalOutputChars),
	)
	return nil
}
