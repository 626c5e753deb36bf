package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docrag/internal/domain"
	"docrag/internal/usecase"
)

var (
	queryFile string
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ingest a document and query it with document_query_tool",
	Long: `Build the retrieval tool for a document and invoke it once. The output is
exactly what an agent would receive: the top passages joined by blank lines,
or the pipeline error message.

Examples:
  docrag query -f report.pdf -q "quarterly revenue"
  docrag query -f notes.docx -q "action items" --top-k 3 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryFile, "file", "f", "", "document to query (required)")
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of passages (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("file")
	queryCmd.MarkFlagRequired("query")
}

type queryOutput struct {
	Tool   string                `json:"tool"`
	Query  string                `json:"query"`
	Output string                `json:"output"`
	Error  *domain.PipelineError `json:"error,omitempty"`
	Ingest *domain.IngestResult  `json:"ingest,omitempty"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	if queryTopK > 0 {
		cfg.Retrieval.TopK = queryTopK
	}

	p, err := newPipeline(ctx, cfg, GetRootDir(), GetLogger())
	if err != nil {
		return err
	}
	defer p.Close()

	res := p.rag.Build(ctx, usecase.Request{Path: absPath(queryFile), Config: cfg})
	defer res.Tool.Close()

	out := queryOutput{
		Tool:   res.Tool.Name(),
		Query:  queryText,
		Output: res.Tool.Invoke(ctx, queryText),
		Error:  res.Err,
	}
	if res.Err == nil {
		out.Ingest = &res.Result
	}

	if queryJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("[%s] %s\n\n", out.Tool, out.Query)
	fmt.Println(out.Output)
	return nil
}
