package cli

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docrag/internal/usecase"
)

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed a document into the vector index",
	Long: `Read a PDF, DOCX or TXT document, split it into chunks, embed them, and
replace the contents of the configured collection with them.

Examples:
  docrag ingest -f report.pdf
  docrag ingest -f notes.txt --config docrag.yaml`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "document to ingest (required)")
	ingestCmd.MarkFlagRequired("file")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	p, err := newPipeline(ctx, cfg, GetRootDir(), GetLogger())
	if err != nil {
		return err
	}
	defer p.Close()

	path := absPath(ingestFile)
	fmt.Printf("Reading & embedding document: %s\n", path)

	res := p.rag.Build(ctx, usecase.Request{
		Path:     path,
		Config:   cfg,
		Progress: embeddingProgress(),
	})
	defer res.Tool.Close()

	if res.Err != nil {
		return fmt.Errorf("failed to process document: %s", res.Tool.Invoke(ctx, ""))
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Ingest ID:   %s\n", res.Result.IngestID)
	fmt.Printf("  Collection:  %s\n", res.Result.Collection)
	fmt.Printf("  Characters:  %d\n", res.Result.Characters)
	fmt.Printf("  Chunks:      %d\n", res.Result.Chunks)
	fmt.Printf("  Dimension:   %d\n", res.Result.Dimension)
	if cfg.Store.Type == "memory" {
		fmt.Println("\nNote: the memory store does not outlive this command; use the bolt or mongodb store to keep the index.")
	}
	return nil
}

// embeddingProgress draws a progress bar on stderr once the chunk count is known.
func embeddingProgress() usecase.ProgressFunc {
	var (
		bar       *progressbar.ProgressBar
		mu        sync.Mutex
		startTime time.Time
	)

	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}

		bar.Set(done)

		if done > 0 && done < total {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
