// Command benchmark inspects retrieval quality against a persisted bolt index.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docrag/config"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/store"
	"docrag/internal/domain"
)

func main() {
	rootDir := flag.String("dir", ".", "Directory holding docrag.yaml and the bolt index")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 5, "Number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\"")
		fmt.Println("\nRequires an index built with store.type: bolt (docrag ingest -f FILE).")
		fmt.Println("\nReports:")
		fmt.Println("  1. Embedding setup (provider, model, dimension)")
		fmt.Println("  2. Semantic similarity of the top-k chunks")
		fmt.Println("  3. Query latency")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*rootDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.LookupEnv)

	ctx := context.Background()
	embedder, err := embedding.New(ctx, cfg.Embedding, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
		os.Exit(1)
	}
	defer embedding.Close(embedder)

	dbPath := config.ResolvePath(*rootDir, cfg.Store.Path)
	index, err := store.OpenBoltIndex(dbPath, embedder.Dimension())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer index.Close()

	count, err := index.Count(cfg.Store.Collection)
	if err != nil || count == 0 {
		fmt.Fprintf(os.Stderr, "No chunks in collection %s - run 'docrag ingest' with store.type: bolt\n", cfg.Store.Collection)
		os.Exit(1)
	}

	fmt.Println("SEMANTIC SEARCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Chunks indexed: %d (%s)\n", count, cfg.Store.Collection)
	fmt.Printf("Model: %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	start := time.Now()
	queryVec, err := embedder.EmbedQuery(ctx, *query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding error: %v\n", err)
		os.Exit(1)
	}
	embedTime := time.Since(start)

	start = time.Now()
	results, err := index.Query(ctx, cfg.Store.Collection, queryVec, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	searchTime := time.Since(start)

	fmt.Printf("Top %d semantic matches:\n\n", len(results))

	totalScore := 0.0
	for i, r := range results {
		preview := []rune(strings.ReplaceAll(r.Text, "\n", " "))
		if len(preview) > 150 {
			preview = append(preview[:150], []rune("...")...)
		}

		similarity := r.Score
		totalScore += similarity

		rating := "LOW"
		if similarity > 0.7 {
			rating = "HIGH"
		} else if similarity > 0.5 {
			rating = "GOOD"
		} else if similarity > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s #%s\n", i+1, rating, similarity,
			filepath.Base(r.Metadata[domain.MetaSource]), r.Metadata[domain.MetaChunkIndex])
		fmt.Printf("   %s\n\n", string(preview))
	}

	avgScore := totalScore / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Score)
	fmt.Printf("  Embed latency:      %s\n", embedTime)
	fmt.Printf("  Search latency:     %s\n", searchTime)

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - semantic search working well")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - try a neural embedding provider (ollama all-minilm)")
	}
}
