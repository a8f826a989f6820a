package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ragchat/config"
	"ragchat/internal/adapter/embedding"
	"ragchat/internal/adapter/store"
)

func main() {
	rootDir := flag.String("dir", ".", "Directory holding ragchat.yaml and the index")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 5, "Number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\"")
		fmt.Println("\nTests:")
		fmt.Println("  1. Index infrastructure (integrity check, embedder match)")
		fmt.Println("  2. Semantic similarity (query vs results)")
		fmt.Println("  3. Search latency")
		os.Exit(1)
	}

	if err := config.LoadEnv(*rootDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromDir(*rootDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv()
	cfg.ResolvePaths(*rootDir)

	embedder, err := embedding.FromConfig(cfg.Embedding, cfg.LLM.Timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder not available: %v\n", err)
		os.Exit(1)
	}

	loadStart := time.Now()
	idx, err := store.Load(config.IndexDBPath(cfg.Index.Dir), store.LoadOptions{Secret: cfg.IndexSecret()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	loadTime := time.Since(loadStart)

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))

	h := idx.Header()
	fmt.Printf("Chunks indexed: %d from %d files\n", h.Chunks, h.Sources)
	fmt.Printf("Model: %s (dimension %d)\n", h.Model, h.Dimension)
	fmt.Printf("Load + verify: %s\n", loadTime.Round(time.Millisecond))
	if reason := store.RebuildReason(h, cfg.IndexHash(), embedder.ModelName(), embedder.Dimension()); reason != "" {
		fmt.Printf("WARNING: index is stale: %s\n", reason)
	}
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	start := time.Now()
	results, err := idx.Query(context.Background(), embedder, *query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	searchTime := time.Since(start)

	fmt.Printf("Top %d matches in %s:\n\n", len(results), searchTime.Round(time.Microsecond))
	if len(results) == 0 {
		return
	}

	totalScore := 0.0
	for i, r := range results {
		preview := []rune(r.Chunk.Text)
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

		fmt.Printf("%d. [%s %.3f] %s p.%d #%d\n", i+1, rating, similarity, filepath.Base(r.Chunk.Source), r.Chunk.Page, r.Chunk.ChunkIndex)
		fmt.Printf("   %s\n\n", strings.ReplaceAll(string(preview), "\n", " "))
	}

	avgScore := totalScore / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Score)

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - retrieval working well")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - may need better embeddings or re-ingesting")
	}
}
