package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ragchat/internal/domain"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the index without calling the LLM",
	Long: `Show the chunks retrieval would place in the prompt for a question.

Examples:
  ragchat query -q "insulin dosage"
  ragchat query -q "contraindications" --top-k 5 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

// chunkSummary is a retrieved chunk for CLI output.
type chunkSummary struct {
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Chunk  int     `json:"chunk"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	stack, err := newChatStack(cfg)
	if err != nil {
		return err
	}

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	chunks, err := stack.retrieve.Search(cmd.Context(), queryText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(summarize(chunks, 0), "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(chunks) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(chunks), queryText)
	printChunks(summarize(chunks, 500))
	return nil
}

// summarize converts chunks for output, truncating text to maxRunes when
// maxRunes > 0.
func summarize(chunks []domain.ScoredChunk, maxRunes int) []chunkSummary {
	out := make([]chunkSummary, len(chunks))
	for i, c := range chunks {
		text := c.Chunk.Text
		if r := []rune(text); maxRunes > 0 && len(r) > maxRunes {
			text = string(r[:maxRunes]) + "..."
		}
		out[i] = chunkSummary{
			Source: c.Chunk.Source,
			Page:   c.Chunk.Page,
			Chunk:  c.Chunk.ChunkIndex,
			Score:  c.Score,
			Text:   text,
		}
	}
	return out
}

func printChunks(chunks []chunkSummary) {
	for i, c := range chunks {
		fmt.Printf("--- [%d] %s p.%d #%d (score: %.3f) ---\n", i+1, filepath.Base(c.Source), c.Page, c.Chunk, c.Score)
		fmt.Println(c.Text)
		fmt.Println()
	}
}
