package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ragchat/internal/domain"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vector index information",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

type statusOutput struct {
	domain.IndexStats
	Stale string `json:"stale,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	emb, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	holder := newHolder(cfg)

	idx, err := holder.Index()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no index found at %s, run 'ragchat ingest' first: %w", holder.Path(), err)
		}
		return err
	}

	out := statusOutput{
		IndexStats: idx.Stats(),
		Stale:      staleReason(cfg, holder, emb),
	}

	if statusJSON {
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Index:          %s\n", out.Path)
	fmt.Printf("Schema version: %d\n", out.SchemaVersion)
	fmt.Printf("Embedder:       %s (dim %d)\n", out.Model, out.Dimension)
	fmt.Printf("Files:          %d\n", out.Sources)
	fmt.Printf("Chunks:         %d\n", out.Chunks)
	fmt.Printf("Built:          %s\n", out.BuiltAt.Local().Format("2006-01-02 15:04:05"))
	if out.Stale != "" {
		fmt.Printf("Status:         stale (%s), re-run 'ragchat ingest'\n", out.Stale)
	} else {
		fmt.Printf("Status:         up to date\n")
	}
	return nil
}
