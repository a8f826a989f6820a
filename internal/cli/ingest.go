package cli

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ragchat/config"
	"ragchat/internal/adapter/chunker"
	"ragchat/internal/adapter/fs"
	"ragchat/internal/adapter/pdf"
	"ragchat/internal/adapter/store"
	"ragchat/internal/usecase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Build the vector index from a directory of PDFs",
	Long: `Load every PDF in the data directory, split the pages into overlapping
chunks, embed them and write the vector index. An existing index is replaced.

Examples:
  ragchat ingest              # Use data.dir from config (default ./data)
  ragchat ingest ./manuals    # Ingest a specific directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	dir := cfg.Data.Dir
	if len(args) > 0 {
		var err error
		dir, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	if err := config.EnsureIndexDir(cfg.Index.Dir); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	emb, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	chk, err := chunker.NewCharChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		return err
	}

	holder := newHolder(cfg)
	if reason := staleReason(cfg, holder, emb); reason != "" {
		fmt.Printf("Index rebuild required: %s\n", reason)
	}

	loader := pdf.NewLoader(
		fs.NewWalker(cfg.Data.Includes, cfg.Data.Excludes),
		pdf.NewExtractor(),
		cfg.Ingest.SkipInvalid,
	)
	ingestUC := usecase.NewIngestUseCase(loader, chk, emb, holder, nil, store.BuildOptions{
		BatchSize:  cfg.Embedding.BatchSize,
		Secret:     cfg.IndexSecret(),
		ConfigHash: cfg.IndexHash(),
	})

	fmt.Printf("Ingesting %s...\n", dir)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	progressCallback := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
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
					fmt.Fprintln(cmd.ErrOrStderr())
				}),
			)
		}

		_ = bar.Set(done)

		if done > 0 && done < total {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	result, err := ingestUC.Run(cmd.Context(), dir, progressCallback)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Pages loaded:   %d\n", result.Documents)
	fmt.Printf("  Files indexed:  %d\n", result.Stats.Sources)
	fmt.Printf("  Chunks created: %d\n", result.Chunks)
	fmt.Printf("  Embedder:       %s (dim %d)\n", result.Stats.Model, result.Stats.Dimension)
	fmt.Printf("  Took:           %s\n", formatDuration(result.Elapsed))
	fmt.Printf("\nIndex stored at: %s\n", result.Stats.Path)
	return nil
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
