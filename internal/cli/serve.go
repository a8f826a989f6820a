package cli

import (
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ragchat/internal/adapter/session"
	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser chat server",
	Long: `Serve the chat page. Each browser session keeps its own conversation;
/clear empties it and /healthz reports index availability.

Examples:
  ragchat serve
  ragchat serve --addr 127.0.0.1:8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	stack, err := newChatStack(cfg)
	if err != nil {
		return err
	}

	if _, err := stack.holder.Index(); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("no vector index yet, run 'ragchat ingest' first", "path", stack.holder.Path())
		} else {
			logger.Error("vector index unusable", "err", err)
		}
	} else if reason := staleReason(cfg, stack.holder, stack.embedder); reason != "" {
		logger.Warn("vector index is stale, re-run 'ragchat ingest'", "reason", reason)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions := session.NewMemoryStore(cfg.Server.SessionTTL)
	go sessions.Run(ctx, time.Minute)

	handler := web.NewHandler(stack.answer, stack.retrieve, sessions, cfg.Server.SessionTTL)
	srv := web.NewServer(cfg.Server.Addr, web.NewRouter(handler), cfg.LLM.Timeout+30*time.Second)

	return web.Serve(ctx, srv)
}

