package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"catalograg/internal/adapter/spreadsheet"
	"catalograg/internal/server"
	"catalograg/internal/usecase"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the indexing, search and chat HTTP API",
	Long: `Start the HTTP API.

Routes:
  GET  /healthz
  GET  /metrics
  GET  /v1/collections
  POST /v1/collections/:name/documents
  POST /v1/collections/:name/upload     (multipart field "file", .xlsx)
  POST /v1/collections/:name/search
  POST /v1/chat`,
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
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedder, embedErr := newEmbedder(ctx, cfg)
	retriever := usecase.NewRetriever(st, embedder, log).WithEmbedderError(embedErr)
	indexer := usecase.NewIndexer(st, embedder,
		usecase.WithEmbedderError(embedErr),
		usecase.WithBatchSize(cfg.Embedding.BatchSize),
		usecase.WithConcurrency(cfg.Embedding.Concurrency),
		usecase.WithDistance(cfg.Store.Distance),
		usecase.WithLogger(log),
	)

	var chat *usecase.ChatUseCase
	if gen := newGenerator(ctx, cfg); gen != nil {
		chat = usecase.NewChatUseCase(retriever, gen, cfg.Store.Collection,
			cfg.Retrieve.TopK, cfg.Generation.HistoryTurns, log)
	}

	srv := server.New(server.Deps{
		Store:       st,
		Indexer:     indexer,
		Retriever:   retriever,
		Chat:        chat,
		Reader:      spreadsheet.NewReader(cfg.Ingest.Sheet),
		Config:      cfg.Server,
		DefaultTopK: cfg.Retrieve.TopK,
		DefaultMode: cfg.Retrieve.Mode,
		Logger:      log,
	})
	return srv.Run(ctx, cfg.Server.Addr)
}
