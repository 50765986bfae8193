package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"catalograg/config"
	"catalograg/internal/adapter/embedding"
	"catalograg/internal/adapter/llm"
	"catalograg/internal/adapter/memstore"
	"catalograg/internal/adapter/store"
	"catalograg/internal/logger"
	"catalograg/internal/port"
)

var (
	cfgFile    string
	persistDir string
	collection string
	verbose    bool

	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "catalograg",
	Short: "Catalog RAG assistant - index a product spreadsheet and chat over it",
	Long: `catalograg turns a product catalog spreadsheet into a searchable vector
index and answers questions using only the retrieved products.

Example usage:
  catalograg index data/uploads           # Rebuild the collection from XLSX files
  catalograg search -q "Serum" --mode lexical
  catalograg ask -q "cleanser for dry skin"
  catalograg chat                         # Interactive chat
  catalograg serve --addr :8080           # HTTP API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal; credentials may come from the environment.
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			wd, werr := os.Getwd()
			if werr != nil {
				return fmt.Errorf("failed to get working directory: %w", werr)
			}
			cfg, err = config.LoadFromDir(wd)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if persistDir != "" {
			cfg.Store.PersistDir = persistDir
		}
		if collection != "" {
			cfg.Store.Collection = collection
		}

		log = logger.New(cfg.Logging, verbose)
		slog.SetDefault(log)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./catalograg.yaml)")
	rootCmd.PersistentFlags().StringVar(&persistDir, "persist-dir", "", "index directory (overrides store.persist_dir)")
	rootCmd.PersistentFlags().StringVarP(&collection, "collection", "c", "", "collection name (overrides store.collection)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func GetConfig() *config.Config {
	return cfg
}

// openStore opens the configured vector store backend.
func openStore(cfg *config.Config) (port.VectorStore, error) {
	switch cfg.Store.Backend {
	case "bolt", "":
		return store.Open(cfg.Store.PersistDir, time.Duration(cfg.Store.OpenTimeoutSec)*time.Second)
	case "memory":
		return memstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

// newEmbedder builds the embedder. On failure it returns a nil embedder and
// the construction error, which callers hand to the indexer or retriever so
// their outcome names the cause.
func newEmbedder(ctx context.Context, cfg *config.Config) (port.Embedder, error) {
	emb, err := embedding.New(ctx, cfg.Embedding, log)
	if err != nil {
		log.Warn("embedding provider unavailable", "provider", cfg.Embedding.Provider, "error", err)
		return nil, err
	}
	return emb, nil
}

func newGenerator(ctx context.Context, cfg *config.Config) port.AnswerGenerator {
	gen, err := llm.New(ctx, cfg.Generation, log)
	if err != nil {
		log.Warn("answer generator unavailable", "provider", cfg.Generation.Provider, "error", err)
		return nil
	}
	return gen
}
