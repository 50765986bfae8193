package cli

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"catalograg/internal/adapter/fs"
	"catalograg/internal/adapter/spreadsheet"
	"catalograg/internal/usecase"
)

var indexCmd = &cobra.Command{
	Use:   "index [paths|globs...]",
	Short: "Rebuild a collection from product spreadsheets",
	Long: `Read every product row from the given XLSX workbooks and rebuild the
collection from scratch. Directories are searched with the configured include
and exclude patterns. With no arguments the upload directory is used.

Examples:
  catalograg index                          # Index ingest.upload_dir
  catalograg index catalog.xlsx             # Index one workbook
  catalograg index 'exports/**/*.xlsx' -c kb`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if len(args) == 0 {
		args = []string{cfg.Ingest.UploadDir}
	}
	if err := cfg.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open index store: %w", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	embedder, embedErr := newEmbedder(ctx, cfg)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	progressCallback := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
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
					fmt.Println()
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

	indexer := usecase.NewIndexer(st, embedder,
		usecase.WithBatchSize(cfg.Embedding.BatchSize),
		usecase.WithConcurrency(cfg.Embedding.Concurrency),
		usecase.WithDistance(cfg.Store.Distance),
		usecase.WithProgress(progressCallback),
		usecase.WithEmbedderError(embedErr),
		usecase.WithLogger(log),
	)

	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	reader := spreadsheet.NewReader(cfg.Ingest.Sheet)

	fmt.Printf("Indexing into collection %q...\n", cfg.Store.Collection)
	outcome := indexer.IndexWorkbooks(ctx, walker, reader, args, cfg.Store.Collection)
	if !outcome.OK {
		return errors.New(outcome.Message)
	}

	fmt.Println(outcome.Message)
	if cfg.Store.Backend != "memory" {
		fmt.Printf("Index stored at: %s\n", cfg.Store.PersistDir)
	}
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
