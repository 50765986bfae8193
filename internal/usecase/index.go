package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"catalograg/internal/domain"
	"catalograg/internal/port"
)

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithProgress registers a callback invoked after each embedded batch.
func WithProgress(fn func(done, total int)) IndexerOption {
	return func(u *Indexer) { u.progress = fn }
}

// WithBatchSize sets how many documents go into one embedding request.
func WithBatchSize(n int) IndexerOption {
	return func(u *Indexer) {
		if n > 0 {
			u.batchSize = n
		}
	}
}

// WithConcurrency sets how many embedding batches may be in flight at once.
func WithConcurrency(n int) IndexerOption {
	return func(u *Indexer) {
		if n > 0 {
			u.concurrency = n
		}
	}
}

// WithDistance sets the distance metric recorded for rebuilt collections.
func WithDistance(metric string) IndexerOption {
	return func(u *Indexer) { u.distance = metric }
}

// WithEmbedderError records why no embedder could be built, so runs without
// one report the cause.
func WithEmbedderError(err error) IndexerOption {
	return func(u *Indexer) { u.embedderErr = err }
}

// WithLogger sets the indexer's logger.
func WithLogger(logger *slog.Logger) IndexerOption {
	return func(u *Indexer) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// Indexer rebuilds collections from batches of documents. It holds no
// state between runs beyond its store and embedder handles.
type Indexer struct {
	store       port.VectorStore
	embedder    port.Embedder
	distance    string
	batchSize   int
	concurrency int
	progress    func(done, total int)
	embedderErr error
	logger      *slog.Logger
}

// NewIndexer creates an indexer. A nil embedder is allowed; every run then
// fails with a configuration error before touching the store.
func NewIndexer(store port.VectorStore, embedder port.Embedder, opts ...IndexerOption) *Indexer {
	u := &Indexer{
		store:       store,
		embedder:    embedder,
		batchSize:   100,
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func missingEmbedder(cause error) error {
	switch {
	case cause == nil:
		return fmt.Errorf("%w: no embedding provider configured", domain.ErrConfiguration)
	case errors.Is(cause, domain.ErrConfiguration):
		return fmt.Errorf("no embedding provider available: %w", cause)
	default:
		return fmt.Errorf("%w: no embedding provider available: %w", domain.ErrConfiguration, cause)
	}
}

// IndexDocuments replaces the named collection with exactly this batch.
// documents, metadatas and ids are parallel slices. The store is written
// only after every document has been embedded, in a single step.
func (u *Indexer) IndexDocuments(ctx context.Context, documents []string, metadatas []domain.Metadata, ids []string, collection string) domain.Outcome {
	if err := validateBatch(documents, metadatas, ids, collection); err != nil {
		return domain.Failed("invalid batch", err)
	}
	if u.embedder == nil {
		return domain.Failed("indexing aborted", missingEmbedder(u.embedderErr))
	}

	u.logger.Info("indexing collection", "collection", collection, "documents", len(documents), "model", u.embedder.ModelName())

	vectors, err := u.embedAll(ctx, documents)
	if err != nil {
		u.logger.Error("embedding failed", "collection", collection, "error", err)
		return domain.Failed("embedding failed", err)
	}

	docs := make([]domain.IndexedDocument, len(documents))
	for i := range documents {
		docs[i] = domain.IndexedDocument{
			ID:        ids[i],
			Text:      documents[i],
			Metadata:  metadatas[i],
			Embedding: vectors[i],
		}
	}

	info, err := u.store.ReplaceCollection(domain.CollectionInfo{
		Name:     collection,
		Model:    u.embedder.ModelName(),
		Distance: u.distance,
	}, docs)
	if err != nil {
		u.logger.Error("collection write failed", "collection", collection, "error", err)
		return domain.Failed("index write failed", err)
	}

	msg := fmt.Sprintf("Indexed %d documents into collection %q", info.Count, collection)
	if dup := len(documents) - info.Count; dup > 0 {
		msg += fmt.Sprintf(" (%d duplicate ids collapsed)", dup)
	}
	u.logger.Info("collection rebuilt", "collection", collection, "count", info.Count, "dimension", info.Dimension)
	return domain.Succeeded(msg)
}

// IndexRecords builds documents from product rows and rebuilds the collection.
func (u *Indexer) IndexRecords(ctx context.Context, records []domain.ProductRecord, collection string) domain.Outcome {
	batch := PrepareBatch(records)
	return u.IndexDocuments(ctx, batch.Documents, batch.Metadatas, batch.IDs, collection)
}

// IndexWorkbooks resolves workbook arguments, reads every row from all of
// them and rebuilds the collection from the combined rows.
func (u *Indexer) IndexWorkbooks(ctx context.Context, source port.WorkbookSource, reader port.RecordReader, args []string, collection string) domain.Outcome {
	paths, err := source.Resolve(args)
	if err != nil {
		return domain.Failed("workbook discovery failed", err)
	}
	if len(paths) == 0 {
		return domain.Failed("workbook discovery failed", fmt.Errorf("%w: no workbooks found", domain.ErrValidation))
	}

	var records []domain.ProductRecord
	for _, path := range paths {
		rows, err := reader.ReadRecords(path)
		if err != nil {
			return domain.Failed("failed to read "+path, err)
		}
		u.logger.Debug("read workbook", "path", path, "rows", len(rows))
		records = append(records, rows...)
	}
	return u.IndexRecords(ctx, records, collection)
}

// embedAll embeds documents in batches, keeping input order. A failed batch
// cancels the ones still in flight.
func (u *Indexer) embedAll(ctx context.Context, documents []string) ([][]float32, error) {
	vectors := make([][]float32, len(documents))

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for i := 0; i < len(documents); i += u.batchSize {
		start, end := i, min(i+u.batchSize, len(documents))
		g.Go(func() error {
			batch, err := u.embedder.EmbedBatch(gctx, documents[start:end])
			if err != nil {
				return providerErr(err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrProvider, end-start, len(batch))
			}
			copy(vectors[start:end], batch)

			if u.progress != nil {
				mu.Lock()
				done += end - start
				u.progress(done, len(documents))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func validateBatch(documents []string, metadatas []domain.Metadata, ids []string, collection string) error {
	switch {
	case strings.TrimSpace(collection) == "":
		return fmt.Errorf("%w: collection name is empty", domain.ErrValidation)
	case len(documents) == 0:
		return fmt.Errorf("%w: no documents to index", domain.ErrValidation)
	case len(metadatas) != len(documents) || len(ids) != len(documents):
		return fmt.Errorf("%w: documents (%d), metadatas (%d) and ids (%d) differ in length",
			domain.ErrValidation, len(documents), len(metadatas), len(ids))
	}
	for i, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: id at position %d is empty", domain.ErrValidation, i)
		}
	}
	return nil
}

// providerErr tags untyped embedding failures as provider errors.
func providerErr(err error) error {
	if domain.Kind(err) != "internal" {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrProvider, err)
}
