package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"catalograg/internal/adapter/store"
	"catalograg/internal/domain"
	"catalograg/internal/port"
)

// DefaultTopK is used when a caller asks for zero or fewer results.
const DefaultTopK = 5

// Search modes.
const (
	ModeSemantic = "semantic"
	ModeLexical  = "lexical"
)

// Retriever answers semantic and lexical queries against a collection.
type Retriever struct {
	store       port.VectorStore
	embedder    port.Embedder
	embedderErr error
	logger      *slog.Logger
}

// NewRetriever creates a retriever. A nil embedder disables semantic search
// but leaves lexical search available.
func NewRetriever(store port.VectorStore, embedder port.Embedder, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
}

// WithEmbedderError records why no embedder could be built, so semantic
// searches without one report the cause.
func (u *Retriever) WithEmbedderError(err error) *Retriever {
	u.embedderErr = err
	return u
}

// Search dispatches to the semantic or lexical variant.
func (u *Retriever) Search(ctx context.Context, mode, query, collection string, topK int) domain.SearchOutcome {
	switch mode {
	case ModeSemantic, "":
		return u.Semantic(ctx, query, collection, topK)
	case ModeLexical:
		return u.Lexical(ctx, query, collection, topK)
	default:
		return domain.SearchFailed("search failed", fmt.Errorf("%w: unknown search mode %q", domain.ErrValidation, mode))
	}
}

// Semantic returns the documents nearest to the query embedding, ordered by
// ascending distance.
func (u *Retriever) Semantic(ctx context.Context, query, collection string, topK int) domain.SearchOutcome {
	if strings.TrimSpace(query) == "" {
		return domain.SearchFailed("search failed", fmt.Errorf("%w: query is empty", domain.ErrValidation))
	}
	if u.embedder == nil {
		return domain.SearchFailed("search failed", missingEmbedder(u.embedderErr))
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	info, err := u.store.Info(collection)
	if err != nil {
		return u.fail("collection unavailable", collection, err)
	}
	if info.Count == 0 {
		return domain.SearchOutcome{OK: true, Message: "Collection is empty", Results: []domain.QueryResult{}}
	}
	if compat := store.CheckCompatibility(info, u.embedder.ModelName(), u.embedder.Dimension()); compat.NeedsRebuild {
		return u.fail("collection needs rebuild", collection, fmt.Errorf("%w: %s", domain.ErrDimensionMismatch, compat.Reason))
	}

	vector, err := u.embedder.Embed(ctx, query)
	if err != nil {
		return u.fail("query embedding failed", collection, providerErr(err))
	}

	results, err := u.store.Query(collection, vector, topK)
	if err != nil {
		return u.fail("search failed", collection, err)
	}

	u.logger.Debug("semantic search", "collection", collection, "top_k", topK, "results", len(results))
	return domain.SearchOutcome{OK: true, Message: resultMessage(len(results)), Results: results}
}

// Lexical returns documents whose text contains query verbatim (case
// sensitive), ordered by descending rank metadata with ties broken by id.
func (u *Retriever) Lexical(ctx context.Context, query, collection string, topK int) domain.SearchOutcome {
	if query == "" {
		return domain.SearchFailed("search failed", fmt.Errorf("%w: query is empty", domain.ErrValidation))
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	matches, err := u.store.MatchText(collection, query)
	if err != nil {
		return u.fail("search failed", collection, err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		ri, rj := matches[i].Metadata.Number(domain.MetaRank), matches[j].Metadata.Number(domain.MetaRank)
		if ri != rj {
			return ri > rj
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	for i := range matches {
		matches[i].Distance = nil
	}

	u.logger.Debug("lexical search", "collection", collection, "top_k", topK, "results", len(matches))
	return domain.SearchOutcome{OK: true, Message: resultMessage(len(matches)), Results: matches}
}

func (u *Retriever) fail(action, collection string, err error) domain.SearchOutcome {
	if errors.Is(err, domain.ErrCollectionNotFound) {
		err = fmt.Errorf("%w: %q has not been indexed yet", domain.ErrCollectionNotFound, collection)
	} else {
		u.logger.Warn(action, "collection", collection, "error", err)
	}
	return domain.SearchFailed(action, err)
}

func resultMessage(n int) string {
	switch n {
	case 0:
		return "No matching documents"
	case 1:
		return "Found 1 document"
	default:
		return fmt.Sprintf("Found %d documents", n)
	}
}
