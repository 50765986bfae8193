package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalograg/internal/adapter/memstore"
	"catalograg/internal/adapter/store"
	"catalograg/internal/domain"
)

func indexed(t *testing.T, texts map[string]string, ranks map[string]float64, keywords ...string) (*memstore.MemoryStore, *keywordEmbedder) {
	t.Helper()
	st := memstore.NewMemoryStore()
	emb := newKeywordEmbedder(keywords...)
	docs, metas, keys := rawBatch(texts, ranks)
	out := NewIndexer(st, emb).IndexDocuments(context.Background(), docs, metas, keys, "kb")
	require.True(t, out.OK, out.Message)
	return st, emb
}

func TestSemanticNearestFirst(t *testing.T) {
	st, emb := indexed(t, map[string]string{
		"cream": "Hydrating Cream for Dry skin",
		"gel":   "Oil-Free Gel",
		"toner": "Toner",
	}, nil, "Cream", "Gel")

	out := NewRetriever(st, emb, nil).Semantic(context.Background(), "a Gel please", "kb", 2)
	require.True(t, out.OK, out.Message)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "gel", out.Results[0].ID)
	require.NotNil(t, out.Results[0].Distance)
	assert.Equal(t, 0.0, *out.Results[0].Distance)
	assert.LessOrEqual(t, *out.Results[0].Distance, *out.Results[1].Distance)
}

func TestSemanticTopKDefaultsAndCaps(t *testing.T) {
	st, emb := indexed(t, map[string]string{"a": "one", "b": "two"}, nil, "one")
	r := NewRetriever(st, emb, nil)

	out := r.Semantic(context.Background(), "one", "kb", 0)
	require.True(t, out.OK)
	assert.Len(t, out.Results, 2)

	out = r.Semantic(context.Background(), "one", "kb", 1)
	require.True(t, out.OK)
	assert.Len(t, out.Results, 1)
}

func TestSemanticEmptyCollection(t *testing.T) {
	st := memstore.NewMemoryStore()
	_, err := st.ReplaceCollection(domain.CollectionInfo{Name: "kb"}, nil)
	require.NoError(t, err)

	out := NewRetriever(st, newKeywordEmbedder("x"), nil).Semantic(context.Background(), "anything", "kb", 5)
	assert.True(t, out.OK)
	assert.Empty(t, out.Results)
}

func TestSemanticMissingCollection(t *testing.T) {
	out := NewRetriever(memstore.NewMemoryStore(), newKeywordEmbedder("x"), nil).Semantic(context.Background(), "q", "kb", 5)
	assert.False(t, out.OK)
	assert.ErrorIs(t, out.Err, domain.ErrCollectionNotFound)
	assert.NotNil(t, out.Results)
	assert.Empty(t, out.Results)
}

func TestSemanticWithoutEmbedder(t *testing.T) {
	st, _ := indexed(t, map[string]string{"a": "x"}, nil, "x")
	out := NewRetriever(st, nil, nil).Semantic(context.Background(), "q", "kb", 5)
	assert.False(t, out.OK)
	assert.ErrorIs(t, out.Err, domain.ErrConfiguration)
}

func TestSemanticWithoutEmbedderNamesCause(t *testing.T) {
	st, _ := indexed(t, map[string]string{"a": "x"}, nil, "x")
	cause := errors.New("dial tcp 127.0.0.1:11434: connection refused")
	out := NewRetriever(st, nil, nil).WithEmbedderError(cause).Semantic(context.Background(), "q", "kb", 5)

	assert.False(t, out.OK)
	assert.ErrorIs(t, out.Err, domain.ErrConfiguration)
	assert.ErrorIs(t, out.Err, cause)
	assert.Contains(t, out.Message, "connection refused")
}

func TestSemanticProviderFailure(t *testing.T) {
	st, emb := indexed(t, map[string]string{"a": "x"}, nil, "x")
	emb.err = errUnavailable

	out := NewRetriever(st, emb, nil).Semantic(context.Background(), "q", "kb", 5)
	assert.False(t, out.OK)
	assert.ErrorIs(t, out.Err, domain.ErrProvider)
	assert.Empty(t, out.Results)
}

func TestSemanticModelMismatchNeedsRebuild(t *testing.T) {
	st, _ := indexed(t, map[string]string{"a": "x"}, nil, "x")
	other := newKeywordEmbedder("x")
	other.model = "other-model"

	out := NewRetriever(st, other, nil).Semantic(context.Background(), "x", "kb", 5)
	assert.False(t, out.OK)
	assert.ErrorIs(t, out.Err, domain.ErrDimensionMismatch)
	assert.Contains(t, out.Message, "rebuild")
}

func TestLexicalMatchesVerbatim(t *testing.T) {
	st, emb := indexed(t, map[string]string{
		"cream": "Hydrating Cream for Dry skin",
		"gel":   "Oil-Free Gel",
	}, nil, "Cream")

	out := NewRetriever(st, emb, nil).Lexical(context.Background(), "Dry", "kb", 5)
	require.True(t, out.OK)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "cream", out.Results[0].ID)
	assert.Nil(t, out.Results[0].Distance)

	out = NewRetriever(st, emb, nil).Lexical(context.Background(), "dry", "kb", 5)
	require.True(t, out.OK)
	assert.Empty(t, out.Results, "matching is case sensitive")
}

func TestLexicalOrdersByRank(t *testing.T) {
	st, emb := indexed(t, map[string]string{
		"low":     "Cream A",
		"high":    "Cream B",
		"norank":  "Cream C",
		"mid":     "Cream D",
		"mid-tie": "Cream E",
	}, map[string]float64{"low": 1, "high": 9, "mid": 5, "mid-tie": 5}, "Cream")

	out := NewRetriever(st, emb, nil).Lexical(context.Background(), "Cream", "kb", 4)
	require.True(t, out.OK)

	var got []string
	for _, r := range out.Results {
		got = append(got, r.ID)
	}
	assert.Equal(t, []string{"high", "mid", "mid-tie", "low"}, got)
}

func TestLexicalUnparseableRankIsZero(t *testing.T) {
	st := memstore.NewMemoryStore()
	docs := []string{"Gel one", "Gel two"}
	metas := []domain.Metadata{{domain.MetaRank: "n/a"}, {domain.MetaRank: 0.5}}
	require.True(t, NewIndexer(st, newKeywordEmbedder("Gel")).IndexDocuments(context.Background(), docs, metas, []string{"a", "b"}, "kb").OK)

	out := NewRetriever(st, nil, nil).Lexical(context.Background(), "Gel", "kb", 5)
	require.True(t, out.OK)
	assert.Equal(t, "b", out.Results[0].ID)
}

func TestLexicalNaNRankSortsAsZero(t *testing.T) {
	st := memstore.NewMemoryStore()
	docs := []string{"Serum one", "Serum two", "Serum three"}
	metas := []domain.Metadata{{domain.MetaRank: 4.0}, {domain.MetaRank: "NaN"}, {domain.MetaRank: 9.0}}
	require.True(t, NewIndexer(st, newKeywordEmbedder("Serum")).IndexDocuments(context.Background(), docs, metas, []string{"a", "b", "c"}, "kb").OK)

	out := NewRetriever(st, nil, nil).Lexical(context.Background(), "Serum", "kb", 5)
	require.True(t, out.OK, out.Message)

	var got []string
	for _, r := range out.Results {
		got = append(got, r.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, got)
}

func TestLexicalStoreFailure(t *testing.T) {
	out := NewRetriever(memstore.NewMemoryStore(), nil, nil).Lexical(context.Background(), "x", "missing", 5)
	assert.False(t, out.OK)
	assert.Empty(t, out.Results)
}

func TestSearchUnknownMode(t *testing.T) {
	out := NewRetriever(memstore.NewMemoryStore(), nil, nil).Search(context.Background(), "fuzzy", "x", "kb", 5)
	assert.False(t, out.OK)
	assert.ErrorIs(t, out.Err, domain.ErrValidation)
}

func TestEndToEndAcmeCatalog(t *testing.T) {
	st, err := store.Open(t.TempDir(), time.Second)
	require.NoError(t, err)
	defer st.Close()

	records := []domain.ProductRecord{
		{"Brand": "Acme", "Name": "Glow Serum", "Label": "Serum", "Rank": "9"},
		{"Brand": "Acme", "Name": "Matte Gel", "Label": "Gel", "Rank": "4"},
	}
	emb := newKeywordEmbedder("Glow", "Matte")

	out := NewIndexer(st, emb).IndexRecords(context.Background(), records, "cosmetics_kb")
	require.True(t, out.OK, out.Message)

	r := NewRetriever(st, emb, nil)
	glowID := domain.MakeProductID(records[0])

	sem := r.Semantic(context.Background(), "Glow", "cosmetics_kb", 5)
	require.True(t, sem.OK, sem.Message)
	require.Len(t, sem.Results, 2)
	assert.Equal(t, glowID, sem.Results[0].ID)
	assert.Equal(t, "Glow Serum", sem.Results[0].Metadata.String(domain.MetaName))
	assert.Equal(t, 9.0, sem.Results[0].Metadata.Number(domain.MetaRank))

	lex := r.Lexical(context.Background(), "Serum", "cosmetics_kb", 5)
	require.True(t, lex.OK, lex.Message)
	require.Len(t, lex.Results, 1)
	assert.Equal(t, glowID, lex.Results[0].ID)
}
