package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalograg/internal/adapter/memstore"
	"catalograg/internal/adapter/store"
	"catalograg/internal/domain"
)

func ids(t *testing.T, s interface {
	MatchText(string, string) ([]domain.QueryResult, error)
}, collection string) []string {
	t.Helper()
	results, err := s.MatchText(collection, "")
	require.NoError(t, err)
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestIndexDocumentsRebuildIsIdempotent(t *testing.T) {
	st := memstore.NewMemoryStore()
	ix := NewIndexer(st, newKeywordEmbedder("Cream", "Gel"))

	docs := []string{"Hydrating Cream", "Oil-Free Gel", "Toner"}
	metas := []domain.Metadata{{}, {}, {}}
	keys := []string{"a", "b", "c"}

	first := ix.IndexDocuments(context.Background(), docs, metas, keys, "kb")
	require.True(t, first.OK, first.Message)
	before := ids(t, st, "kb")

	second := ix.IndexDocuments(context.Background(), docs, metas, keys, "kb")
	require.True(t, second.OK, second.Message)

	assert.Equal(t, before, ids(t, st, "kb"))
	assert.Equal(t, []string{"a", "b", "c"}, before)
	assert.Contains(t, second.Message, "Indexed 3 documents")
}

func TestIndexDocumentsFullReplace(t *testing.T) {
	st := memstore.NewMemoryStore()
	ix := NewIndexer(st, newKeywordEmbedder("x"))

	out := ix.IndexDocuments(context.Background(), []string{"a1", "a2", "a3"}, make([]domain.Metadata, 3), []string{"a1", "a2", "a3"}, "kb")
	require.True(t, out.OK)

	out = ix.IndexDocuments(context.Background(), []string{"b1", "b2"}, make([]domain.Metadata, 2), []string{"b1", "b2"}, "kb")
	require.True(t, out.OK)

	assert.Equal(t, []string{"b1", "b2"}, ids(t, st, "kb"))
}

func TestIndexDocumentsLengthMismatchLeavesCollection(t *testing.T) {
	st := memstore.NewMemoryStore()
	emb := newKeywordEmbedder("x")
	ix := NewIndexer(st, emb)

	require.True(t, ix.IndexDocuments(context.Background(), []string{"one"}, []domain.Metadata{{}}, []string{"1"}, "kb").OK)
	calls := emb.batchCalls

	out := ix.IndexDocuments(context.Background(), []string{"a", "b"}, []domain.Metadata{{}, {}}, []string{"only-one"}, "kb")
	assert.False(t, out.OK)
	assert.ErrorIs(t, out.Err, domain.ErrValidation)
	assert.Contains(t, out.Message, "differ in length")

	assert.Equal(t, calls, emb.batchCalls, "no embedding on invalid input")
	assert.Equal(t, []string{"1"}, ids(t, st, "kb"))
}

func TestIndexDocumentsEmptyBatch(t *testing.T) {
	st := memstore.NewMemoryStore()
	out := NewIndexer(st, newKeywordEmbedder("x")).IndexDocuments(context.Background(), nil, nil, nil, "kb")

	assert.False(t, out.OK)
	assert.ErrorIs(t, out.Err, domain.ErrValidation)
	assert.Contains(t, out.Message, "no documents")

	exists, err := st.CollectionExists("kb")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIndexDocumentsWithoutEmbedder(t *testing.T) {
	st := memstore.NewMemoryStore()
	out := NewIndexer(st, nil).IndexDocuments(context.Background(), []string{"a"}, []domain.Metadata{{}}, []string{"a"}, "kb")

	assert.False(t, out.OK)
	assert.ErrorIs(t, out.Err, domain.ErrConfiguration)
}

func TestIndexDocumentsWithoutEmbedderNamesCause(t *testing.T) {
	st := memstore.NewMemoryStore()
	cause := fmt.Errorf("%w: API key not found in environment variable: GOOGLE_API_KEY", domain.ErrConfiguration)
	out := NewIndexer(st, nil, WithEmbedderError(cause)).IndexDocuments(context.Background(), []string{"a"}, []domain.Metadata{{}}, []string{"a"}, "kb")

	assert.False(t, out.OK)
	assert.ErrorIs(t, out.Err, domain.ErrConfiguration)
	assert.ErrorIs(t, out.Err, cause)
	assert.Contains(t, out.Message, "GOOGLE_API_KEY")

	exists, err := st.CollectionExists("kb")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIndexDocumentsProviderFailureLeavesCollection(t *testing.T) {
	st := memstore.NewMemoryStore()
	emb := newKeywordEmbedder("x")
	ix := NewIndexer(st, emb)
	require.True(t, ix.IndexDocuments(context.Background(), []string{"old"}, []domain.Metadata{{}}, []string{"old"}, "kb").OK)

	emb.err = errUnavailable
	out := ix.IndexDocuments(context.Background(), []string{"new"}, []domain.Metadata{{}}, []string{"new"}, "kb")

	assert.False(t, out.OK)
	assert.ErrorIs(t, out.Err, domain.ErrProvider)
	assert.Equal(t, []string{"old"}, ids(t, st, "kb"))
}

func TestIndexDocumentsDuplicateIDs(t *testing.T) {
	st := memstore.NewMemoryStore()
	out := NewIndexer(st, newKeywordEmbedder("x")).IndexDocuments(context.Background(),
		[]string{"first", "second"}, make([]domain.Metadata, 2), []string{"same", "same"}, "kb")

	require.True(t, out.OK)
	assert.Contains(t, out.Message, "1 duplicate ids collapsed")

	results, err := st.MatchText("kb", "second")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestIndexDocumentsBatchesAndProgress(t *testing.T) {
	st := memstore.NewMemoryStore()
	emb := newKeywordEmbedder("x")

	var reports [][2]int
	ix := NewIndexer(st, emb, WithBatchSize(2), WithProgress(func(done, total int) {
		reports = append(reports, [2]int{done, total})
	}))

	docs := []string{"a", "b", "c", "d", "e"}
	out := ix.IndexDocuments(context.Background(), docs, make([]domain.Metadata, 5), docs, "kb")
	require.True(t, out.OK)

	assert.Equal(t, 3, emb.batchCalls)
	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, reports)
}

func TestIndexDocumentsConcurrentBatchesKeepOrder(t *testing.T) {
	st := memstore.NewMemoryStore()
	emb := newKeywordEmbedder("alpha", "beta", "gamma")

	var reports []int
	ix := NewIndexer(st, emb, WithBatchSize(1), WithConcurrency(3), WithProgress(func(done, total int) {
		reports = append(reports, done)
	}))

	docs := []string{"alpha doc", "beta doc", "gamma doc"}
	out := ix.IndexDocuments(context.Background(), docs, make([]domain.Metadata, 3), []string{"a", "b", "g"}, "kb")
	require.True(t, out.OK, out.Message)
	assert.Equal(t, []int{1, 2, 3}, reports)

	for i, id := range []string{"a", "b", "g"} {
		vec := make([]float32, 4)
		vec[i] = 1
		results, err := st.Query("kb", vec, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, id, results[0].ID)
	}
}

func TestIndexDocumentsPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(dir, time.Second)
	require.NoError(t, err)

	out := NewIndexer(st, newKeywordEmbedder("x"), WithDistance(store.DistanceCosine)).
		IndexDocuments(context.Background(), []string{"x doc"}, []domain.Metadata{{"rank": 2.0}}, []string{"id1"}, "kb")
	require.True(t, out.OK, out.Message)
	require.NoError(t, st.Close())

	reopened, err := store.Open(dir, time.Second)
	require.NoError(t, err)
	defer reopened.Close()

	info, err := reopened.Info("kb")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Count)
	assert.Equal(t, "keyword", info.Model)
	assert.Equal(t, store.DistanceCosine, info.Distance)
}
