package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalograg/internal/domain"
)

func openTestStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := Open(dir, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, dir
}

func testDocs() []domain.IndexedDocument {
	return []domain.IndexedDocument{
		{ID: "a", Text: "Product name: Gentle Foam", Metadata: domain.Metadata{"rank": 4.5}, Embedding: []float32{1, 0, 0}},
		{ID: "b", Text: "Product name: Daily Cream", Metadata: domain.Metadata{"rank": 3.0}, Embedding: []float32{0, 1, 0}},
		{ID: "c", Text: "Product name: Night Serum", Metadata: domain.Metadata{"rank": 4.9}, Embedding: []float32{0, 0, 1}},
	}
}

func TestReplaceCollectionAndQuery(t *testing.T) {
	st, _ := openTestStore(t)

	info, err := st.ReplaceCollection(domain.CollectionInfo{Name: "kb", Model: "m1"}, testDocs())
	require.NoError(t, err)
	assert.Equal(t, 3, info.Count)
	assert.Equal(t, 3, info.Dimension)
	assert.Equal(t, DistanceL2, info.Distance)
	assert.Equal(t, CurrentSchemaVersion, info.SchemaVersion)

	results, err := st.Query("kb", []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	require.NotNil(t, results[0].Distance)
	assert.LessOrEqual(t, *results[0].Distance, *results[1].Distance)
	assert.Equal(t, 4.5, results[0].Metadata.Number("rank"))
}

func TestReplaceCollectionIsFullReplace(t *testing.T) {
	st, _ := openTestStore(t)

	_, err := st.ReplaceCollection(domain.CollectionInfo{Name: "kb"}, testDocs())
	require.NoError(t, err)

	_, err = st.ReplaceCollection(domain.CollectionInfo{Name: "kb"}, testDocs()[:1])
	require.NoError(t, err)

	count, err := st.Count("kb")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := st.MatchText("kb", "Daily")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReplaceCollectionIsIdempotent(t *testing.T) {
	st, _ := openTestStore(t)

	for i := 0; i < 2; i++ {
		_, err := st.ReplaceCollection(domain.CollectionInfo{Name: "kb"}, testDocs())
		require.NoError(t, err)
	}
	count, err := st.Count("kb")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestReplaceCollectionDuplicateIDsLastWins(t *testing.T) {
	st, _ := openTestStore(t)

	docs := testDocs()
	docs = append(docs, domain.IndexedDocument{ID: "a", Text: "replacement", Embedding: []float32{1, 1, 0}})

	info, err := st.ReplaceCollection(domain.CollectionInfo{Name: "kb"}, docs)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Count)

	results, err := st.MatchText("kb", "replacement")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestReplaceCollectionRejectsMixedDimensions(t *testing.T) {
	st, _ := openTestStore(t)

	_, err := st.ReplaceCollection(domain.CollectionInfo{Name: "kb"}, testDocs())
	require.NoError(t, err)

	docs := testDocs()
	docs[1].Embedding = []float32{1, 2}
	_, err = st.ReplaceCollection(domain.CollectionInfo{Name: "kb"}, docs)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	// The previous contents survive a rejected replace.
	count, err := st.Count("kb")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir, time.Second)
	require.NoError(t, err)
	_, err = st.ReplaceCollection(domain.CollectionInfo{Name: "kb", Model: "m1"}, testDocs())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	reopened, err := Open(dir, time.Second)
	require.NoError(t, err)
	defer reopened.Close()

	info, err := reopened.Info("kb")
	require.NoError(t, err)
	assert.Equal(t, "m1", info.Model)
	assert.Equal(t, 3, info.Count)
	assert.FileExists(t, filepath.Join(dir, "index.db"))
}

func TestSecondOpenTimesOut(t *testing.T) {
	_, dir := openTestStore(t)

	_, err := Open(dir, 50*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Contains(t, err.Error(), "locked")
}

func TestMissingCollection(t *testing.T) {
	st, _ := openTestStore(t)

	exists, err := st.CollectionExists("nope")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = st.Query("nope", []float32{1, 0, 0}, 5)
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)

	_, err = st.MatchText("nope", "x")
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)

	assert.ErrorIs(t, st.DeleteCollection("nope"), domain.ErrCollectionNotFound)
}

func TestQueryDimensionMismatch(t *testing.T) {
	st, _ := openTestStore(t)
	_, err := st.ReplaceCollection(domain.CollectionInfo{Name: "kb"}, testDocs())
	require.NoError(t, err)

	_, err = st.Query("kb", []float32{1, 0}, 5)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestQueryKLargerThanCollection(t *testing.T) {
	st, _ := openTestStore(t)
	_, err := st.ReplaceCollection(domain.CollectionInfo{Name: "kb"}, testDocs())
	require.NoError(t, err)

	results, err := st.Query("kb", []float32{0, 0, 1}, 50)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "c", results[0].ID)
}

func TestMatchTextIsCaseSensitive(t *testing.T) {
	st, _ := openTestStore(t)
	_, err := st.ReplaceCollection(domain.CollectionInfo{Name: "kb"}, testDocs())
	require.NoError(t, err)

	results, err := st.MatchText("kb", "Product name")
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = st.MatchText("kb", "product NAME")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUpsertKeepsDimension(t *testing.T) {
	st, _ := openTestStore(t)
	_, err := st.ReplaceCollection(domain.CollectionInfo{Name: "kb"}, testDocs())
	require.NoError(t, err)

	err = st.Upsert(domain.CollectionInfo{Name: "kb"}, []domain.IndexedDocument{
		{ID: "d", Text: "Product name: Toner", Embedding: []float32{1, 1, 1}},
	})
	require.NoError(t, err)

	count, err := st.Count("kb")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	err = st.Upsert(domain.CollectionInfo{Name: "kb"}, []domain.IndexedDocument{
		{ID: "e", Text: "bad", Embedding: []float32{1}},
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestListAndDeleteCollections(t *testing.T) {
	st, _ := openTestStore(t)
	for _, name := range []string{"zeta", "alpha"} {
		_, err := st.ReplaceCollection(domain.CollectionInfo{Name: name, Distance: DistanceCosine}, testDocs())
		require.NoError(t, err)
	}

	infos, err := st.ListCollections()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, DistanceCosine, infos[0].Distance)

	require.NoError(t, st.DeleteCollection("alpha"))
	exists, err := st.CollectionExists("alpha")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCheckCompatibility(t *testing.T) {
	info := domain.CollectionInfo{Name: "kb", SchemaVersion: CurrentSchemaVersion, Model: "m1", Dimension: 3}

	assert.False(t, CheckCompatibility(info, "m1", 3).NeedsRebuild)
	assert.True(t, CheckCompatibility(info, "m1", 4).NeedsRebuild)
	assert.True(t, CheckCompatibility(info, "m2", 3).NeedsRebuild)

	info.SchemaVersion = CurrentSchemaVersion + 1
	res := CheckCompatibility(info, "m1", 3)
	assert.True(t, res.NeedsRebuild)
	assert.Contains(t, res.Reason, "newer version")
}
