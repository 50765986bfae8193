package port

import "catalograg/internal/domain"

// VectorStore is a persistent set of named collections of embedded documents.
type VectorStore interface {
	// CollectionExists reports whether a collection of that name exists.
	CollectionExists(name string) (bool, error)

	// DeleteCollection removes a collection. It returns domain.ErrCollectionNotFound
	// when there is nothing to delete.
	DeleteCollection(name string) error

	// ReplaceCollection drops any existing collection of that name and writes
	// docs into a fresh one as a single atomic step. Duplicate ids keep the last document.
	ReplaceCollection(info domain.CollectionInfo, docs []domain.IndexedDocument) (domain.CollectionInfo, error)

	// Upsert adds or overwrites documents, creating the collection if needed.
	Upsert(info domain.CollectionInfo, docs []domain.IndexedDocument) error

	// Query returns up to k nearest documents ordered by ascending distance.
	Query(name string, vector []float32, k int) ([]domain.QueryResult, error)

	// MatchText returns every document whose text contains substr verbatim,
	// ordered by id.
	MatchText(name string, substr string) ([]domain.QueryResult, error)

	// Info returns the manifest of a collection.
	Info(name string) (domain.CollectionInfo, error)

	// ListCollections returns the manifests of all collections ordered by name.
	ListCollections() ([]domain.CollectionInfo, error)

	// Count returns the number of documents in a collection.
	Count(name string) (int, error)

	Close() error
}
