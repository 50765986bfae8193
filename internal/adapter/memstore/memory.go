package memstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"catalograg/internal/adapter/store"
	"catalograg/internal/domain"
	"catalograg/internal/port"
)

type collection struct {
	info domain.CollectionInfo
	docs map[string]domain.IndexedDocument
}

// MemoryStore is a process-local vector store. Nothing survives Close.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*collection),
	}
}

func (s *MemoryStore) CollectionExists(name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *MemoryStore) DeleteCollection(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	delete(s.collections, name)
	return nil
}

func (s *MemoryStore) ReplaceCollection(info domain.CollectionInfo, docs []domain.IndexedDocument) (domain.CollectionInfo, error) {
	info, err := prepare(info, docs)
	if err != nil {
		return info, err
	}

	coll := &collection{docs: make(map[string]domain.IndexedDocument, len(docs))}
	for _, doc := range docs {
		coll.docs[doc.ID] = copyDocument(doc)
	}
	info.Count = len(coll.docs)
	coll.info = info

	s.mu.Lock()
	s.collections[info.Name] = coll
	s.mu.Unlock()
	return info, nil
}

func (s *MemoryStore) Upsert(info domain.CollectionInfo, docs []domain.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	info, err := prepare(info, docs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[info.Name]
	if !ok {
		coll = &collection{info: info, docs: make(map[string]domain.IndexedDocument)}
		s.collections[info.Name] = coll
	} else if coll.info.Dimension != info.Dimension {
		return fmt.Errorf("%w: collection %s expects %d, got %d", domain.ErrDimensionMismatch, info.Name, coll.info.Dimension, info.Dimension)
	}

	for _, doc := range docs {
		coll.docs[doc.ID] = copyDocument(doc)
	}
	coll.info.Count = len(coll.docs)
	coll.info.BuiltAt = info.BuiltAt
	return nil
}

func (s *MemoryStore) Query(name string, vector []float32, k int) ([]domain.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	if coll.info.Dimension > 0 && len(vector) != coll.info.Dimension {
		return nil, fmt.Errorf("%w: query has %d values, collection %s expects %d", domain.ErrDimensionMismatch, len(vector), name, coll.info.Dimension)
	}

	candidates := make([]store.Scored, 0, len(coll.docs))
	for id, doc := range coll.docs {
		candidates = append(candidates, store.Scored{
			Result:   domain.QueryResult{ID: id, Document: doc.Text, Metadata: doc.Metadata},
			Distance: store.Distance(coll.info.Distance, vector, doc.Embedding),
		})
	}
	return store.TopK(candidates, k), nil
}

func (s *MemoryStore) MatchText(name string, substr string) ([]domain.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}

	results := []domain.QueryResult{}
	for id, doc := range coll.docs {
		if strings.Contains(doc.Text, substr) {
			results = append(results, domain.QueryResult{ID: id, Document: doc.Text, Metadata: doc.Metadata})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (s *MemoryStore) Info(name string) (domain.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, ok := s.collections[name]
	if !ok {
		return domain.CollectionInfo{}, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	return coll.info, nil
}

func (s *MemoryStore) ListCollections() ([]domain.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]domain.CollectionInfo, 0, len(s.collections))
	for _, coll := range s.collections {
		infos = append(infos, coll.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (s *MemoryStore) Count(name string) (int, error) {
	info, err := s.Info(name)
	if err != nil {
		return 0, err
	}
	return info.Count, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func prepare(info domain.CollectionInfo, docs []domain.IndexedDocument) (domain.CollectionInfo, error) {
	if strings.TrimSpace(info.Name) == "" {
		return info, fmt.Errorf("%w: collection name is empty", domain.ErrValidation)
	}
	for _, doc := range docs {
		if doc.ID == "" {
			return info, fmt.Errorf("%w: document id is empty", domain.ErrValidation)
		}
	}
	dim, err := store.VectorDimension(docs)
	if err != nil {
		return info, err
	}
	if dim > 0 {
		info.Dimension = dim
	}
	if info.Distance, err = store.NormalizeDistance(info.Distance); err != nil {
		return info, err
	}
	info.SchemaVersion = store.CurrentSchemaVersion
	info.BuiltAt = time.Now().UTC()
	return info, nil
}

func copyDocument(doc domain.IndexedDocument) domain.IndexedDocument {
	out := doc
	out.Embedding = append([]float32(nil), doc.Embedding...)
	if doc.Metadata != nil {
		out.Metadata = make(domain.Metadata, len(doc.Metadata))
		for k, v := range doc.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

var _ port.VectorStore = (*MemoryStore)(nil)
