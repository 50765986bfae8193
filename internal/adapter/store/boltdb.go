package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"catalograg/internal/domain"
	"catalograg/internal/port"
)

var (
	bucketCollections = []byte("collections")
	bucketDocs        = []byte("docs")
)

// BoltStore keeps every collection of a persist directory in one bbolt file.
// Each collection is a nested bucket holding its manifest and a docs bucket.
type BoltStore struct {
	db *bbolt.DB
}

type storedDocument struct {
	Text     string          `json:"t"`
	Metadata domain.Metadata `json:"m,omitempty"`
	Vector   []float32       `json:"v"`
}

// Open opens (creating if needed) the index database of a persist directory.
// The file is locked exclusively; a second process waits up to timeout.
func Open(persistDir string, timeout time.Duration) (*BoltStore, error) {
	if err := os.MkdirAll(persistDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create persist dir: %v", domain.ErrStore, err)
	}
	return NewBoltStore(filepath.Join(persistDir, "index.db"), timeout)
}

// NewBoltStore opens the bbolt database at path.
func NewBoltStore(path string, timeout time.Duration) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, fmt.Errorf("%w: index %s is locked by another process", domain.ErrStore, path)
		}
		return nil, fmt.Errorf("%w: failed to open bolt db: %v", domain.ErrStore, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCollections)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to create bucket %s: %v", domain.ErrStore, bucketCollections, err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) CollectionExists(name string) (bool, error) {
	exists := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(bucketCollections).Bucket([]byte(name)) != nil
		return nil
	})
	if err != nil {
		return false, storeErr(err)
	}
	return exists, nil
}

func (s *BoltStore) DeleteCollection(name string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketCollections)
		if root.Bucket([]byte(name)) == nil {
			return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
		}
		return root.DeleteBucket([]byte(name))
	})
	return storeErr(err)
}

func (s *BoltStore) ReplaceCollection(info domain.CollectionInfo, docs []domain.IndexedDocument) (domain.CollectionInfo, error) {
	info, err := prepareManifest(info, docs)
	if err != nil {
		return info, err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketCollections)
		key := []byte(info.Name)

		// Deleting a collection that was never built is a no-op, not an error.
		if root.Bucket(key) != nil {
			if err := root.DeleteBucket(key); err != nil {
				return err
			}
		}

		coll, err := root.CreateBucket(key)
		if err != nil {
			return err
		}
		docsBucket, err := coll.CreateBucket(bucketDocs)
		if err != nil {
			return err
		}

		info.Count, err = putDocuments(docsBucket, docs)
		if err != nil {
			return err
		}
		return writeManifest(coll, info)
	})
	if err != nil {
		return info, storeErr(err)
	}
	return info, nil
}

func (s *BoltStore) Upsert(info domain.CollectionInfo, docs []domain.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	info, err := prepareManifest(info, docs)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketCollections)
		coll := root.Bucket([]byte(info.Name))
		if coll == nil {
			if coll, err = root.CreateBucket([]byte(info.Name)); err != nil {
				return err
			}
			if _, err = coll.CreateBucket(bucketDocs); err != nil {
				return err
			}
		} else {
			existing, err := readManifest(coll, info.Name)
			if err != nil {
				return err
			}
			if existing.Dimension != info.Dimension {
				return fmt.Errorf("%w: collection %s expects %d, got %d", domain.ErrDimensionMismatch, info.Name, existing.Dimension, info.Dimension)
			}
			info.Model = existing.Model
			info.Distance = existing.Distance
		}

		docsBucket := coll.Bucket(bucketDocs)
		if _, err := putDocuments(docsBucket, docs); err != nil {
			return err
		}
		info.Count = countKeys(docsBucket)
		return writeManifest(coll, info)
	})
	return storeErr(err)
}

func (s *BoltStore) Query(name string, vector []float32, k int) ([]domain.QueryResult, error) {
	var results []domain.QueryResult
	err := s.db.View(func(tx *bbolt.Tx) error {
		coll, info, err := openCollection(tx, name)
		if err != nil {
			return err
		}
		if info.Dimension > 0 && len(vector) != info.Dimension {
			return fmt.Errorf("%w: query has %d values, collection %s expects %d", domain.ErrDimensionMismatch, len(vector), name, info.Dimension)
		}

		var candidates []Scored
		err = coll.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var doc storedDocument
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("%w: corrupt document %s: %v", domain.ErrStore, k, err)
			}
			if len(doc.Vector) != len(vector) {
				return fmt.Errorf("%w: document %s has %d values", domain.ErrDimensionMismatch, k, len(doc.Vector))
			}
			candidates = append(candidates, Scored{
				Result:   domain.QueryResult{ID: string(k), Document: doc.Text, Metadata: doc.Metadata},
				Distance: Distance(info.Distance, vector, doc.Vector),
			})
			return nil
		})
		if err != nil {
			return err
		}

		results = TopK(candidates, k)
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return results, nil
}

func (s *BoltStore) MatchText(name string, substr string) ([]domain.QueryResult, error) {
	results := []domain.QueryResult{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		coll, _, err := openCollection(tx, name)
		if err != nil {
			return err
		}
		// ForEach walks keys in byte order, so matches come out ordered by id.
		return coll.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var doc storedDocument
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("%w: corrupt document %s: %v", domain.ErrStore, k, err)
			}
			if strings.Contains(doc.Text, substr) {
				results = append(results, domain.QueryResult{ID: string(k), Document: doc.Text, Metadata: doc.Metadata})
			}
			return nil
		})
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return results, nil
}

func (s *BoltStore) Info(name string) (domain.CollectionInfo, error) {
	var info domain.CollectionInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		_, info, err = openCollection(tx, name)
		return err
	})
	return info, storeErr(err)
}

func (s *BoltStore) ListCollections() ([]domain.CollectionInfo, error) {
	var infos []domain.CollectionInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketCollections)
		return root.ForEach(func(k, v []byte) error {
			coll := root.Bucket(k)
			if coll == nil {
				return nil
			}
			info, err := readManifest(coll, string(k))
			if err != nil {
				return err
			}
			infos = append(infos, info)
			return nil
		})
	})
	if err != nil {
		return nil, storeErr(err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (s *BoltStore) Count(name string) (int, error) {
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		coll, _, err := openCollection(tx, name)
		if err != nil {
			return err
		}
		count = countKeys(coll.Bucket(bucketDocs))
		return nil
	})
	return count, storeErr(err)
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func openCollection(tx *bbolt.Tx, name string) (*bbolt.Bucket, domain.CollectionInfo, error) {
	coll := tx.Bucket(bucketCollections).Bucket([]byte(name))
	if coll == nil {
		return nil, domain.CollectionInfo{}, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	info, err := readManifest(coll, name)
	if err != nil {
		return nil, info, err
	}
	if coll.Bucket(bucketDocs) == nil {
		return nil, info, fmt.Errorf("%w: collection %s has no documents bucket", domain.ErrStore, name)
	}
	return coll, info, nil
}

// countKeys walks the bucket with a cursor so uncommitted writes are included.
func countKeys(b *bbolt.Bucket) int {
	n := 0
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n
}

func putDocuments(b *bbolt.Bucket, docs []domain.IndexedDocument) (int, error) {
	unique := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		data, err := json.Marshal(storedDocument{
			Text:     doc.Text,
			Metadata: doc.Metadata,
			Vector:   doc.Embedding,
		})
		if err != nil {
			return 0, err
		}
		if err := b.Put([]byte(doc.ID), data); err != nil {
			return 0, err
		}
		unique[doc.ID] = struct{}{}
	}
	return len(unique), nil
}

// prepareManifest validates a write and fills in the manifest fields derived from it.
func prepareManifest(info domain.CollectionInfo, docs []domain.IndexedDocument) (domain.CollectionInfo, error) {
	if strings.TrimSpace(info.Name) == "" {
		return info, fmt.Errorf("%w: collection name is empty", domain.ErrValidation)
	}
	for _, doc := range docs {
		if doc.ID == "" {
			return info, fmt.Errorf("%w: document id is empty", domain.ErrValidation)
		}
	}

	dim, err := VectorDimension(docs)
	if err != nil {
		return info, err
	}
	if info.Dimension != 0 && info.Dimension != dim && len(docs) > 0 {
		return info, fmt.Errorf("%w: manifest declares %d, documents have %d", domain.ErrDimensionMismatch, info.Dimension, dim)
	}
	if dim > 0 {
		info.Dimension = dim
	}

	if info.Distance, err = NormalizeDistance(info.Distance); err != nil {
		return info, err
	}
	info.SchemaVersion = CurrentSchemaVersion
	info.BuiltAt = time.Now().UTC()
	return info, nil
}

// storeErr tags errors that do not already carry a known kind as store errors.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if domain.Kind(err) != "internal" {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStore, err)
}

var _ port.VectorStore = (*BoltStore)(nil)
