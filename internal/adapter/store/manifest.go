package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"catalograg/internal/domain"
)

// CurrentSchemaVersion is the current collection layout version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var keyManifest = []byte("manifest")

func readManifest(b *bbolt.Bucket, name string) (domain.CollectionInfo, error) {
	var info domain.CollectionInfo
	data := b.Get(keyManifest)
	if data == nil {
		return info, fmt.Errorf("%w: collection %s has no manifest", domain.ErrStore, name)
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("%w: corrupt manifest for %s: %v", domain.ErrStore, name, err)
	}
	info.Name = name
	return info, nil
}

func writeManifest(b *bbolt.Bucket, info domain.CollectionInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return b.Put(keyManifest, data)
}

// CompatibilityResult describes whether a collection can serve an embedder.
type CompatibilityResult struct {
	NeedsRebuild bool
	Reason       string
}

// CheckCompatibility compares a collection manifest with the embedder that
// will query it. A different model or dimension means the collection must
// be rebuilt before semantic search can use it.
func CheckCompatibility(info domain.CollectionInfo, model string, dimension int) CompatibilityResult {
	switch {
	case info.SchemaVersion > CurrentSchemaVersion:
		return CompatibilityResult{
			NeedsRebuild: true,
			Reason:       fmt.Sprintf("collection created by newer version (v%d > v%d)", info.SchemaVersion, CurrentSchemaVersion),
		}
	case dimension > 0 && info.Dimension != dimension:
		return CompatibilityResult{
			NeedsRebuild: true,
			Reason:       fmt.Sprintf("collection %s holds %d-dimensional vectors, embedder produces %d", info.Name, info.Dimension, dimension),
		}
	case model != "" && info.Model != "" && info.Model != model:
		return CompatibilityResult{
			NeedsRebuild: true,
			Reason:       fmt.Sprintf("collection %s was built with model %s, embedder uses %s", info.Name, info.Model, model),
		}
	}
	return CompatibilityResult{}
}
