package store

import (
	"fmt"
	"math"
	"sort"

	"catalograg/internal/domain"
)

// Supported distance metrics. Lower is always more similar.
const (
	DistanceL2     = "l2"     // squared euclidean
	DistanceCosine = "cosine" // 1 - cosine similarity
)

// NormalizeDistance maps an empty metric to the default and rejects unknown ones.
func NormalizeDistance(metric string) (string, error) {
	switch metric {
	case "":
		return DistanceL2, nil
	case DistanceL2, DistanceCosine:
		return metric, nil
	default:
		return "", fmt.Errorf("%w: unsupported distance metric %q", domain.ErrValidation, metric)
	}
}

// Distance computes the dissimilarity of two equal-length vectors.
func Distance(metric string, a, b []float32) float64 {
	if metric == DistanceCosine {
		return cosineDistance(a, b)
	}
	return squaredL2(a, b)
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// cosineDistance returns 1 - cosine similarity; a zero vector is maximally distant.
func cosineDistance(a, b []float32) float64 {
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	return 1 - dotProduct/(math.Sqrt(normA)*math.Sqrt(normB))
}

// Scored pairs a stored document with its distance to a query.
type Scored struct {
	Result   domain.QueryResult
	Distance float64
}

// TopK sorts candidates by ascending distance, breaking ties by id, and
// keeps the first k.
func TopK(candidates []Scored, k int) []domain.QueryResult {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].Result.ID < candidates[j].Result.ID
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	if k < 0 {
		k = 0
	}

	results := make([]domain.QueryResult, k)
	for i := 0; i < k; i++ {
		d := candidates[i].Distance
		results[i] = candidates[i].Result
		results[i].Distance = &d
	}
	return results
}

// VectorDimension returns the shared dimension of docs' embeddings.
func VectorDimension(docs []domain.IndexedDocument) (int, error) {
	dim := 0
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			return 0, fmt.Errorf("%w: document %s has no embedding", domain.ErrValidation, doc.ID)
		}
		if dim == 0 {
			dim = len(doc.Embedding)
			continue
		}
		if len(doc.Embedding) != dim {
			return 0, fmt.Errorf("%w: document %s has %d values, expected %d", domain.ErrDimensionMismatch, doc.ID, len(doc.Embedding), dim)
		}
	}
	return dim, nil
}
