package embedding

import (
	"context"
	"fmt"

	"catalograg/internal/adapter/guard"
	"catalograg/internal/domain"
	"catalograg/internal/port"
)

// GuardedEmbedder routes every provider call through a guard and checks
// that the provider kept its promises about vector count and size.
type GuardedEmbedder struct {
	inner port.Embedder
	guard *guard.Guard
}

func NewGuardedEmbedder(inner port.Embedder, g *guard.Guard) *GuardedEmbedder {
	return &GuardedEmbedder{inner: inner, guard: g}
}

func (e *GuardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.guard.Do(ctx, func(ctx context.Context) (any, error) {
		return e.inner.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	vec := res.([]float32)
	if len(vec) != e.inner.Dimension() {
		return nil, fmt.Errorf("%w: %s returned %d values, expected %d", domain.ErrDimensionMismatch, e.inner.ModelName(), len(vec), e.inner.Dimension())
	}
	return vec, nil
}

func (e *GuardedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	res, err := e.guard.Do(ctx, func(ctx context.Context) (any, error) {
		return e.inner.EmbedBatch(ctx, texts)
	})
	if err != nil {
		return nil, err
	}

	vectors := res.([][]float32)
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d texts", domain.ErrProvider, e.inner.ModelName(), len(vectors), len(texts))
	}
	for i, vec := range vectors {
		if len(vec) != e.inner.Dimension() {
			return nil, fmt.Errorf("%w: vector %d has %d values, expected %d", domain.ErrDimensionMismatch, i, len(vec), e.inner.Dimension())
		}
	}
	return vectors, nil
}

func (e *GuardedEmbedder) Dimension() int {
	return e.inner.Dimension()
}

func (e *GuardedEmbedder) ModelName() string {
	return e.inner.ModelName()
}
