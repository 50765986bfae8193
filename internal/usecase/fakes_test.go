package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"catalograg/internal/domain"
	"catalograg/internal/port"
)

// keywordEmbedder puts each text on the axis of the first keyword it contains.
// Texts with no keyword land on a shared fallback axis.
type keywordEmbedder struct {
	keywords []string
	model    string
	err      error

	mu         sync.Mutex
	batchCalls int
}

func newKeywordEmbedder(keywords ...string) *keywordEmbedder {
	return &keywordEmbedder{keywords: keywords, model: "keyword"}
}

func (e *keywordEmbedder) vector(text string) []float32 {
	vec := make([]float32, len(e.keywords)+1)
	for i, kw := range e.keywords {
		if strings.Contains(text, kw) {
			vec[i] = 1
			return vec
		}
	}
	vec[len(e.keywords)] = 1
	return vec
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batchCalls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *keywordEmbedder) Dimension() int    { return len(e.keywords) + 1 }
func (e *keywordEmbedder) ModelName() string { return e.model }

type fakeGenerator struct {
	answer string
	err    error
	last   port.AnswerRequest
}

func (g *fakeGenerator) Answer(_ context.Context, req port.AnswerRequest) (string, error) {
	g.last = req
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *fakeGenerator) ModelName() string { return "fake" }

var errUnavailable = errors.New("service unavailable")

func rawBatch(texts map[string]string, ranks map[string]float64) ([]string, []domain.Metadata, []string) {
	var docs []string
	var metas []domain.Metadata
	var ids []string
	for id, text := range texts {
		ids = append(ids, id)
		docs = append(docs, text)
		meta := domain.Metadata{}
		if r, ok := ranks[id]; ok {
			meta[domain.MetaRank] = r
		}
		metas = append(metas, meta)
	}
	return docs, metas, ids
}
