package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalograg/internal/adapter/memstore"
	"catalograg/internal/domain"
)

func TestAskUsesRetrievedContext(t *testing.T) {
	st, emb := indexed(t, map[string]string{
		"cream": "Hydrating Cream for Dry skin",
		"gel":   "Oil-Free Gel",
	}, nil, "Cream", "Gel")
	gen := &fakeGenerator{answer: "Try the cream."}
	chat := NewChatUseCase(NewRetriever(st, emb, nil), gen, "kb", 1, 4, nil)

	conv := domain.NewConversation()
	reply, err := chat.Ask(context.Background(), conv, "  Which Cream?  ")
	require.NoError(t, err)

	assert.Equal(t, "Try the cream.", reply.Turn.Answer)
	assert.Equal(t, "Which Cream?", reply.Turn.Question)
	require.Len(t, reply.Sources, 1)
	assert.Equal(t, "cream", reply.Sources[0].ID)
	assert.Equal(t, []string{"Hydrating Cream for Dry skin"}, gen.last.Context)
	assert.Empty(t, gen.last.History)
	assert.Equal(t, 1, conv.Len())
	assert.Empty(t, conv.Pending())
}

func TestAskSendsHistory(t *testing.T) {
	st, emb := indexed(t, map[string]string{"a": "x"}, nil, "x")
	gen := &fakeGenerator{answer: "ok"}
	chat := NewChatUseCase(NewRetriever(st, emb, nil), gen, "kb", 5, 1, nil)
	conv := domain.NewConversation()

	for _, q := range []string{"first", "second", "third"} {
		_, err := chat.Ask(context.Background(), conv, q)
		require.NoError(t, err)
	}

	require.Len(t, gen.last.History, 1)
	assert.Equal(t, "second", gen.last.History[0].Question)
	assert.Equal(t, 3, conv.Len())
}

func TestAskRetrievalFailureStillAnswers(t *testing.T) {
	gen := &fakeGenerator{answer: "Hello!"}
	chat := NewChatUseCase(NewRetriever(memstore.NewMemoryStore(), newKeywordEmbedder("x"), nil), gen, "missing", 5, 0, nil)

	reply, err := chat.Ask(context.Background(), domain.NewConversation(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", reply.Turn.Answer)
	assert.Empty(t, gen.last.Context)
}

func TestAskGeneratorFailureRecordsNothing(t *testing.T) {
	st, emb := indexed(t, map[string]string{"a": "x"}, nil, "x")
	gen := &fakeGenerator{err: errUnavailable}
	chat := NewChatUseCase(NewRetriever(st, emb, nil), gen, "kb", 5, 0, nil)
	conv := domain.NewConversation()

	_, err := chat.Ask(context.Background(), conv, "q")
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, 0, conv.Len())
	assert.Empty(t, conv.Pending(), "a failed answer releases the conversation")
}

func TestAskRejectsBusyConversation(t *testing.T) {
	st, emb := indexed(t, map[string]string{"a": "x"}, nil, "x")
	chat := NewChatUseCase(NewRetriever(st, emb, nil), &fakeGenerator{answer: "ok"}, "kb", 5, 0, nil)
	conv := domain.NewConversation()
	require.NoError(t, conv.Begin("still thinking"))

	_, err := chat.Ask(context.Background(), conv, "another")
	assert.ErrorIs(t, err, domain.ErrConversationBusy)
}

func TestAskWithoutGenerator(t *testing.T) {
	chat := NewChatUseCase(NewRetriever(memstore.NewMemoryStore(), nil, nil), nil, "kb", 5, 0, nil)
	_, err := chat.Ask(context.Background(), domain.NewConversation(), "q")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
