package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"catalograg/internal/domain"
	"catalograg/internal/port"
)

// ChatUseCase answers questions from retrieved catalog context.
type ChatUseCase struct {
	retriever    *Retriever
	generator    port.AnswerGenerator
	collection   string
	topK         int
	historyTurns int
	logger       *slog.Logger
}

// NewChatUseCase creates a chat use case. historyTurns bounds how many
// earlier turns are sent to the generator; 0 sends none.
func NewChatUseCase(retriever *Retriever, generator port.AnswerGenerator, collection string, topK, historyTurns int, logger *slog.Logger) *ChatUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ChatUseCase{
		retriever:    retriever,
		generator:    generator,
		collection:   collection,
		topK:         topK,
		historyTurns: historyTurns,
		logger:       logger,
	}
}

// Reply is an answered question plus the documents it was grounded on.
type Reply struct {
	Turn    domain.Turn
	Sources []domain.QueryResult
}

// Ask answers question within conv. The conversation accepts one question
// at a time; a failed answer leaves no turn behind.
func (u *ChatUseCase) Ask(ctx context.Context, conv *domain.Conversation, question string) (Reply, error) {
	if u.generator == nil {
		return Reply{}, fmt.Errorf("%w: no answer generator configured", domain.ErrConfiguration)
	}
	if err := conv.Begin(question); err != nil {
		return Reply{}, err
	}
	question = conv.Pending()

	// Retrieval failures degrade to an answer without catalog context.
	var contextDocs []string
	var sources []domain.QueryResult
	outcome := u.retriever.Semantic(ctx, question, u.collection, u.topK)
	if outcome.OK {
		sources = outcome.Results
		for _, r := range outcome.Results {
			contextDocs = append(contextDocs, r.Document)
		}
	} else {
		u.logger.Warn("retrieval failed, answering without context", "conversation", conv.ID, "reason", outcome.Message)
	}

	var history []domain.Turn
	if u.historyTurns > 0 {
		history = conv.History(u.historyTurns)
	}

	answer, err := u.generator.Answer(ctx, port.AnswerRequest{
		Question: question,
		Context:  contextDocs,
		History:  history,
	})
	if err != nil {
		conv.Abort()
		return Reply{}, providerErr(err)
	}

	turn := conv.Complete(answer)
	u.logger.Debug("answered question", "conversation", conv.ID, "context_docs", len(contextDocs), "turns", conv.Len())
	return Reply{Turn: turn, Sources: sources}, nil
}
