package port

import (
	"context"

	"catalograg/internal/domain"
)

// AnswerRequest carries everything the answer generator may use.
type AnswerRequest struct {
	Question string
	Context  []string      // retrieved document texts, best match first
	History  []domain.Turn // earlier turns, oldest first
}

// AnswerGenerator turns a question and retrieved context into a reply.
type AnswerGenerator interface {
	Answer(ctx context.Context, req AnswerRequest) (string, error)

	// ModelName returns the name of the generation model.
	ModelName() string
}
