package domain

import "errors"

// Error kinds surfaced by the indexing and retrieval operations.
// Callers match them with errors.Is; the wrapped message carries detail.
var (
	// ErrValidation indicates malformed input such as an empty batch or
	// documents, metadatas and ids of differing lengths.
	ErrValidation = errors.New("validation error")

	// ErrConfiguration indicates a missing or invalid provider credential.
	ErrConfiguration = errors.New("configuration error")

	// ErrStore indicates a failure of the persistent vector index.
	ErrStore = errors.New("store error")

	// ErrCollectionNotFound indicates a collection that does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDimensionMismatch indicates vectors of a different size than the collection's.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrProvider indicates an embedding or language model call failure.
	ErrProvider = errors.New("provider error")

	// ErrProviderTimeout indicates a provider call exceeded its deadline.
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrConversationBusy indicates a question is already pending on a conversation.
	ErrConversationBusy = errors.New("conversation has a pending question")
)

// Kind returns the short label of the first known error kind in err's chain.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrProviderTimeout):
		return "provider_timeout"
	case errors.Is(err, ErrProvider):
		return "provider"
	case errors.Is(err, ErrCollectionNotFound), errors.Is(err, ErrDimensionMismatch), errors.Is(err, ErrStore):
		return "store"
	case errors.Is(err, ErrConversationBusy):
		return "busy"
	default:
		return "internal"
	}
}
