package domain

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Turn is one answered question.
type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"at"`
}

// Conversation is the explicit chat state passed into every Ask call.
// At most one question may be pending at a time.
type Conversation struct {
	ID string

	mu      sync.Mutex
	turns   []Turn
	pending string
}

// NewConversation starts an empty conversation with a fresh id.
func NewConversation() *Conversation {
	return &Conversation{ID: uuid.NewString()}
}

// RestoreConversation rebuilds a conversation from previously returned turns.
func RestoreConversation(id string, turns []Turn) *Conversation {
	if id == "" {
		id = uuid.NewString()
	}
	c := &Conversation{ID: id}
	c.turns = append(c.turns, turns...)
	return c
}

// Begin marks question as pending. It fails if another question is still pending.
func (c *Conversation) Begin(question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("%w: question is empty", ErrValidation)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != "" {
		return ErrConversationBusy
	}
	c.pending = question
	return nil
}

// Pending returns the question awaiting an answer, if any.
func (c *Conversation) Pending() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Complete records the answer to the pending question and clears it.
func (c *Conversation) Complete(answer string) Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	turn := Turn{Question: c.pending, Answer: answer, At: time.Now()}
	c.turns = append(c.turns, turn)
	c.pending = ""
	return turn
}

// Abort drops the pending question without recording a turn.
func (c *Conversation) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = ""
}

// History returns up to the last n turns in chronological order. n <= 0 returns all.
func (c *Conversation) History(n int) []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := 0
	if n > 0 && len(c.turns) > n {
		start = len(c.turns) - n
	}
	out := make([]Turn, len(c.turns)-start)
	copy(out, c.turns[start:])
	return out
}

// Len returns the number of answered turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}
