package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexSpace56/data-navigator/internal/answer"
	"github.com/alexSpace56/data-navigator/internal/errors"
)

// Role identifies who wrote a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is immutable once appended
type Message struct {
	ID        string
	Role      Role
	Text      string
	Results   []answer.ContextItem
	CreatedAt time.Time
}

// History keeps messages in order. Deleting hides a message without
// removing it, so ids stay stable for the life of the session.
type History struct {
	mu       sync.RWMutex
	messages []Message
	deleted  map[string]struct{}
	now      func() time.Time
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{deleted: make(map[string]struct{}), now: time.Now}
}

// Append records a message and returns it with id and timestamp filled in
func (h *History) Append(role Role, text string, results []answer.ContextItem) Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := Message{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Results:   append([]answer.ContextItem(nil), results...),
		CreatedAt: h.now(),
	}

	h.messages = append(h.messages, msg)

	return msg
}

// Visible returns the messages not deleted, oldest first
func (h *History) Visible() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Message, 0, len(h.messages)-len(h.deleted))

	for _, m := range h.messages {
		if _, gone := h.deleted[m.ID]; !gone {
			out = append(out, m)
		}
	}

	return out
}

// Delete hides the n-th visible message, counting from 1
func (h *History) Delete(n int) (Message, error) {
	visible := h.Visible()

	if n < 1 || n > len(visible) {
		return Message{}, errors.Newf(errors.ErrTypeValidation, "no message #%d (history has %d)", n, len(visible))
	}

	msg := visible[n-1]

	h.mu.Lock()
	h.deleted[msg.ID] = struct{}{}
	h.mu.Unlock()

	return msg, nil
}

// LastAnswer returns the most recent visible assistant message with results
func (h *History) LastAnswer() (Message, bool) {
	visible := h.Visible()

	for i := len(visible) - 1; i >= 0; i-- {
		if visible[i].Role == RoleAssistant && len(visible[i].Results) > 0 {
			return visible[i], true
		}
	}

	return Message{}, false
}

// Len counts every message ever appended, deleted ones included
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.messages)
}
