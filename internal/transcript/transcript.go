// Package transcript holds the ordered message history of one reasoning run.
package transcript

import (
	"sync"

	"github.com/ashutoshrp06/reasonchain/internal/types"
)

// Transcript is an append-only message log. Order is the order the backend
// sees.
type Transcript struct {
	messages []types.Message
	mu       sync.RWMutex
}

// New creates a transcript seeded with the given messages.
func New(seed ...types.Message) *Transcript {
	t := &Transcript{
		messages: make([]types.Message, 0, len(seed)+8),
	}
	t.messages = append(t.messages, seed...)
	return t
}

// Append adds messages to the end of the transcript.
func (t *Transcript) Append(msgs ...types.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = append(t.messages, msgs...)
}

// Add appends a single message with the given role.
func (t *Transcript) Add(role, content string) {
	t.Append(types.Message{Role: role, Content: content})
}

// Messages returns a copy of the transcript. Callers may reshape the copy
// freely.
func (t *Transcript) Messages() []types.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]types.Message, len(t.messages))
	copy(result, t.messages)
	return result
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.messages)
}

// Last returns the most recent message.
func (t *Transcript) Last() (types.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.messages) == 0 {
		return types.Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}
