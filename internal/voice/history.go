package voice

import (
	"strings"
	"sync"
)

// Role identifies the speaker of a finalized turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one finalized conversation turn. Immutable once appended.
type Turn struct {
	Role Role
	Text string
}

// History is the append-only, ordered record of finalized turns for one
// session. Insertion order is chronological order.
type History struct {
	mu    sync.Mutex
	turns []Turn
}

// Append adds a finalized turn.
func (h *History) Append(role Role, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, Turn{Role: role, Text: text})
}

// Turns returns a copy of the history in chronological order.
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of finalized turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// liveBuffer accumulates the in-progress user and assistant transcripts
// between turn start and turn completion. It is owned by the controller's
// event loop and needs no locking.
type liveBuffer struct {
	user      strings.Builder
	assistant strings.Builder
}

func (b *liveBuffer) appendUser(text string)      { b.user.WriteString(text) }
func (b *liveBuffer) appendAssistant(text string) { b.assistant.WriteString(text) }

// take returns both accumulated transcripts, trimmed, and clears the buffer.
func (b *liveBuffer) take() (user, assistant string) {
	user = strings.TrimSpace(b.user.String())
	assistant = strings.TrimSpace(b.assistant.String())
	b.clear()
	return user, assistant
}

func (b *liveBuffer) clear() {
	b.user.Reset()
	b.assistant.Reset()
}
