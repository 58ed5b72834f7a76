// Package conversation keeps the bounded per-session turn history that feeds
// follow-up detection, query rewriting and prompt composition.
package conversation

import "sync"

// Turn is one completed exchange.
type Turn struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
	// Subject is the title of the record the answer was built from, if any.
	Subject string `json:"subject,omitempty"`
}

// History is a fixed-capacity ring buffer of turns indexed by turn number.
// Appending past capacity overwrites the oldest turn. Safe for concurrent use.
type History struct {
	mu    sync.RWMutex
	slots []Turn
	seq   uint64 // turns appended so far
}

// NewHistory creates a history holding at most capacity turns (minimum 1).
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{slots: make([]Turn, capacity)}
}

// Cap returns the capacity.
func (h *History) Cap() int {
	return len(h.slots)
}

// Append records a turn, evicting the oldest once full.
func (h *History) Append(t Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.slots[h.seq%uint64(len(h.slots))] = t
	h.seq++
}

// Replace discards the stored turns and keeps the newest Cap() of turns.
func (h *History) Replace(turns []Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.slots)
	h.seq = 0
	if extra := len(turns) - len(h.slots); extra > 0 {
		turns = turns[extra:]
	}
	for _, t := range turns {
		h.slots[h.seq%uint64(len(h.slots))] = t
		h.seq++
	}
}

// Len returns the number of retained turns.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lenLocked()
}

func (h *History) lenLocked() int {
	if h.seq < uint64(len(h.slots)) {
		return int(h.seq)
	}
	return len(h.slots)
}

// Total returns the number of turns ever appended, including evicted ones.
func (h *History) Total() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// Turns returns the retained turns, oldest first.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.lenLocked()
	out := make([]Turn, 0, n)
	for i := h.seq - uint64(n); i < h.seq; i++ {
		out = append(out, h.slots[i%uint64(len(h.slots))])
	}
	return out
}

// Last returns the most recent turn.
func (h *History) Last() (Turn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.seq == 0 {
		return Turn{}, false
	}
	return h.slots[(h.seq-1)%uint64(len(h.slots))], true
}
