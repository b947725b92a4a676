// Package chat provides the core chat domain state shared by both
// transports: the bounded message history and the server-side session
// registry.
package chat

import "lanchat/pkg/protocol"

// HistoryLimit is the number of recent messages retained. The oldest
// entry is evicted before a new one is appended at capacity.
const HistoryLimit = 10

// History is an insertion-ordered FIFO buffer of recent messages.
// It is not safe for concurrent use; the Registry serializes access on
// the server, and the UDP node touches it from a single goroutine.
type History struct {
	entries []protocol.Message
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{entries: make([]protocol.Message, 0, HistoryLimit)}
}

// Append adds a message, evicting the oldest entry first when full.
func (h *History) Append(m protocol.Message) {
	if len(h.entries) >= HistoryLimit {
		h.entries = h.entries[1:]
	}
	h.entries = append(h.entries, m)
}

// Replace swaps in another node's snapshot wholesale, keeping only the
// newest HistoryLimit entries.
func (h *History) Replace(entries []protocol.Message) {
	if len(entries) > HistoryLimit {
		entries = entries[len(entries)-HistoryLimit:]
	}
	h.entries = append(h.entries[:0], entries...)
}

// Snapshot returns a copy of the entries, oldest first.
func (h *History) Snapshot() []protocol.Message {
	out := make([]protocol.Message, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of retained messages.
func (h *History) Len() int {
	return len(h.entries)
}
