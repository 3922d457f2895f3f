package crag

import "sync"

// DefaultHistoryLimit bounds how many answers are kept per session.
const DefaultHistoryLimit = 50

// History is a bounded in-memory answer store keyed by session ID. One
// instance is created per deployment and injected into the orchestrator;
// the oldest entries are evicted once a session exceeds the limit.
type History struct {
	mu      sync.Mutex
	limit   int
	entries map[string][]*Answer
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		limit:   limit,
		entries: make(map[string][]*Answer),
	}
}

// Append stores an answer for the session, evicting the oldest entry when
// the per-session limit is reached.
func (h *History) Append(sessionID string, ans *Answer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := append(h.entries[sessionID], ans)
	if len(entries) > h.limit {
		entries = entries[len(entries)-h.limit:]
	}
	h.entries[sessionID] = entries
}

// List returns the session's answers, oldest first. The returned slice is a
// copy and safe to retain.
func (h *History) List(sessionID string) []*Answer {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.entries[sessionID]
	out := make([]*Answer, len(entries))
	copy(out, entries)
	return out
}
