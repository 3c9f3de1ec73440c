// Package reconcile merges realtime deliveries into a snapshot-loaded
// timeline. Push frames can arrive twice (conversation room plus personal
// room) or race a snapshot reload, so the timeline dedups by message id.
package reconcile

import (
	"sync"

	"marketplace-chat/internal/domain/message"

	"github.com/google/uuid"
)

// Timeline is one conversation's message list as a client sees it.
type Timeline struct {
	mu    sync.Mutex
	order []uuid.UUID
	byID  map[uuid.UUID]message.Message
}

func NewTimeline() *Timeline {
	return &Timeline{byID: make(map[uuid.UUID]message.Message)}
}

// LoadSnapshot replaces the timeline with an authoritative chronological
// page, typically fetched over HTTP on open or reconnect.
func (t *Timeline) LoadSnapshot(msgs []message.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.order = t.order[:0]
	t.byID = make(map[uuid.UUID]message.Message, len(msgs))
	for _, m := range msgs {
		t.order = append(t.order, m.ID)
		t.byID[m.ID] = m
	}
}

// Apply merges one pushed message and reports whether it was new. A message
// already present is refreshed in place, so a later frame carrying the read
// flag wins without duplicating the entry.
func (t *Timeline) Apply(m message.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, seen := t.byID[m.ID]; seen {
		t.byID[m.ID] = m
		return false
	}
	t.order = append(t.order, m.ID)
	t.byID[m.ID] = m
	return true
}

// MarkAllRead applies a messageRead frame: every message not sent by the
// reader flips to read.
func (t *Timeline) MarkAllRead(readerID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, m := range t.byID {
		if m.SenderID != readerID && !m.IsRead {
			m.IsRead = true
			t.byID[id] = m
		}
	}
}

// Messages returns the timeline in order.
func (t *Timeline) Messages() []message.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]message.Message, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}
