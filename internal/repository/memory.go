package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"marketplace-chat/internal/domain/conversation"
	"marketplace-chat/internal/domain/message"
	chat_errors "marketplace-chat/pkg/errors"

	"github.com/google/uuid"
)

// MemoryConversationRepository is a mutex-guarded in-memory registry used by
// tests and DB-less local runs. Counter updates happen under the lock, so the
// atomicity contract of the interface holds.
type MemoryConversationRepository struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*conversation.Conversation
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		conversations: make(map[uuid.UUID]*conversation.Conversation),
	}
}

// snapshot detaches a returned conversation from the stored entry; the unread
// map must be copied too or callers would race later counter updates.
func snapshot(c *conversation.Conversation) conversation.Conversation {
	out := *c
	if c.UnreadCount != nil {
		counts := make(map[string]int64, len(c.UnreadCount))
		for k, v := range c.UnreadCount {
			counts[k] = v
		}
		out.UnreadCount = counts
	}
	return out
}

func (r *MemoryConversationRepository) FindOrCreate(ctx context.Context, a, b uuid.UUID, bookingID *string) (conversation.Conversation, bool, error) {
	if a == b {
		return conversation.Conversation{}, false, chat_errors.ErrInvalidInput
	}
	pa, pb := conversation.NormalizePair(a, b)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.conversations {
		if c.IsActive && c.ParticipantA == pa && c.ParticipantB == pb {
			return snapshot(c), false, nil
		}
	}

	now := time.Now()
	c := &conversation.Conversation{
		ID:           uuid.New(),
		ParticipantA: pa,
		ParticipantB: pb,
		UnreadCount:  map[string]int64{pa.String(): 0, pb.String(): 0},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if bookingID != nil && *bookingID != "" {
		c.BookingID = sql.NullString{String: *bookingID, Valid: true}
	}
	r.conversations[c.ID] = c
	return snapshot(c), true, nil
}

func (r *MemoryConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[id]
	if !ok {
		return conversation.Conversation{}, chat_errors.ErrNotFound
	}
	return snapshot(c), nil
}

func (r *MemoryConversationRepository) ListActive(ctx context.Context, participantID uuid.UUID, page, limit int) ([]conversation.Conversation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []conversation.Conversation
	for _, c := range r.conversations {
		if c.IsActive && c.HasParticipant(participantID) {
			items = append(items, snapshot(c))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})

	total := int64(len(items))
	start := (page - 1) * limit
	if start >= len(items) {
		return []conversation.Conversation{}, total, nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], total, nil
}

func (r *MemoryConversationRepository) UpdateLastMessage(ctx context.Context, id uuid.UUID, snapshot conversation.LastMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[id]
	if !ok {
		return chat_errors.ErrNotFound
	}
	c.LastMessage = snapshot
	c.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryConversationRepository) IncrementUnread(ctx context.Context, id, participantID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[id]
	if !ok || !c.IsActive {
		return chat_errors.ErrNotFound
	}
	if c.UnreadCount == nil {
		c.UnreadCount = make(map[string]int64)
	}
	c.UnreadCount[participantID.String()]++
	return nil
}

func (r *MemoryConversationRepository) ResetUnread(ctx context.Context, id, participantID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[id]
	if !ok {
		return chat_errors.ErrNotFound
	}
	if c.UnreadCount == nil {
		c.UnreadCount = make(map[string]int64)
	}
	c.UnreadCount[participantID.String()] = 0
	return nil
}

func (r *MemoryConversationRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[id]
	if !ok || !c.IsActive {
		return chat_errors.ErrNotFound
	}
	c.IsActive = false
	c.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryConversationRepository) UnreadTotal(ctx context.Context, participantID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total int64
	key := participantID.String()
	for _, c := range r.conversations {
		if c.IsActive && c.HasParticipant(participantID) {
			total += c.UnreadCount[key]
		}
	}
	return total, nil
}

// MemoryMessageRepository keeps messages in append order per conversation.
type MemoryMessageRepository struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*message.Message
	// order preserves ledger append order per conversation
	order map[uuid.UUID][]uuid.UUID
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{
		messages: make(map[uuid.UUID]*message.Message),
		order:    make(map[uuid.UUID][]uuid.UUID),
	}
}

func (r *MemoryMessageRepository) Create(ctx context.Context, msg *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.messages[msg.ID]; exists {
		return chat_errors.ErrAlreadyExists
	}
	stored := *msg
	r.messages[msg.ID] = &stored
	r.order[msg.ConversationID] = append(r.order[msg.ConversationID], msg.ID)
	return nil
}

func (r *MemoryMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.messages[id]
	if !ok {
		return message.Message{}, chat_errors.ErrNotFound
	}
	return *msg, nil
}

func (r *MemoryMessageRepository) Page(ctx context.Context, conversationID uuid.UUID, page, limit int) ([]message.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.order[conversationID]
	total := int64(len(ids))

	// newest first
	var items []message.Message
	for i := len(ids) - 1; i >= 0; i-- {
		items = append(items, *r.messages[ids[i]])
	}

	start := (page - 1) * limit
	if start >= len(items) {
		return []message.Message{}, total, nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], total, nil
}

func (r *MemoryMessageRepository) MarkReadExcludingSender(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed int64
	now := time.Now()
	for _, id := range r.order[conversationID] {
		msg := r.messages[id]
		if msg.SenderID != readerID && !msg.IsRead {
			msg.IsRead = true
			msg.ReadAt = sql.NullTime{Time: now, Valid: true}
			changed++
		}
	}
	return changed, nil
}

func (r *MemoryMessageRepository) CountAfter(ctx context.Context, conversationID uuid.UUID, after time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, id := range r.order[conversationID] {
		if r.messages[id].CreatedAt.After(after) {
			count++
		}
	}
	return count, nil
}
