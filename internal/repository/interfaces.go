package repository

import (
	"context"
	"time"

	"marketplace-chat/internal/domain/conversation"
	"marketplace-chat/internal/domain/message"

	"github.com/google/uuid"
)

// ConversationRepository is the conversation registry: pair-unique lookup,
// last-message snapshot, unread counters and the soft-delete flag.
type ConversationRepository interface {
	// FindOrCreate returns the active conversation for the unordered pair,
	// creating it when absent. The bool reports whether a row was created.
	FindOrCreate(ctx context.Context, a, b uuid.UUID, bookingID *string) (conversation.Conversation, bool, error)

	// GetByID also returns soft-deleted conversations; that is the audit path.
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error)

	// ListActive returns active conversations containing participantID,
	// newest activity first, plus the total count.
	ListActive(ctx context.Context, participantID uuid.UUID, page, limit int) ([]conversation.Conversation, int64, error)

	UpdateLastMessage(ctx context.Context, id uuid.UUID, snapshot conversation.LastMessage) error

	// IncrementUnread and ResetUnread must be atomic per conversation row:
	// concurrent sends into the same conversation may not lose an increment.
	IncrementUnread(ctx context.Context, id, participantID uuid.UUID) error
	ResetUnread(ctx context.Context, id, participantID uuid.UUID) error

	SoftDelete(ctx context.Context, id uuid.UUID) error

	// UnreadTotal sums participantID's counters across their active conversations.
	UnreadTotal(ctx context.Context, participantID uuid.UUID) (int64, error)
}

// MessageRepository is the message ledger. Append order within a conversation
// is the source of truth for message ordering.
type MessageRepository interface {
	Create(ctx context.Context, msg *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)

	// Page returns messages newest-first plus the total count. Callers needing
	// chronological order reverse the slice.
	Page(ctx context.Context, conversationID uuid.UUID, page, limit int) ([]message.Message, int64, error)

	// MarkReadExcludingSender flips every unread message not sent by readerID
	// and returns how many rows changed.
	MarkReadExcludingSender(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error)

	// CountAfter supports reconciliation sweeps over recent history.
	CountAfter(ctx context.Context, conversationID uuid.UUID, after time.Time) (int64, error)
}
