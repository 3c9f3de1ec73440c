package conversation

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation represents the conversations table. Exactly two participants;
// the pair is stored canonically ordered so the unordered pair is the dedup key.
type Conversation struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ParticipantA uuid.UUID `gorm:"type:uuid;not null;index:idx_conversations_pair,priority:1"`
	ParticipantB uuid.UUID `gorm:"type:uuid;not null;index:idx_conversations_pair,priority:2"`
	BookingID    sql.NullString

	LastMessage LastMessage `gorm:"embedded;embeddedPrefix:last_message_"`

	// UnreadCount maps participant id to unread messages. Keys are always a
	// subset of the pair; an absent key means zero.
	UnreadCount map[string]int64 `gorm:"type:jsonb;serializer:json"`

	IsActive  bool      `gorm:"default:true;not null"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_conversations_updated,sort:desc"`
}

// LastMessage is a denormalized snapshot of the most recent message,
// kept on the conversation for list rendering.
type LastMessage struct {
	Content  sql.NullString
	SenderID uuid.NullUUID `gorm:"type:uuid"`
	SentAt   sql.NullTime
}

func (Conversation) TableName() string {
	return "conversations"
}

// NormalizePair returns the pair in canonical (lexicographic) order.
func NormalizePair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if strings.Compare(a.String(), b.String()) > 0 {
		return b, a
	}
	return a, b
}

func (c Conversation) HasParticipant(id uuid.UUID) bool {
	return c.ParticipantA == id || c.ParticipantB == id
}

// OtherParticipant returns the peer of id. The caller must already be a
// participant.
func (c Conversation) OtherParticipant(id uuid.UUID) uuid.UUID {
	if c.ParticipantA == id {
		return c.ParticipantB
	}
	return c.ParticipantA
}

func (c Conversation) Participants() []uuid.UUID {
	return []uuid.UUID{c.ParticipantA, c.ParticipantB}
}

// UnreadFor reads the counter for one participant; absent key means zero.
func (c Conversation) UnreadFor(id uuid.UUID) int64 {
	if c.UnreadCount == nil {
		return 0
	}
	return c.UnreadCount[id.String()]
}
