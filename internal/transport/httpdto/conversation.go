package httpdto

import (
	"time"

	"marketplace-chat/internal/domain/conversation"

	"github.com/google/uuid"
)

type CreateConversationRequest struct {
	ParticipantID  string `json:"participant_id" binding:"required"`
	BookingID      string `json:"booking_id"`
	InitialMessage string `json:"initial_message"`
}

type ConversationView struct {
	ID            string           `json:"id"`
	ParticipantID string           `json:"participant_id"`
	BookingID     string           `json:"booking_id,omitempty"`
	LastMessage   *LastMessageView `json:"last_message,omitempty"`
	UnreadCount   int64            `json:"unread_count"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type LastMessageView struct {
	Content   string    `json:"content"`
	SenderID  string    `json:"sender_id"`
	Timestamp time.Time `json:"timestamp"`
}

// FromConversation renders the conversation as seen by viewer: the peer's id
// and the viewer's own unread counter.
func FromConversation(c conversation.Conversation, viewer uuid.UUID) ConversationView {
	v := ConversationView{
		ID:            c.ID.String(),
		ParticipantID: c.OtherParticipant(viewer).String(),
		UnreadCount:   c.UnreadFor(viewer),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.BookingID.Valid {
		v.BookingID = c.BookingID.String
	}
	if c.LastMessage.Content.Valid {
		v.LastMessage = &LastMessageView{
			Content:   c.LastMessage.Content.String,
			SenderID:  c.LastMessage.SenderID.UUID.String(),
			Timestamp: c.LastMessage.SentAt.Time,
		}
	}
	return v
}

func FromConversations(convs []conversation.Conversation, viewer uuid.UUID) []ConversationView {
	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		views = append(views, FromConversation(c, viewer))
	}
	return views
}

type UnreadTotalView struct {
	Total int64 `json:"total"`
}
