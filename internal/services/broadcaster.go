package services

import (
	"marketplace-chat/internal/domain/conversation"
	"marketplace-chat/internal/domain/message"

	"github.com/google/uuid"
)

// Broadcaster is the messaging service's outbound port to the realtime hub.
// Every call happens after the corresponding write is durably committed, and
// implementations must never fail the caller: delivery is best-effort.
type Broadcaster interface {
	// MessageCreated fans out to the conversation room and, as a redundant
	// path for clients that have not joined the room yet, to the recipient's
	// personal room.
	MessageCreated(msg message.Message, recipientID uuid.UUID)

	// ConversationCreated notifies the other participant of a fresh thread.
	ConversationCreated(conv conversation.Conversation, recipientID uuid.UUID)

	// MessagesRead tells the conversation room that readerID caught up.
	MessagesRead(conversationID, readerID uuid.UUID, recipientID uuid.UUID)
}

// NopBroadcaster is used when the hub is absent (migrations, batch tools).
type NopBroadcaster struct{}

func (NopBroadcaster) MessageCreated(message.Message, uuid.UUID)                {}
func (NopBroadcaster) ConversationCreated(conversation.Conversation, uuid.UUID) {}
func (NopBroadcaster) MessagesRead(uuid.UUID, uuid.UUID, uuid.UUID)             {}
