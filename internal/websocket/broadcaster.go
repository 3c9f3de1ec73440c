package websocket

import (
	"marketplace-chat/internal/domain/conversation"
	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/transport/httpdto"
	"marketplace-chat/pkg/logger"

	"github.com/google/uuid"
)

// EventBroadcaster pushes service-layer events onto hub rooms. It satisfies
// the messaging service's Broadcaster port.
type EventBroadcaster struct {
	hub    *Hub
	logger *logger.Logger
}

func NewEventBroadcaster(hub *Hub, l *logger.Logger) *EventBroadcaster {
	return &EventBroadcaster{hub: hub, logger: l}
}

// MessageCreated reaches the conversation room minus the sender, plus the
// recipient's personal room for clients that have not joined the room yet.
func (b *EventBroadcaster) MessageCreated(msg message.Message, recipientID uuid.UUID) {
	payload, err := NewEnvelope(EventNewMessage, httpdto.FromMessage(msg))
	if err != nil {
		b.logf("encode newMessage: %s", err)
		return
	}
	b.hub.BroadcastExcept(ConversationRoom(msg.ConversationID.String()), payload, msg.SenderID.String())
	b.hub.Broadcast(ParticipantRoom(recipientID.String()), payload)
}

func (b *EventBroadcaster) ConversationCreated(conv conversation.Conversation, recipientID uuid.UUID) {
	payload, err := NewEnvelope(EventNewConversation, httpdto.FromConversation(conv, recipientID))
	if err != nil {
		b.logf("encode newConversation: %s", err)
		return
	}
	b.hub.Broadcast(ParticipantRoom(recipientID.String()), payload)
}

func (b *EventBroadcaster) MessagesRead(conversationID, readerID uuid.UUID, recipientID uuid.UUID) {
	payload, err := NewEnvelope(EventMessageRead, readPayload{
		ConversationID: conversationID.String(),
		ReaderID:       readerID.String(),
	})
	if err != nil {
		b.logf("encode messageRead: %s", err)
		return
	}
	b.hub.BroadcastExcept(ConversationRoom(conversationID.String()), payload, readerID.String())
	b.hub.Broadcast(ParticipantRoom(recipientID.String()), payload)
}

func (b *EventBroadcaster) logf(format string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Errorf(format, args...)
	}
}
