package websocket

import (
	"encoding/json"
	"time"
)

// Server-to-client event names.
const (
	EventNewMessage      = "newMessage"
	EventNewConversation = "newConversation"
	EventMessageRead     = "messageRead"
)

// Client-to-server event names. sendMessage and markAsRead are a
// compatibility path for socket-first clients; they run through the same
// service as the REST routes.
const (
	EventJoinConversation  = "joinConversation"
	EventLeaveConversation = "leaveConversation"
	EventSendMessage       = "sendMessage"
	EventMarkAsRead        = "markAsRead"
)

// Room name prefixes. Every connection auto-joins its personal room; the
// conversation rooms are joined explicitly and gated on membership.
const (
	roomPrefixParticipant  = "participant:"
	roomPrefixConversation = "conversation:"
)

func ParticipantRoom(participantID string) string {
	return roomPrefixParticipant + participantID
}

func ConversationRoom(conversationID string) string {
	return roomPrefixConversation + conversationID
}

// Envelope is the wire frame for both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ts    int64           `json:"ts,omitempty"`
}

func NewEnvelope(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw, Ts: time.Now().UnixMilli()})
}

// joinPayload is the data frame of join/leave and markAsRead requests.
type joinPayload struct {
	ConversationID string `json:"conversation_id"`
}

// sendPayload is the data frame of the sendMessage event. Attachments only
// travel over the multipart REST route.
type sendPayload struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	ReplyToID      string `json:"reply_to_id,omitempty"`
}

// readPayload is the data frame of the messageRead event.
type readPayload struct {
	ConversationID string `json:"conversation_id"`
	ReaderID       string `json:"reader_id"`
}
