package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"marketplace-chat/internal/services"
	"marketplace-chat/internal/transport/httpdto"
	"marketplace-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// PresenceTracker mirrors connection state into a shared store so other
// instances can answer "is this participant online".
type PresenceTracker interface {
	SetOnline(ctx context.Context, participantID string) error
	SetOffline(ctx context.Context, participantID string) error
}

type Handler struct {
	verifier   *services.TokenVerifier
	hub        *Hub
	authorizer *RoomAuthorizer
	service    *services.MessagingService
	presence   PresenceTracker
	logger     *logger.Logger
}

func NewHandler(verifier *services.TokenVerifier, hub *Hub, authorizer *RoomAuthorizer, service *services.MessagingService, presence PresenceTracker, l *logger.Logger) *Handler {
	return &Handler{verifier: verifier, hub: hub, authorizer: authorizer, service: service, presence: presence, logger: l}
}

// Connect upgrades the request and runs the read loop until the peer goes
// away. Auth rides on a query parameter because browsers cannot set headers
// on WebSocket dials.
func (h *Handler) Connect(c *gin.Context) {
	participantID, err := h.verifier.ParseParticipant(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, participantID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)
	h.markOnline(ctx, participantID)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		h.dispatch(ctx, client, raw)
	}

	h.hub.Unregister(client)
	h.markOffline(context.Background(), participantID)
}

func (h *Handler) dispatch(ctx context.Context, client *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	switch env.Event {
	case EventJoinConversation:
		h.handleJoin(ctx, client, env.Data, true)
	case EventLeaveConversation:
		h.handleJoin(ctx, client, env.Data, false)
	case EventSendMessage:
		h.handleSend(ctx, client, env.Data)
	case EventMarkAsRead:
		h.handleMarkRead(ctx, client, env.Data)
	}
}

func (h *Handler) handleSend(ctx context.Context, client *Client, data json.RawMessage) {
	var p sendPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	conversationID, err := uuid.Parse(p.ConversationID)
	if err != nil {
		return
	}

	var replyTo uuid.NullUUID
	if p.ReplyToID != "" {
		id, err := uuid.Parse(p.ReplyToID)
		if err != nil {
			return
		}
		replyTo = uuid.NullUUID{UUID: id, Valid: true}
	}

	if _, err := h.service.Send(ctx, client.ParticipantID, conversationID, p.Content, nil, replyTo); err != nil {
		h.logf("socket send to %s rejected: %s", conversationID, err)
	}
}

func (h *Handler) handleMarkRead(ctx context.Context, client *Client, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	conversationID, err := uuid.Parse(p.ConversationID)
	if err != nil {
		return
	}

	if err := h.service.MarkRead(ctx, client.ParticipantID, conversationID); err != nil {
		h.logf("socket mark-read of %s rejected: %s", conversationID, err)
	}
}

func (h *Handler) handleJoin(ctx context.Context, client *Client, data json.RawMessage, join bool) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if _, err := uuid.Parse(p.ConversationID); err != nil {
		return
	}

	room := ConversationRoom(p.ConversationID)

	if !join {
		h.hub.Leave(client, room)
		return
	}

	ok, err := h.authorizer.CanJoin(ctx, client.ParticipantID, room)
	if err != nil {
		h.logf("join check for %s failed: %s", room, err)
		return
	}
	if ok {
		h.hub.Join(client, room)
	}
}

func (h *Handler) markOnline(ctx context.Context, participantID uuid.UUID) {
	if h.presence == nil {
		return
	}
	if err := h.presence.SetOnline(ctx, participantID.String()); err != nil {
		h.logf("presence online for %s failed: %s", participantID, err)
	}
}

func (h *Handler) markOffline(ctx context.Context, participantID uuid.UUID) {
	if h.presence == nil {
		return
	}
	// Other connections of the same participant may still be up.
	if h.hub.ParticipantOnline(participantID.String()) {
		return
	}
	if err := h.presence.SetOffline(ctx, participantID.String()); err != nil {
		h.logf("presence offline for %s failed: %s", participantID, err)
	}
}

func (h *Handler) logf(format string, args ...interface{}) {
	if h.logger != nil {
		h.logger.Warnf(format, args...)
	}
}
