package websocket

import (
	"context"
	"sync"
)

// membershipRequest carries a room join/leave through the hub's event loop.
type membershipRequest struct {
	client *Client
	room   string
	join   bool
}

// maxConnsPerParticipant bounds open sockets per participant; a handful
// covers every device plus a few stale reconnects.
const maxConnsPerParticipant = 8

// Hub tracks connections and room membership. Registration auto-joins the
// client's personal room, so direct notifications work before any explicit
// join arrives.
type Hub struct {
	mu sync.RWMutex

	clients map[string]*Client
	rooms   map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	membership chan membershipRequest
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		membership: make(chan membershipRequest, 512),
	}
}

// Run is the hub's event loop; start it once at boot.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case req := <-h.membership:
			if req.join {
				h.joinRoom(req.client, req.room)
			} else {
				h.leaveRoom(req.client, req.room)
			}
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) Join(client *Client, room string) {
	h.membership <- membershipRequest{client: client, room: room, join: true}
}

func (h *Hub) Leave(client *Client, room string) {
	h.membership <- membershipRequest{client: client, room: room, join: false}
}

// Broadcast fans a frame out to every client in the room. An empty room is
// a silent no-op.
func (h *Hub) Broadcast(room string, payload []byte) {
	h.mu.RLock()
	for c := range h.rooms[room] {
		c.SendMessage(payload)
	}
	h.mu.RUnlock()
}

// BroadcastExcept skips one participant, typically the event's originator.
func (h *Hub) BroadcastExcept(room string, payload []byte, exceptParticipant string) {
	h.mu.RLock()
	for c := range h.rooms[room] {
		if c.ParticipantID.String() != exceptParticipant {
			c.SendMessage(payload)
		}
	}
	h.mu.RUnlock()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ParticipantOnline reports whether any connection exists for the participant.
func (h *Hub) ParticipantOnline(participantID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[ParticipantRoom(participantID)]) > 0
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	personal := ParticipantRoom(client.ParticipantID.String())
	if len(h.rooms[personal]) >= maxConnsPerParticipant {
		// Refuse the connection; shutting the client down makes the write
		// pump hang up and turns later sends into no-ops.
		client.shutdown()
		return
	}

	h.clients[client.ID] = client
	h.joinRoomLocked(client, personal)
}

// removeClient strips room memberships even for clients that never made it
// into the directory, so a refused connection cannot leave entries behind.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range client.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}

	delete(h.clients, client.ID)
	client.shutdown()
}

// joinRoom only admits registered clients; refused or already-removed
// connections stay out of every room.
func (h *Hub) joinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	h.joinRoomLocked(client, room)
}

func (h *Hub) joinRoomLocked(client *Client, room string) {
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.joinRoom(room)
}

func (h *Hub) leaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	client.leaveRoom(room)
}
