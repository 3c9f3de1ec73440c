package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one WebSocket connection. A participant may hold several.
type Client struct {
	ID            string
	ParticipantID uuid.UUID
	Conn          *websocket.Conn
	Send          chan []byte
	rooms         map[string]bool
	closed        bool
	mu            sync.RWMutex
}

func NewClient(conn *websocket.Conn, participantID uuid.UUID) *Client {
	return &Client{
		ID:            uuid.New().String(),
		ParticipantID: participantID,
		Conn:          conn,
		Send:          make(chan []byte, 256),
		rooms:         make(map[string]bool),
	}
}

func (c *Client) joinRoom(room string) {
	c.mu.Lock()
	c.rooms[room] = true
	c.mu.Unlock()
}

func (c *Client) leaveRoom(room string) {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

func (c *Client) InRoom(room string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[room]
}

func (c *Client) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// WriteLoop drains Send onto the connection and keeps it alive with pings.
func (c *Client) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.close()
			return
		case msg, ok := <-c.Send:
			if !ok {
				c.close()
				return
			}
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.Conn.WriteMessage(websocket.TextMessage, msg)
			c.mu.Unlock()
		case <-ticker.C:
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.Conn.WriteMessage(websocket.PingMessage, []byte("ping"))
			c.mu.Unlock()
		}
	}
}

func (c *Client) close() {
	c.mu.Lock()
	_ = c.Conn.Close()
	c.mu.Unlock()
}

// SendMessage never blocks; a slow consumer loses frames and resyncs over
// HTTP on reconnect. Frames aimed at a shut-down client are dropped.
func (c *Client) SendMessage(msg []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- msg:
	default:
	}
}

// shutdown closes Send exactly once; the write pump hangs up on it.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}
