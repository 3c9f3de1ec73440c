package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// testClient builds a client without a live connection; only the Send
// channel matters for assertions.
func testClient(participantID uuid.UUID) *Client {
	return &Client{
		ID:            uuid.New().String(),
		ParticipantID: participantID,
		Send:          make(chan []byte, 4),
		rooms:         make(map[string]bool),
	}
}

func expectFrame(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case b := <-c.Send:
		var env Envelope
		if err := json.Unmarshal(b, &env); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		return env
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for frame")
		return Envelope{}
	}
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case b := <-c.Send:
		t.Fatalf("unexpected frame: %s", b)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRegisterAutoJoinsPersonalRoom(t *testing.T) {
	h := NewHub()
	alice := uuid.New()
	c := testClient(alice)

	h.addClient(c)

	if !c.InRoom(ParticipantRoom(alice.String())) {
		t.Fatal("client not in its personal room")
	}
	if h.RoomSize(ParticipantRoom(alice.String())) != 1 {
		t.Fatal("personal room empty after register")
	}

	payload, _ := NewEnvelope(EventNewConversation, map[string]string{"id": "x"})
	h.Broadcast(ParticipantRoom(alice.String()), payload)

	env := expectFrame(t, c)
	if env.Event != EventNewConversation {
		t.Errorf("event = %q", env.Event)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	h := NewHub()
	c := testClient(uuid.New())
	h.addClient(c)

	room := ConversationRoom(uuid.New().String())
	h.joinRoom(c, room)
	h.joinRoom(c, room)

	if h.RoomSize(room) != 1 {
		t.Fatalf("room size = %d, want 1", h.RoomSize(room))
	}

	payload, _ := NewEnvelope(EventNewMessage, map[string]string{"id": "m"})
	h.Broadcast(room, payload)

	expectFrame(t, c)
	expectSilence(t, c)
}

func TestBroadcastExceptSkipsOriginator(t *testing.T) {
	h := NewHub()
	alice := uuid.New()
	bob := uuid.New()
	ca := testClient(alice)
	cb := testClient(bob)
	h.addClient(ca)
	h.addClient(cb)

	room := ConversationRoom(uuid.New().String())
	h.joinRoom(ca, room)
	h.joinRoom(cb, room)

	payload, _ := NewEnvelope(EventNewMessage, map[string]string{"id": "m"})
	h.BroadcastExcept(room, payload, alice.String())

	expectFrame(t, cb)
	expectSilence(t, ca)
}

func TestBroadcastToEmptyRoomIsNoop(t *testing.T) {
	h := NewHub()
	payload, _ := NewEnvelope(EventNewMessage, map[string]string{"id": "m"})
	h.Broadcast(ConversationRoom(uuid.New().String()), payload)
}

func TestUnregisterCleansUpRooms(t *testing.T) {
	h := NewHub()
	alice := uuid.New()
	c := testClient(alice)
	h.addClient(c)

	room := ConversationRoom(uuid.New().String())
	h.joinRoom(c, room)

	h.removeClient(c)

	if h.ClientCount() != 0 {
		t.Errorf("clients = %d, want 0", h.ClientCount())
	}
	if h.RoomSize(room) != 0 {
		t.Errorf("room size = %d, want 0", h.RoomSize(room))
	}
	if h.ParticipantOnline(alice.String()) {
		t.Error("participant still online after unregister")
	}

	if _, open := <-c.Send; open {
		t.Error("send channel not closed")
	}

	// A second remove must not panic on the closed channel.
	h.removeClient(c)
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	h := NewHub()
	c := testClient(uuid.New())
	h.addClient(c)

	room := ConversationRoom(uuid.New().String())
	h.joinRoom(c, room)
	h.leaveRoom(c, room)

	if c.InRoom(room) {
		t.Fatal("client still tracks the room")
	}

	payload, _ := NewEnvelope(EventNewMessage, map[string]string{"id": "m"})
	h.Broadcast(room, payload)
	expectSilence(t, c)
}

func TestConnectionCapRefusesExtraSockets(t *testing.T) {
	h := NewHub()
	alice := uuid.New()

	for i := 0; i < maxConnsPerParticipant; i++ {
		h.addClient(testClient(alice))
	}

	extra := testClient(alice)
	h.addClient(extra)

	if h.ClientCount() != maxConnsPerParticipant {
		t.Fatalf("clients = %d, want %d", h.ClientCount(), maxConnsPerParticipant)
	}
	if _, open := <-extra.Send; open {
		t.Error("refused connection's send channel left open")
	}
}

func TestRefusedClientStaysOutOfFanOut(t *testing.T) {
	h := NewHub()
	alice := uuid.New()
	bob := uuid.New()
	keeper := testClient(bob)
	h.addClient(keeper)

	for i := 0; i < maxConnsPerParticipant; i++ {
		h.addClient(testClient(alice))
	}
	extra := testClient(alice)
	h.addClient(extra)

	// A join attempt from the refused connection must not land anywhere.
	room := ConversationRoom(uuid.New().String())
	h.joinRoom(extra, room)
	h.joinRoom(keeper, room)
	if h.RoomSize(room) != 1 {
		t.Fatalf("room size = %d, want 1", h.RoomSize(room))
	}

	// Fan-out across the refused connection's rooms must keep working;
	// a send aimed at it is a silent drop, not a closed-channel panic.
	payload, _ := NewEnvelope(EventNewMessage, map[string]string{"id": "m"})
	extra.SendMessage(payload)
	h.Broadcast(room, payload)
	h.Broadcast(ParticipantRoom(alice.String()), payload)

	expectFrame(t, keeper)

	h.removeClient(extra)
	if h.RoomSize(room) != 1 {
		t.Fatalf("room size after refused removal = %d, want 1", h.RoomSize(room))
	}
}

func TestParticipantOnlineAcrossConnections(t *testing.T) {
	h := NewHub()
	alice := uuid.New()
	c1 := testClient(alice)
	c2 := testClient(alice)
	h.addClient(c1)
	h.addClient(c2)

	h.removeClient(c1)
	if !h.ParticipantOnline(alice.String()) {
		t.Fatal("second connection should keep the participant online")
	}

	h.removeClient(c2)
	if h.ParticipantOnline(alice.String()) {
		t.Fatal("participant online with no connections left")
	}
}
