package server

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/protocol"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(NewRegistry(zerolog.Nop()), zerolog.Nop())
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func newTestClient(h *Hub, id string) *Client {
	return &Client{
		Hub:  h,
		ID:   id,
		Send: make(chan *protocol.Message, 16),
		Log:  zerolog.Nop(),
	}
}

// register connects a client and consumes the connection greeting.
func register(t *testing.T, h *Hub, c *Client) {
	t.Helper()
	h.Register <- c
	msg := recv(t, c, protocol.TypeConnection)
	if msg.UserID != c.ID {
		t.Fatalf("greeting carries user id %q, want %q", msg.UserID, c.ID)
	}
}

func send(h *Hub, c *Client, msg *protocol.Message) {
	h.Inbound <- Inbound{Client: c, Message: msg}
}

func recv(t *testing.T, c *Client, wantType string) *protocol.Message {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		if !ok {
			t.Fatalf("send channel closed while waiting for %q", wantType)
		}
		if msg.Type != wantType {
			t.Fatalf("received %q, want %q", msg.Type, wantType)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", wantType)
		return nil
	}
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected message %q for %s", msg.Type, c.ID)
	case <-time.After(100 * time.Millisecond):
	}
}

func joinRoom(t *testing.T, h *Hub, c *Client, roomID string) *protocol.RoomJoinedData {
	t.Helper()
	send(h, c, &protocol.Message{Type: protocol.TypeJoinRoom, RoomID: roomID})
	msg := recv(t, c, protocol.TypeRoomJoined)
	var data protocol.RoomJoinedData
	if err := msg.DecodeData(&data); err != nil {
		t.Fatalf("decode room-joined: %v", err)
	}
	return &data
}

func TestJoinSequencing(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "user-a")
	b := newTestClient(h, "user-b")
	register(t, h, a)
	register(t, h, b)

	data := joinRoom(t, h, a, "room1")
	if len(data.ExistingUsers) != 0 {
		t.Fatalf("first joiner saw existing users %v", data.ExistingUsers)
	}

	data = joinRoom(t, h, b, "room1")
	if len(data.ExistingUsers) != 1 || data.ExistingUsers[0] != "user-a" {
		t.Fatalf("second joiner saw %v, want [user-a]", data.ExistingUsers)
	}

	msg := recv(t, a, protocol.TypeUserJoined)
	var joined protocol.UserJoinedData
	msg.DecodeData(&joined)
	if joined.NewUserID != "user-b" || msg.UserID != "user-b" {
		t.Fatalf("user-joined announces %q/%q, want user-b", joined.NewUserID, msg.UserID)
	}
}

func TestRelayIsOpaqueAndScoped(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "user-a")
	b := newTestClient(h, "user-b")
	c := newTestClient(h, "user-c")
	register(t, h, a)
	register(t, h, b)
	register(t, h, c)

	joinRoom(t, h, a, "room1")
	joinRoom(t, h, b, "room1")
	recv(t, a, protocol.TypeUserJoined)
	joinRoom(t, h, c, "room2")

	payload := []byte(`{"type":"offer","sdp":"v=0\r\no=- 42 2 IN IP4 127.0.0.1","extra":{"nested":true}}`)
	send(h, a, &protocol.Message{Type: protocol.TypeOffer, RoomID: "room1", Data: payload})

	msg := recv(t, b, protocol.TypeOffer)
	if !bytes.Equal(msg.Data, payload) {
		t.Fatalf("relay altered payload:\n got %s\nwant %s", msg.Data, payload)
	}
	if msg.UserID != "user-a" {
		t.Fatalf("relay attributed to %q, want sender user-a", msg.UserID)
	}
	if msg.RoomID != "room1" {
		t.Fatalf("relay room %q, want room1", msg.RoomID)
	}

	// Neither the sender nor occupants of other rooms hear it.
	expectSilence(t, a)
	expectSilence(t, c)
}

func TestRelayWithoutRoomID(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "user-a")
	register(t, h, a)

	send(h, a, &protocol.Message{Type: protocol.TypeAnswer, Data: []byte(`{}`)})
	msg := recv(t, a, protocol.TypeError)
	var data protocol.ErrorData
	msg.DecodeData(&data)
	if data.Message != "Room ID is required for WebRTC signaling" {
		t.Fatalf("unexpected error message %q", data.Message)
	}
}

func TestRoomFullRejection(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "user-a")
	b := newTestClient(h, "user-b")
	c := newTestClient(h, "user-c")
	register(t, h, a)
	register(t, h, b)
	register(t, h, c)

	joinRoom(t, h, a, "room1")
	joinRoom(t, h, b, "room1")
	recv(t, a, protocol.TypeUserJoined)

	send(h, c, &protocol.Message{Type: protocol.TypeJoinRoom, RoomID: "room1"})
	msg := recv(t, c, protocol.TypeError)
	var data protocol.ErrorData
	msg.DecodeData(&data)
	if data.Message != "Room is full" {
		t.Fatalf("unexpected error message %q", data.Message)
	}

	// Occupants are not disturbed by the rejected attempt.
	expectSilence(t, a)
	expectSilence(t, b)
}

func TestJoinWithoutRoomID(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "user-a")
	register(t, h, a)

	send(h, a, &protocol.Message{Type: protocol.TypeJoinRoom, RoomID: "   "})
	msg := recv(t, a, protocol.TypeError)
	var data protocol.ErrorData
	msg.DecodeData(&data)
	if data.Message != "Room ID is required" {
		t.Fatalf("unexpected error message %q", data.Message)
	}
}

func TestRoomIDNormalization(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "user-a")
	b := newTestClient(h, "user-b")
	register(t, h, a)
	register(t, h, b)

	joinRoom(t, h, a, "Room1")
	data := joinRoom(t, h, b, "  ROOM1  ")
	if len(data.ExistingUsers) != 1 || data.ExistingUsers[0] != "user-a" {
		t.Fatalf("case variants did not rendezvous: %v", data.ExistingUsers)
	}
	recv(t, a, protocol.TypeUserJoined)
}

func TestExplicitLeaveNotifiesPeer(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "user-a")
	b := newTestClient(h, "user-b")
	register(t, h, a)
	register(t, h, b)

	joinRoom(t, h, a, "room1")
	joinRoom(t, h, b, "room1")
	recv(t, a, protocol.TypeUserJoined)

	send(h, a, &protocol.Message{Type: protocol.TypeLeaveRoom})
	recv(t, a, protocol.TypeRoomLeft)

	msg := recv(t, b, protocol.TypeUserLeft)
	var data protocol.UserLeftData
	msg.DecodeData(&data)
	if data.LeftUserID != "user-a" {
		t.Fatalf("user-left announces %q, want user-a", data.LeftUserID)
	}
}

func TestLeaveOutsideRoomStillConfirms(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "user-a")
	register(t, h, a)

	send(h, a, &protocol.Message{Type: protocol.TypeLeaveRoom})
	recv(t, a, protocol.TypeRoomLeft)
}

func TestDisconnectIsImplicitLeave(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "user-a")
	b := newTestClient(h, "user-b")
	register(t, h, a)
	register(t, h, b)

	joinRoom(t, h, a, "room1")
	joinRoom(t, h, b, "room1")
	recv(t, a, protocol.TypeUserJoined)

	h.Unregister <- b
	msg := recv(t, a, protocol.TypeUserLeft)
	if msg.UserID != "user-b" {
		t.Fatalf("user-left attributed to %q, want user-b", msg.UserID)
	}

	if _, ok := <-b.Send; ok {
		t.Fatalf("unregistered client's send channel should be closed")
	}
}

func TestSwitchingRoomsNotifiesOldPeer(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "user-a")
	b := newTestClient(h, "user-b")
	register(t, h, a)
	register(t, h, b)

	joinRoom(t, h, a, "room1")
	joinRoom(t, h, b, "room1")
	recv(t, a, protocol.TypeUserJoined)

	data := joinRoom(t, h, b, "room2")
	if len(data.ExistingUsers) != 0 {
		t.Fatalf("room2 should be empty, got %v", data.ExistingUsers)
	}
	recv(t, a, protocol.TypeUserLeft)
}

func TestUnknownTypeRejected(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "user-a")
	register(t, h, a)

	send(h, a, &protocol.Message{Type: "renegotiate"})
	msg := recv(t, a, protocol.TypeError)
	var data protocol.ErrorData
	msg.DecodeData(&data)
	if data.Message != "Unknown message type: renegotiate" {
		t.Fatalf("unexpected error message %q", data.Message)
	}
}

func TestMalformedEnvelopeFaultsOnlySender(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "user-a")
	b := newTestClient(h, "user-b")
	register(t, h, a)
	register(t, h, b)

	send(h, a, &protocol.Message{Type: typeMalformed})
	msg := recv(t, a, protocol.TypeError)
	var data protocol.ErrorData
	msg.DecodeData(&data)
	if data.Message != "Invalid message format" {
		t.Fatalf("unexpected error message %q", data.Message)
	}
	expectSilence(t, b)

	// The sender's session remains usable.
	joinRoom(t, h, a, "room1")
}

func TestSlowRecipientLosesMessagesNotMembership(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "user-a")
	slow := &Client{Hub: h, ID: "user-slow", Send: make(chan *protocol.Message), Log: zerolog.Nop()}
	register(t, h, a)

	// No reader and no buffer: every delivery to slow is dropped.
	h.Register <- slow

	joinRoom(t, h, a, "room1")
	send(h, slow, &protocol.Message{Type: protocol.TypeJoinRoom, RoomID: "room1"})
	recv(t, a, protocol.TypeUserJoined)

	// The drop must not have rolled back the join.
	send(h, a, &protocol.Message{Type: protocol.TypeOffer, RoomID: "room1", Data: []byte(`{}`)})
	expectSilence(t, a)
	if stats := h.Stats(); stats.Occupants != 2 {
		t.Fatalf("dropped delivery affected membership: %+v", stats)
	}
}

func TestStatsCountsConnectionsAndRooms(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "user-a")
	b := newTestClient(h, "user-b")
	register(t, h, a)
	register(t, h, b)

	joinRoom(t, h, a, "room1")

	waitFor(t, func() bool {
		s := h.Stats()
		return s.ConnectedClients == 2 && s.Rooms == 1 && s.Occupants == 1
	}, "stats did not converge")

	h.Unregister <- a
	waitFor(t, func() bool {
		s := h.Stats()
		return s.ConnectedClients == 1 && s.Rooms == 0 && s.Occupants == 0
	}, "stats did not reflect disconnect")
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
