package server

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/protocol"
)

// Inbound pairs an envelope with the client that sent it.
type Inbound struct {
	Client  *Client
	Message *protocol.Message
}

// Hub is the message router. It owns the user-id -> client mapping and runs
// a single goroutine that serializes every registry mutation and fan-out.
type Hub struct {
	// Register is the channel for newly accepted connections.
	Register chan *Client

	// Unregister is the channel for connections that dropped or closed.
	Unregister chan *Client

	// Inbound carries every parsed envelope from the read pumps.
	Inbound chan Inbound

	registry  *Registry
	clients   map[string]*Client
	connected atomic.Int64
	quit      chan struct{}
	log       zerolog.Logger
}

func NewHub(registry *Registry, log zerolog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan Inbound),
		registry:   registry,
		clients:    make(map[string]*Client),
		quit:       make(chan struct{}),
		log:        log,
	}
}

// HubStats extends registry stats with the live connection count.
type HubStats struct {
	Stats
	ConnectedClients int `json:"connectedClients"`
}

// Stats is safe to call from any goroutine.
func (h *Hub) Stats() HubStats {
	return HubStats{
		Stats:            h.registry.Stats(),
		ConnectedClients: int(h.connected.Load()),
	}
}

// Run processes registrations and envelopes until Stop is called. All state
// owned by the hub is touched only from this goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			for _, c := range h.clients {
				close(c.Send)
			}
			return

		case client := <-h.Register:
			h.clients[client.ID] = client
			h.connected.Add(1)
			h.log.Info().Str("user", client.ID).Msg("client connected")

			h.trySend(client, &protocol.Message{
				Type:   protocol.TypeConnection,
				UserID: client.ID,
				Data:   protocol.EncodeData(protocol.ConnectionData{Message: "Connected to signaling server"}),
			})

		case client := <-h.Unregister:
			if _, ok := h.clients[client.ID]; !ok {
				continue
			}
			delete(h.clients, client.ID)
			h.connected.Add(-1)
			h.log.Info().Str("user", client.ID).Msg("client disconnected")

			// A dropped connection is an implicit leave-room.
			if roomID, ok := h.registry.Leave(client.ID); ok {
				h.notifyUserLeft(roomID, client.ID)
			}
			close(client.Send)

		case in := <-h.Inbound:
			h.route(in.Client, in.Message)
		}
	}
}

// Stop terminates the Run loop and closes every registered client.
func (h *Hub) Stop() {
	close(h.quit)
}

func (h *Hub) route(c *Client, msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeJoinRoom:
		h.handleJoin(c, msg)

	case protocol.TypeLeaveRoom:
		h.handleLeave(c)

	case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeICECandidate:
		h.relay(c, msg)

	case typeMalformed:
		h.sendError(c, "Invalid message format")

	default:
		h.log.Warn().Str("user", c.ID).Str("type", msg.Type).Msg("unknown message type")
		h.sendError(c, "Unknown message type: "+msg.Type)
	}
}

// typeMalformed is an internal marker the read pump substitutes for
// envelopes that failed to parse. It never appears on the wire.
const typeMalformed = "\x00malformed"

func (h *Hub) handleJoin(c *Client, msg *protocol.Message) {
	roomID := normalizeRoomID(msg.RoomID)
	if roomID == "" {
		h.sendError(c, "Room ID is required")
		return
	}

	others, vacated, err := h.registry.Join(c.ID, roomID)
	if err != nil {
		if errors.Is(err, ErrRoomFull) {
			h.log.Info().Str("user", c.ID).Str("room", roomID).Msg("join rejected, room full")
			h.sendError(c, "Room is full")
			return
		}
		h.sendError(c, "Failed to join room")
		return
	}

	// Switching rooms: tell whoever stayed behind in the old room.
	if vacated != "" {
		h.notifyUserLeft(vacated, c.ID)
	}

	h.trySend(c, &protocol.Message{
		Type:   protocol.TypeRoomJoined,
		RoomID: roomID,
		UserID: c.ID,
		Data: protocol.EncodeData(protocol.RoomJoinedData{
			Message:       "Successfully joined room",
			ExistingUsers: existingOrEmpty(others),
		}),
	})

	for _, id := range others {
		peer, ok := h.clients[id]
		if !ok {
			continue
		}
		h.trySend(peer, &protocol.Message{
			Type:   protocol.TypeUserJoined,
			RoomID: roomID,
			UserID: c.ID,
			Data:   protocol.EncodeData(protocol.UserJoinedData{NewUserID: c.ID}),
		})
	}

	h.log.Info().
		Str("user", c.ID).
		Str("room", roomID).
		Int("peers", len(others)).
		Msg("user joined room")
}

func (h *Hub) handleLeave(c *Client) {
	if roomID, ok := h.registry.Leave(c.ID); ok {
		h.notifyUserLeft(roomID, c.ID)
		h.log.Info().Str("user", c.ID).Str("room", roomID).Msg("user left room")
	}

	h.trySend(c, &protocol.Message{
		Type: protocol.TypeRoomLeft,
		Data: protocol.EncodeData(protocol.RoomLeftData{Message: "Left room successfully"}),
	})
}

// relay forwards offer/answer/ice-candidate envelopes verbatim to every
// other occupant of the room, rewriting only the sender id. The payload is
// never inspected.
func (h *Hub) relay(c *Client, msg *protocol.Message) {
	roomID := normalizeRoomID(msg.RoomID)
	if roomID == "" {
		h.sendError(c, "Room ID is required for WebRTC signaling")
		return
	}

	for _, id := range h.registry.OccupantsOf(roomID) {
		if id == c.ID {
			continue
		}
		peer, ok := h.clients[id]
		if !ok {
			continue
		}
		h.trySend(peer, &protocol.Message{
			Type:   msg.Type,
			RoomID: roomID,
			UserID: c.ID,
			Data:   msg.Data,
		})
	}
}

func (h *Hub) notifyUserLeft(roomID, leftID string) {
	for _, id := range h.registry.OccupantsOf(roomID) {
		peer, ok := h.clients[id]
		if !ok {
			continue
		}
		h.trySend(peer, &protocol.Message{
			Type:   protocol.TypeUserLeft,
			RoomID: roomID,
			UserID: leftID,
			Data:   protocol.EncodeData(protocol.UserLeftData{LeftUserID: leftID}),
		})
	}
}

func (h *Hub) sendError(c *Client, message string) {
	h.trySend(c, &protocol.Message{
		Type: protocol.TypeError,
		Data: protocol.EncodeData(protocol.ErrorData{Message: message}),
	})
}

// trySend is best-effort fan-out: a recipient whose buffer is full loses
// this message rather than stalling the hub. The registry mutation that led
// here has already been committed and stands regardless.
func (h *Hub) trySend(c *Client, msg *protocol.Message) {
	select {
	case c.Send <- msg:
	default:
		h.log.Warn().Str("user", c.ID).Str("type", msg.Type).Msg("send buffer full, dropping message")
	}
}

// normalizeRoomID lowercases the caller-chosen room id so "Room1" and
// "room1" rendezvous in the same room.
func normalizeRoomID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// existingOrEmpty keeps the wire shape of existingUsers an array, never null.
func existingOrEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
