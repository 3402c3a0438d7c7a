package signaling

import (
	"encoding/json"

	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/protocol"
)

// RemoteSignal is a relayed offer, answer, or candidate from the peer. Data
// is kept opaque; only the peer-connection capability interprets it.
type RemoteSignal struct {
	From string
	Data json.RawMessage
}

// Handler demultiplexes incoming envelopes onto typed channels, one per
// message kind, so the negotiation engine can select over them.
type Handler struct {
	client *Client

	Connected  chan string
	RoomJoined chan *protocol.RoomJoinedData
	RoomLeft   chan struct{}
	UserJoined chan string
	UserLeft   chan string
	Offer      chan *RemoteSignal
	Answer     chan *RemoteSignal
	Candidate  chan *RemoteSignal
	ServerErr  chan string

	// Done is closed when the signaling connection is gone.
	Done chan struct{}
}

// NewHandler creates a message handler for the given client.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:     client,
		Connected:  make(chan string, 1),
		RoomJoined: make(chan *protocol.RoomJoinedData, 1),
		RoomLeft:   make(chan struct{}, 1),
		UserJoined: make(chan string, 1),
		UserLeft:   make(chan string, 1),
		Offer:      make(chan *RemoteSignal, 4),
		Answer:     make(chan *RemoteSignal, 4),
		Candidate:  make(chan *RemoteSignal, 32),
		ServerErr:  make(chan string, 1),
		Done:       make(chan struct{}),
	}
}

// Start consumes the client's incoming stream until the connection drops,
// then closes Done.
func (h *Handler) Start() {
	defer close(h.Done)

	for msg := range h.client.Incoming() {
		switch msg.Type {

		case protocol.TypeConnection:
			h.Connected <- msg.UserID

		case protocol.TypeRoomJoined:
			var data protocol.RoomJoinedData
			if err := msg.DecodeData(&data); err != nil {
				h.ServerErr <- "failed to parse room-joined payload"
				continue
			}
			h.RoomJoined <- &data

		case protocol.TypeRoomLeft:
			h.RoomLeft <- struct{}{}

		case protocol.TypeUserJoined:
			var data protocol.UserJoinedData
			if err := msg.DecodeData(&data); err != nil {
				h.ServerErr <- "failed to parse user-joined payload"
				continue
			}
			h.UserJoined <- data.NewUserID

		case protocol.TypeUserLeft:
			var data protocol.UserLeftData
			if err := msg.DecodeData(&data); err != nil {
				h.ServerErr <- "failed to parse user-left payload"
				continue
			}
			h.UserLeft <- data.LeftUserID

		case protocol.TypeOffer:
			h.Offer <- &RemoteSignal{From: msg.UserID, Data: msg.Data}

		case protocol.TypeAnswer:
			h.Answer <- &RemoteSignal{From: msg.UserID, Data: msg.Data}

		case protocol.TypeICECandidate:
			h.Candidate <- &RemoteSignal{From: msg.UserID, Data: msg.Data}

		case protocol.TypeError:
			var data protocol.ErrorData
			if err := msg.DecodeData(&data); err != nil || data.Message == "" {
				h.ServerErr <- "unknown error from server"
				continue
			}
			h.ServerErr <- data.Message

		default:
			// Unrecognized server messages are ignored.
		}
	}
}
