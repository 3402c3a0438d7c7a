package call

import "encoding/json"

// ConnState is the connectivity state reported by the peer-connection
// capability, reduced to what the call state machine consumes.
type ConnState int

const (
	ConnNew ConnState = iota
	ConnConnecting
	ConnConnected
	ConnDisconnected
	ConnFailed
	ConnClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnNew:
		return "new"
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnDisconnected:
		return "disconnected"
	case ConnFailed:
		return "failed"
	case ConnClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// RemoteMedia describes a remote track the capability started receiving.
// The engine only surfaces it; rendering is not this system's concern.
type RemoteMedia struct {
	Kind string
	ID   string
}

// PeerEvents are the asynchronous notifications a peer connection emits.
// Handlers are invoked from the capability's own goroutines and must not
// block.
type PeerEvents struct {
	// LocalCandidate fires for each locally discovered connectivity
	// candidate, already encoded for the wire.
	LocalCandidate func(candidate json.RawMessage)

	// ConnectionState fires on transport connectivity transitions.
	ConnectionState func(state ConnState)

	// RemoteMedia fires when a remote media track becomes available.
	RemoteMedia func(media RemoteMedia)

	// ChatOpened fires when the in-call chat channel is open for traffic,
	// on whichever side did not create it as well as the one that did.
	ChatOpened func(chat Chat)
}

// Peer is the negotiation-capable media endpoint the engine drives.
// Descriptions and candidates are opaque JSON payloads; the engine never
// interprets them.
type Peer interface {
	CreateOffer() (json.RawMessage, error)
	CreateAnswer() (json.RawMessage, error)
	SetLocalDescription(desc json.RawMessage) error
	SetRemoteDescription(desc json.RawMessage) error

	// AddICECandidate tolerates candidates that arrive before the remote
	// description is committed.
	AddICECandidate(candidate json.RawMessage) error

	// Close releases all resources. Idempotent.
	Close() error
}

// PeerFactory creates a peer connection wired to the given event handlers.
// The initiator flag tells the capability whether to open the chat channel
// itself or wait for the remote side's.
type PeerFactory func(events PeerEvents, initiator bool) (Peer, error)

// Chat is the in-call text side channel carried over the peer connection.
type Chat interface {
	Send(msg ChatMessage) error
	OnMessage(handler func(ChatMessage))
	Close() error
}
