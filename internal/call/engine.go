package call

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/protocol"
	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/signaling"
)

// CallState is the externally visible state of the call.
type CallState string

const (
	StateIdle         CallState = "idle"
	StateConnecting   CallState = "connecting"
	StateConnected    CallState = "connected"
	StateDisconnected CallState = "disconnected"
	StateError        CallState = "error"
)

// phase is the internal negotiation sub-state. The coarse CallState is
// derived from it; role and progress decisions are made on the phase, never
// on loose booleans.
type phase int

const (
	phaseIdle phase = iota
	phaseJoining
	phaseWaitingForPeer     // alone in the room, first to arrive
	phaseAwaitingRemoteOffer // peer announced, we stay passive
	phaseAwaitingAnswer     // our offer is out
	phaseNegotiated         // descriptions exchanged, transport connecting
	phaseInCall
	phaseTornDown
)

// CallInfo is the client-local view of the current call.
type CallInfo struct {
	RoomID       string
	UserID       string
	RemoteUserID string
	Initiator    bool
	State        CallState
}

// SignalSender is the outbound half of the signaling channel.
// *signaling.Client satisfies it.
type SignalSender interface {
	SendMessage(msg *protocol.Message)
}

// Engine is the per-call negotiation state machine. It decides the
// initiator/responder role from the server's join ordering, drives the
// peer-connection capability through the offer/answer/candidate exchange,
// and surfaces call-state transitions.
//
// All decisions run on the single Run goroutine; Leave and SendChat
// synchronize with it through the engine mutex.
type Engine struct {
	sender  SignalSender
	handler *signaling.Handler
	newPeer PeerFactory
	log     zerolog.Logger

	mu      sync.Mutex
	info    CallInfo
	phase   phase
	peer    Peer
	chat    Chat
	lastErr error

	// Capability callbacks feed these; only Run consumes them.
	localCandidates chan json.RawMessage
	connStates      chan ConnState
	chatOpened      chan Chat
	mediaEvents     chan RemoteMedia
	inChat          chan ChatMessage

	// Outward notifications.
	states chan CallState
	chats  chan ChatMessage
	media  chan RemoteMedia

	done chan struct{}
}

// NewEngine wires the engine to an already-connected signaling channel and a
// peer-connection factory. Call go Run() before Join.
func NewEngine(sender SignalSender, handler *signaling.Handler, newPeer PeerFactory, log zerolog.Logger) *Engine {
	return &Engine{
		sender:          sender,
		handler:         handler,
		newPeer:         newPeer,
		log:             log,
		info:            CallInfo{State: StateIdle},
		localCandidates: make(chan json.RawMessage, 32),
		connStates:      make(chan ConnState, 8),
		chatOpened:      make(chan Chat, 1),
		mediaEvents:     make(chan RemoteMedia, 4),
		inChat:          make(chan ChatMessage, 32),
		states:          make(chan CallState, 16),
		chats:           make(chan ChatMessage, 32),
		media:           make(chan RemoteMedia, 4),
		done:            make(chan struct{}),
	}
}

// States delivers call-state transitions. Slow consumers lose intermediate
// transitions, never the ability to read the latest one.
func (e *Engine) States() <-chan CallState { return e.states }

// Chats delivers inbound chat messages from the remote party.
func (e *Engine) Chats() <-chan ChatMessage { return e.chats }

// Media announces remote media tracks as the capability reports them.
func (e *Engine) Media() <-chan RemoteMedia { return e.media }

// Done is closed when the engine's Run loop has exited (signaling lost).
func (e *Engine) Done() <-chan struct{} { return e.done }

// Info returns a snapshot of the current call.
func (e *Engine) Info() CallInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info
}

// Err returns the fault behind the most recent error state, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Join requests membership in roomID. Any previous call is torn down first;
// the server moves the membership atomically.
func (e *Engine) Join(roomID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if roomID == "" {
		return NewError("join room", fmt.Errorf("room id is required"))
	}

	e.teardownLocked()
	e.info = CallInfo{RoomID: roomID, UserID: e.info.UserID}
	e.lastErr = nil
	e.phase = phaseJoining
	e.setStateLocked(StateConnecting)

	e.sender.SendMessage(&protocol.Message{Type: protocol.TypeJoinRoom, RoomID: roomID})
	return nil
}

// Leave tears the call down synchronously: by the time it returns, the
// peer-connection capability is released. Negotiation steps still in flight
// become no-ops because every handler rechecks the phase.
func (e *Engine) Leave() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == phaseIdle || e.phase == phaseTornDown {
		return
	}
	roomID := e.info.RoomID
	e.teardownLocked()
	e.phase = phaseTornDown
	e.setStateLocked(StateDisconnected)

	e.sender.SendMessage(&protocol.Message{Type: protocol.TypeLeaveRoom, RoomID: roomID})
}

// SendChat sends a chat line to the remote party over the data channel.
func (e *Engine) SendChat(text string) error {
	e.mu.Lock()
	chat := e.chat
	from := e.info.UserID
	e.mu.Unlock()

	if chat == nil {
		return ErrChatNotOpen
	}
	return chat.Send(ChatMessage{From: from, Text: text, SentAt: timeNow()})
}

// Run is the engine's event loop. It exits when the signaling connection is
// gone; the engine cannot be reused afterwards.
func (e *Engine) Run() {
	defer close(e.done)

	for {
		select {
		case userID := <-e.handler.Connected:
			e.onConnected(userID)

		case data := <-e.handler.RoomJoined:
			e.onRoomJoined(data)

		case <-e.handler.RoomLeft:
			e.log.Debug().Msg("room left confirmed")

		case userID := <-e.handler.UserJoined:
			e.onUserJoined(userID)

		case userID := <-e.handler.UserLeft:
			e.onUserLeft(userID)

		case sig := <-e.handler.Offer:
			e.onOffer(sig)

		case sig := <-e.handler.Answer:
			e.onAnswer(sig)

		case sig := <-e.handler.Candidate:
			e.onRemoteCandidate(sig)

		case msg := <-e.handler.ServerErr:
			e.onServerError(msg)

		case candidate := <-e.localCandidates:
			e.sendLocalCandidate(candidate)

		case state := <-e.connStates:
			e.onConnState(state)

		case chat := <-e.chatOpened:
			e.onChatOpened(chat)

		case msg := <-e.inChat:
			select {
			case e.chats <- msg:
			default:
				e.log.Warn().Msg("chat buffer full, dropping message")
			}

		case m := <-e.mediaEvents:
			select {
			case e.media <- m:
			default:
			}

		case <-e.handler.Done:
			e.onSignalingLost()
			return
		}
	}
}

func (e *Engine) onConnected(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.info.UserID = userID
	e.log.Info().Str("user", userID).Msg("connected to signaling server")
}

// onRoomJoined applies the role tie-break: a non-empty existingUsers list
// means we arrived second and are therefore the sole initiator. An empty
// list means we wait; the newcomer will offer.
func (e *Engine) onRoomJoined(data *protocol.RoomJoinedData) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != phaseJoining {
		e.log.Debug().Msg("ignoring room-joined outside join")
		return
	}

	if len(data.ExistingUsers) == 0 {
		e.phase = phaseWaitingForPeer
		e.setStateLocked(StateConnecting)
		e.log.Info().Str("room", e.info.RoomID).Msg("joined empty room, waiting for peer")
		return
	}

	e.info.RemoteUserID = data.ExistingUsers[0]
	e.info.Initiator = true
	e.log.Info().
		Str("room", e.info.RoomID).
		Str("peer", e.info.RemoteUserID).
		Msg("joined occupied room, initiating")

	if err := e.startPeerLocked(true); err != nil {
		e.failLocked("create peer connection", err)
		return
	}

	offer, err := e.peer.CreateOffer()
	if err != nil {
		e.failLocked("create offer", err)
		return
	}
	if err := e.peer.SetLocalDescription(offer); err != nil {
		e.failLocked("set local description", err)
		return
	}

	e.sender.SendMessage(&protocol.Message{
		Type:   protocol.TypeOffer,
		RoomID: e.info.RoomID,
		Data:   offer,
	})
	e.phase = phaseAwaitingAnswer
	e.setStateLocked(StateConnecting)
}

// onUserJoined keeps the first arrival passive. The newcomer received our id
// in existingUsers and will send the offer; producing one here as well would
// glare.
func (e *Engine) onUserJoined(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != phaseWaitingForPeer {
		e.log.Debug().Str("peer", userID).Msg("ignoring user-joined, negotiation underway")
		return
	}

	e.info.RemoteUserID = userID
	e.info.Initiator = false
	e.phase = phaseAwaitingRemoteOffer
	e.setStateLocked(StateConnecting)
	e.log.Info().Str("peer", userID).Msg("peer joined, awaiting offer")
}

func (e *Engine) onUserLeft(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == phaseTornDown || e.phase == phaseIdle {
		return
	}

	e.log.Info().Str("peer", userID).Msg("peer left the room")
	e.teardownLocked()
	e.info.RemoteUserID = ""
	e.info.Initiator = false

	// Still in the room; a new peer may join and offer afresh.
	e.phase = phaseWaitingForPeer
	e.setStateLocked(StateDisconnected)
}

// onOffer makes us the responder. An offer while we already own a peer
// connection (we are the initiator, or negotiation is underway) is discarded
// as a no-op rather than torn into a glare condition.
func (e *Engine) onOffer(sig *signaling.RemoteSignal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == phaseTornDown || e.phase == phaseIdle {
		return
	}
	if e.peer != nil {
		e.log.Warn().Str("from", sig.From).Msg("discarding offer, negotiation already in progress")
		return
	}

	e.info.RemoteUserID = sig.From
	e.info.Initiator = false
	e.setStateLocked(StateConnecting)

	if err := e.startPeerLocked(false); err != nil {
		e.failLocked("create peer connection", err)
		return
	}
	if err := e.peer.SetRemoteDescription(sig.Data); err != nil {
		e.failLocked("set remote description", err)
		return
	}

	answer, err := e.peer.CreateAnswer()
	if err != nil {
		e.failLocked("create answer", err)
		return
	}
	if err := e.peer.SetLocalDescription(answer); err != nil {
		e.failLocked("set local description", err)
		return
	}

	e.sender.SendMessage(&protocol.Message{
		Type:   protocol.TypeAnswer,
		RoomID: e.info.RoomID,
		Data:   answer,
	})
	e.phase = phaseNegotiated
	e.log.Info().Str("from", sig.From).Msg("answered offer")
}

// onAnswer is valid only while our own offer is outstanding. A stray answer
// is logged and discarded, never applied and never escalated to an error
// state.
func (e *Engine) onAnswer(sig *signaling.RemoteSignal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != phaseAwaitingAnswer || e.peer == nil {
		e.log.Warn().Str("from", sig.From).Msg("discarding stray answer")
		return
	}

	if err := e.peer.SetRemoteDescription(sig.Data); err != nil {
		e.log.Warn().Err(err).Msg("discarding unappliable answer")
		return
	}
	e.phase = phaseNegotiated
	e.log.Info().Str("from", sig.From).Msg("answer applied")
}

// onRemoteCandidate applies candidates as they arrive; the capability
// buffers any that outrace the remote description. Without a peer connection
// the candidate is dropped and connectivity degrades gracefully.
func (e *Engine) onRemoteCandidate(sig *signaling.RemoteSignal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.peer == nil {
		e.log.Debug().Str("from", sig.From).Msg("dropping candidate, no peer connection")
		return
	}
	if err := e.peer.AddICECandidate(sig.Data); err != nil {
		e.log.Warn().Err(err).Msg("dropping unappliable candidate")
	}
}

func (e *Engine) sendLocalCandidate(candidate json.RawMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == phaseTornDown || e.info.RoomID == "" {
		return
	}
	e.sender.SendMessage(&protocol.Message{
		Type:   protocol.TypeICECandidate,
		RoomID: e.info.RoomID,
		Data:   candidate,
	})
}

// onConnState maps the capability's transport states onto the call state
// machine. A failed transport is a disconnect; the error state is reserved
// for local faults.
func (e *Engine) onConnState(state ConnState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == phaseTornDown {
		return
	}

	switch state {
	case ConnConnected:
		e.phase = phaseInCall
		e.setStateLocked(StateConnected)
	case ConnDisconnected, ConnFailed, ConnClosed:
		e.setStateLocked(StateDisconnected)
	case ConnConnecting:
		e.setStateLocked(StateConnecting)
	}
}

func (e *Engine) onChatOpened(chat Chat) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == phaseTornDown {
		chat.Close()
		return
	}
	e.chat = chat
	chat.OnMessage(func(msg ChatMessage) {
		select {
		case e.inChat <- msg:
		default:
		}
	})
	e.log.Info().Msg("chat channel open")
}

func (e *Engine) onServerError(message string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.Error().Str("message", message).Msg("signaling error")
	e.teardownLocked()
	e.phase = phaseTornDown
	if message == "Room is full" {
		e.lastErr = ErrRoomFull
	} else {
		e.lastErr = WrapError("signaling", ErrUnexpectedSignal, message)
	}
	e.setStateLocked(StateError)
}

func (e *Engine) onSignalingLost() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == phaseTornDown || e.phase == phaseIdle {
		return
	}
	e.log.Warn().Msg("signaling connection lost")
	e.teardownLocked()
	e.phase = phaseTornDown
	e.lastErr = ErrSignalingLost
	e.setStateLocked(StateError)
}

// startPeerLocked creates the peer-connection capability and hooks its
// notifications into the run loop's channels.
func (e *Engine) startPeerLocked(initiator bool) error {
	events := PeerEvents{
		LocalCandidate: func(candidate json.RawMessage) {
			select {
			case e.localCandidates <- candidate:
			case <-e.done:
			}
		},
		ConnectionState: func(state ConnState) {
			select {
			case e.connStates <- state:
			case <-e.done:
			}
		},
		RemoteMedia: func(media RemoteMedia) {
			select {
			case e.mediaEvents <- media:
			default:
			}
		},
		ChatOpened: func(chat Chat) {
			select {
			case e.chatOpened <- chat:
			case <-e.done:
			}
		},
	}

	peer, err := e.newPeer(events, initiator)
	if err != nil {
		return err
	}
	e.peer = peer
	return nil
}

func (e *Engine) teardownLocked() {
	if e.chat != nil {
		e.chat.Close()
		e.chat = nil
	}
	if e.peer != nil {
		e.peer.Close()
		e.peer = nil
	}
}

func (e *Engine) failLocked(op string, err error) {
	e.log.Error().Err(err).Str("op", op).Msg("call setup failed")
	e.teardownLocked()
	e.phase = phaseTornDown
	e.lastErr = NewError(op, err)
	e.setStateLocked(StateError)
}

// setStateLocked records the new state and notifies listeners. When the
// buffer is full the oldest pending transition is evicted so the channel
// always converges on the latest state.
func (e *Engine) setStateLocked(state CallState) {
	if e.info.State == state {
		return
	}
	e.info.State = state

	for {
		select {
		case e.states <- state:
			return
		default:
			select {
			case <-e.states:
			default:
			}
		}
	}
}
