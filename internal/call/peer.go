package call

import (
	"encoding/json"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/config"
)

const chatChannelLabel = "chat"

// PionPeer implements the peer-connection capability on top of pion.
type PionPeer struct {
	pc     *webrtc.PeerConnection
	events PeerEvents
	log    zerolog.Logger

	mu     sync.Mutex
	queue  candidateQueue
	closed bool
}

// NewPionPeer builds a pion peer connection from the configured ICE servers,
// attaches the given local tracks, and wires the event handlers. When
// initiator is true the chat data channel is created locally; otherwise the
// remote side's channel is adopted when it arrives.
func NewPionPeer(cfg *config.Config, tracks []webrtc.TrackLocal, events PeerEvents, initiator bool, log zerolog.Logger) (*PionPeer, error) {
	iceServers := []webrtc.ICEServer{{URLs: cfg.GetSTUNServers()}}

	if turnServers := cfg.GetTURNServers(); turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := webrtc.ICETransportPolicyAll
	if cfg.ForceRelay && cfg.GetTURNServers() != nil {
		policy = webrtc.ICETransportPolicyRelay
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}

	p := &PionPeer{pc: pc, events: events, log: log}

	for _, track := range tracks {
		if _, err := pc.AddTrack(track); err != nil {
			pc.Close()
			return nil, NewError("add local track", err)
		}
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil || events.LocalCandidate == nil {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			log.Warn().Err(err).Msg("failed to encode local candidate")
			return
		}
		events.LocalCandidate(raw)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if events.ConnectionState != nil {
			events.ConnectionState(mapConnState(state))
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if events.RemoteMedia != nil {
			events.RemoteMedia(RemoteMedia{Kind: track.Kind().String(), ID: track.ID()})
		}
	})

	if initiator {
		ordered := true
		dc, err := pc.CreateDataChannel(chatChannelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
		if err != nil {
			pc.Close()
			return nil, NewError("create chat channel", err)
		}
		p.adoptChatChannel(dc)
	} else {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			if dc.Label() == chatChannelLabel {
				p.adoptChatChannel(dc)
			}
		})
	}

	return p, nil
}

func (p *PionPeer) adoptChatChannel(dc *webrtc.DataChannel) {
	chat := newPionChat(dc, p.log)
	dc.OnOpen(func() {
		if p.events.ChatOpened != nil {
			p.events.ChatOpened(chat)
		}
	})
}

func (p *PionPeer) CreateOffer() (json.RawMessage, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return nil, NewError("create offer", err)
	}
	return json.Marshal(offer)
}

func (p *PionPeer) CreateAnswer() (json.RawMessage, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return nil, NewError("create answer", err)
	}
	return json.Marshal(answer)
}

func (p *PionPeer) SetLocalDescription(desc json.RawMessage) error {
	var sd webrtc.SessionDescription
	if err := json.Unmarshal(desc, &sd); err != nil {
		return NewError("parse local description", err)
	}
	if err := p.pc.SetLocalDescription(sd); err != nil {
		return NewError("set local description", err)
	}
	return nil
}

// SetRemoteDescription commits the remote description and then applies any
// candidates that arrived before it. A buffered candidate that still fails
// to apply is dropped; connectivity degrades instead of erroring.
func (p *PionPeer) SetRemoteDescription(desc json.RawMessage) error {
	var sd webrtc.SessionDescription
	if err := json.Unmarshal(desc, &sd); err != nil {
		return NewError("parse remote description", err)
	}
	if err := p.pc.SetRemoteDescription(sd); err != nil {
		return NewError("set remote description", err)
	}

	p.mu.Lock()
	pending := p.queue.Commit()
	p.mu.Unlock()

	for _, candidate := range pending {
		if err := p.applyCandidate(candidate); err != nil {
			p.log.Warn().Err(err).Msg("dropping buffered candidate")
		}
	}
	return nil
}

func (p *PionPeer) AddICECandidate(candidate json.RawMessage) error {
	p.mu.Lock()
	apply := p.queue.Add(candidate)
	p.mu.Unlock()

	if !apply {
		return nil
	}
	return p.applyCandidate(candidate)
}

func (p *PionPeer) applyCandidate(candidate json.RawMessage) error {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		return NewError("parse ICE candidate", err)
	}
	if err := p.pc.AddICECandidate(init); err != nil {
		return NewError("add ICE candidate", err)
	}
	return nil
}

func (p *PionPeer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	return p.pc.Close()
}

func mapConnState(state webrtc.PeerConnectionState) ConnState {
	switch state {
	case webrtc.PeerConnectionStateNew:
		return ConnNew
	case webrtc.PeerConnectionStateConnecting:
		return ConnConnecting
	case webrtc.PeerConnectionStateConnected:
		return ConnConnected
	case webrtc.PeerConnectionStateDisconnected:
		return ConnDisconnected
	case webrtc.PeerConnectionStateFailed:
		return ConnFailed
	default:
		return ConnClosed
	}
}
