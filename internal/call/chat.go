package call

import (
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Frame types carried over the chat data channel.
const (
	frameTypeChat = "chat"
)

// frame is the envelope for all data channel traffic.
type frame struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// timeNow is swappable for tests.
var timeNow = time.Now

// ChatMessage is one line of in-call text chat.
type ChatMessage struct {
	From   string    `msgpack:"from"`
	Text   string    `msgpack:"text"`
	SentAt time.Time `msgpack:"sentAt"`
}

func encodeFrame(t string, payload any) ([]byte, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(frame{Type: t, Payload: b})
}

func decodeFrame(data []byte) (frame, error) {
	var f frame
	err := msgpack.Unmarshal(data, &f)
	return f, err
}

// pionChat carries msgpack-framed chat messages over a pion data channel.
type pionChat struct {
	dc  *webrtc.DataChannel
	log zerolog.Logger

	mu      sync.Mutex
	handler func(ChatMessage)
}

func newPionChat(dc *webrtc.DataChannel, log zerolog.Logger) *pionChat {
	c := &pionChat{dc: dc, log: log}

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		f, err := decodeFrame(msg.Data)
		if err != nil {
			log.Warn().Err(err).Msg("failed to parse chat frame")
			return
		}
		if f.Type != frameTypeChat {
			return
		}

		var chat ChatMessage
		if err := msgpack.Unmarshal(f.Payload, &chat); err != nil {
			log.Warn().Err(err).Msg("failed to decode chat payload")
			return
		}

		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler(chat)
		}
	})

	return c
}

// OnMessage registers the receive handler for inbound chat lines.
func (c *pionChat) OnMessage(handler func(ChatMessage)) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

func (c *pionChat) Send(msg ChatMessage) error {
	if c.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChatNotOpen
	}
	data, err := encodeFrame(frameTypeChat, msg)
	if err != nil {
		return NewError("encode chat message", err)
	}
	return c.dc.Send(data)
}

func (c *pionChat) Close() error {
	return c.dc.Close()
}
