package server

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP payloads fit comfortably.
	maxMessageSize = 64 * 1024
)

// Client wraps a single websocket connection. The hub routes envelopes to it
// through the buffered Send channel; the write pump is the only writer on
// the connection, the read pump the only reader.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// ID is the server-assigned user id, sent to the client in the
	// connection greeting.
	ID string

	// Send carries outbound envelopes. The hub closes it on unregister.
	Send chan *protocol.Message

	Log zerolog.Logger
}

// ReadPump pumps envelopes from the websocket connection to the hub.
// It runs in a per-connection goroutine; on any transport error it
// unregisters the client, which the hub treats as an implicit leave.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Log.Debug().Err(err).Str("user", c.ID).Msg("read error")
			}
			return
		}

		// A malformed envelope faults only this client; the connection
		// stays up and other sessions are unaffected.
		var msg protocol.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.Log.Warn().Err(err).Str("user", c.ID).Msg("malformed message")
			c.Hub.Inbound <- Inbound{Client: c, Message: &protocol.Message{Type: typeMalformed}}
			continue
		}

		c.Hub.Inbound <- Inbound{Client: c, Message: &msg}
	}
}

// WritePump pumps envelopes from the Send channel to the websocket
// connection and keeps the connection alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(msg); err != nil {
				c.Log.Debug().Err(err).Str("user", c.ID).Msg("write error")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
