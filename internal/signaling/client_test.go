package signaling

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/protocol"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startEchoServer accepts one websocket connection and echoes every envelope
// back to the sender.
func startEchoServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg protocol.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if err := conn.WriteJSON(&msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientRoundTrip(t *testing.T) {
	c := NewClient(startEchoServer(t))
	if err := c.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(c.Close)

	c.SendMessage(&protocol.Message{Type: protocol.TypeJoinRoom, RoomID: "demo"})

	select {
	case msg := <-c.Incoming():
		if msg.Type != protocol.TypeJoinRoom || msg.RoomID != "demo" {
			t.Fatalf("unexpected echo %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no echo received")
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	c := NewClient(startEchoServer(t))
	if err := c.Connect(); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	t.Cleanup(c.Close)

	if err := c.Connect(); err != nil {
		t.Fatalf("repeated connect: %v", err)
	}
}

func TestConnectFailsOnBadURL(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws")
	if err := c.Connect(); err == nil {
		t.Fatalf("connect to a dead endpoint succeeded")
	}
}

func TestIncomingClosesWhenServerDrops(t *testing.T) {
	srvConn := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		srvConn <- conn
	}))
	t.Cleanup(srv.Close)

	c := NewClient("ws" + strings.TrimPrefix(srv.URL, "http"))
	if err := c.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(c.Close)

	(<-srvConn).Close()

	select {
	case _, ok := <-c.Incoming():
		if ok {
			t.Fatalf("unexpected envelope before close")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("incoming channel not closed after connection loss")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c := NewClient(startEchoServer(t))
	if err := c.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	c.Close()
	c.Close()

	if err := c.Connect(); err == nil {
		t.Fatalf("connect after close succeeded")
	}
}
