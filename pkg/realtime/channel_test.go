package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parlorchat/parlor/pkg/bus"
)

// wsServer is a minimal realtime backend: it records the userId of each
// connection and hands the test a channel of accepted sockets.
type wsServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader
	conns    chan *websocket.Conn
	userIDs  chan string
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	s := &wsServer{
		conns:   make(chan *websocket.Conn, 4),
		userIDs: make(chan string, 4),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.userIDs <- r.URL.Query().Get("userId")
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		s.conns <- conn
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-s.conns:
		return conn
	case <-time.After(3 * time.Second):
		t.Fatalf("no connection accepted")
		return nil
	}
}

func consumeKind(t *testing.T, b *bus.EventBus, kind bus.Kind) bus.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		ev, ok := b.Consume(ctx)
		if !ok {
			t.Fatalf("bus closed while waiting for %s event", kind)
		}
		if ev.Kind == kind {
			return ev
		}
	}
}

func startChannel(t *testing.T, s *wsServer) (*Channel, *bus.EventBus) {
	t.Helper()
	evBus := bus.NewEventBus()
	ch := NewChannel(Config{
		SocketURL:  s.url(),
		UserID:     "u1",
		MinBackoff: 10 * time.Millisecond,
		MaxBackoff: 50 * time.Millisecond,
	}, evBus)
	if err := ch.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		ch.Close()
		evBus.Close()
	})
	return ch, evBus
}

func TestConnectDeclaresIdentity(t *testing.T) {
	s := newWSServer(t)
	ch, evBus := startChannel(t, s)
	s.accept(t)

	if got := <-s.userIDs; got != "u1" {
		t.Errorf("expected userId=u1 on dial, got %q", got)
	}

	ev := consumeKind(t, evBus, bus.KindConnection)
	if !ev.Connected {
		t.Errorf("expected connected event")
	}
	if ch.State() != StateConnected {
		t.Errorf("expected connected state, got %s", ch.State())
	}
}

func TestInboundMessageEvent(t *testing.T) {
	s := newWSServer(t)
	_, evBus := startChannel(t, s)
	conn := s.accept(t)

	payload := `{"event":"newMessage","payload":{"_id":"m1","text":"hi","senderId":"u2","receiverId":"u1","createdAt":"2026-01-02T15:04:05Z"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("write: %v", err)
	}

	ev := consumeKind(t, evBus, bus.KindMessage)
	if ev.Message.ID != "m1" || ev.Message.SenderID != "u2" {
		t.Errorf("unexpected message event: %+v", ev.Message)
	}
}

func TestPresenceSnapshotEvent(t *testing.T) {
	s := newWSServer(t)
	_, evBus := startChannel(t, s)
	conn := s.accept(t)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"onlineUsers","payload":["u2","u3"]}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	ev := consumeKind(t, evBus, bus.KindPresence)
	if len(ev.OnlineIDs) != 2 || ev.OnlineIDs[0] != "u2" {
		t.Errorf("unexpected presence event: %v", ev.OnlineIDs)
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	s := newWSServer(t)
	_, evBus := startChannel(t, s)
	conn := s.accept(t)

	ev := consumeKind(t, evBus, bus.KindConnection)
	if !ev.Connected {
		t.Fatalf("expected initial connected event")
	}

	// Server-side drop: the channel must surface it and redial with the
	// same identity.
	conn.Close()

	ev = consumeKind(t, evBus, bus.KindConnection)
	if ev.Connected {
		t.Fatalf("expected disconnected event after drop")
	}

	s.accept(t)
	<-s.userIDs // first dial
	if got := <-s.userIDs; got != "u1" {
		t.Errorf("identity not re-declared on reconnect, got %q", got)
	}

	ev = consumeKind(t, evBus, bus.KindConnection)
	if !ev.Connected {
		t.Errorf("expected reconnected event")
	}
}

func TestCloseIdempotent(t *testing.T) {
	s := newWSServer(t)
	ch, _ := startChannel(t, s)
	s.accept(t)

	ch.Close()
	ch.Close() // must not panic

	if ch.State() != StateDisconnected {
		t.Errorf("expected disconnected after close, got %s", ch.State())
	}
}

func TestUnknownFramesIgnored(t *testing.T) {
	s := newWSServer(t)
	_, evBus := startChannel(t, s)
	conn := s.accept(t)

	conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"typing","payload":{}}`))
	conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"onlineUsers","payload":["u2"]}`))

	// The channel keeps reading past frames it does not understand.
	ev := consumeKind(t, evBus, bus.KindPresence)
	if len(ev.OnlineIDs) != 1 {
		t.Errorf("expected presence event after junk frames, got %v", ev.OnlineIDs)
	}
}

func TestStartRequiresUserID(t *testing.T) {
	evBus := bus.NewEventBus()
	defer evBus.Close()
	ch := NewChannel(Config{SocketURL: "ws://localhost:0"}, evBus)
	if err := ch.Start(context.Background()); err == nil {
		t.Errorf("expected error without user id")
	}
}
