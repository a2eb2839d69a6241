package chatws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Esmakirs9082/chat-sub000/internal/signals"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsTestServer upgrades /ws/chats/{id} and hands the connection to fn.
func wsTestServer(t *testing.T, fn func(chatID string, conn *websocket.Conn, r *http.Request)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatID := strings.TrimPrefix(r.URL.Path, "/ws/chats/")
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		fn(chatID, conn, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func holdOpen(_ string, conn *websocket.Conn, _ *http.Request) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestDialConnectsAndSendsBearer(t *testing.T) {
	var (
		mu       sync.Mutex
		gotAuth  string
		gotChat  string
	)
	wsURL := wsTestServer(t, func(chatID string, conn *websocket.Conn, r *http.Request) {
		mu.Lock()
		gotAuth = r.Header.Get("Authorization")
		gotChat = chatID
		mu.Unlock()
		holdOpen(chatID, conn, r)
	})

	tracker := signals.NewConnTracker(nil)
	session, err := Dial(context.Background(), wsURL, "cht_1", "token-1", tracker, Handlers{})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer session.Close()

	if tracker.State() != signals.ConnConnected {
		t.Fatalf("tracker state = %v, want connected", tracker.State())
	}
	if tracker.ChatID() != "cht_1" {
		t.Fatalf("tracker chat = %q", tracker.ChatID())
	}

	mu.Lock()
	defer mu.Unlock()
	if gotAuth != "Bearer token-1" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotChat != "cht_1" {
		t.Fatalf("chat path = %q", gotChat)
	}
}

func TestDialFailureMarksDisconnected(t *testing.T) {
	tracker := signals.NewConnTracker(nil)
	_, err := Dial(context.Background(), "ws://127.0.0.1:1", "cht_1", "", tracker, Handlers{})
	if err == nil {
		t.Fatal("Dial() error = nil, want failure")
	}
	if tracker.State() != signals.ConnDisconnected {
		t.Fatalf("tracker state = %v, want disconnected", tracker.State())
	}
}

func TestInboundFrameDispatch(t *testing.T) {
	frames := []string{
		`{"type": "message", "data": {"message": {"id": "msg_1", "chatId": "cht_1", "sender": "ai", "content": "hello", "type": "text"}}}`,
		`{"type": "typing", "data": {"name": "Aster", "typing": true}}`,
		`{"type": "presence", "data": {"userId": "usr_2", "online": true}}`,
		`{"type": "error", "data": {"code": "MESSAGE_TOO_LONG", "message": "too long"}}`,
		`{"type": "bogus"}`,
	}
	wsURL := wsTestServer(t, func(chatID string, conn *websocket.Conn, r *http.Request) {
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		holdOpen(chatID, conn, r)
	})

	messages := make(chan MessagePayload, 1)
	typing := make(chan TypingPayload, 1)
	presence := make(chan PresencePayload, 1)
	errs := make(chan ErrorPayload, 1)

	tracker := signals.NewConnTracker(nil)
	session, err := Dial(context.Background(), wsURL, "cht_1", "", tracker, Handlers{
		OnMessage:  func(p MessagePayload) { messages <- p },
		OnTyping:   func(p TypingPayload) { typing <- p },
		OnPresence: func(p PresencePayload) { presence <- p },
		OnError:    func(p ErrorPayload) { errs <- p },
	})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer session.Close()

	select {
	case p := <-messages:
		if p.Message.ID != "msg_1" || p.Message.Content != "hello" {
			t.Fatalf("message payload = %+v", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message frame never dispatched")
	}
	select {
	case p := <-typing:
		if p.Name != "Aster" || !p.Typing {
			t.Fatalf("typing payload = %+v", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("typing frame never dispatched")
	}
	select {
	case p := <-presence:
		if p.UserID != "usr_2" || !p.Online {
			t.Fatalf("presence payload = %+v", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("presence frame never dispatched")
	}
	select {
	case p := <-errs:
		if p.Code != "MESSAGE_TOO_LONG" {
			t.Fatalf("error payload = %+v", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("error frame never dispatched")
	}
}

func TestSendMessageAndTypingFrames(t *testing.T) {
	received := make(chan Frame, 2)
	wsURL := wsTestServer(t, func(chatID string, conn *websocket.Conn, r *http.Request) {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame Frame
			if err := json.Unmarshal(raw, &frame); err != nil {
				continue
			}
			received <- frame
		}
	})

	tracker := signals.NewConnTracker(nil)
	session, err := Dial(context.Background(), wsURL, "cht_1", "", tracker, Handlers{})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer session.Close()

	if err := session.SendMessage("hi there"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if err := session.SendTyping(true); err != nil {
		t.Fatalf("SendTyping() error = %v", err)
	}

	select {
	case frame := <-received:
		if frame.Type != FrameMessage {
			t.Fatalf("first frame type = %q", frame.Type)
		}
		var p SendPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil || p.Content != "hi there" {
			t.Fatalf("send payload = %+v, err = %v", p, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message frame never received")
	}
	select {
	case frame := <-received:
		if frame.Type != FrameTyping {
			t.Fatalf("second frame type = %q", frame.Type)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("typing frame never received")
	}
}

func TestCloseMarksDisconnected(t *testing.T) {
	wsURL := wsTestServer(t, holdOpen)

	tracker := signals.NewConnTracker(nil)
	session, err := Dial(context.Background(), wsURL, "cht_1", "", tracker, Handlers{})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	session.Close()
	session.Close() // idempotent

	if tracker.State() != signals.ConnDisconnected {
		t.Fatalf("tracker state = %v, want disconnected", tracker.State())
	}
}

func TestManagerSwitchingChatsRedials(t *testing.T) {
	var (
		mu    sync.Mutex
		dials []string
	)
	wsURL := wsTestServer(t, func(chatID string, conn *websocket.Conn, r *http.Request) {
		mu.Lock()
		dials = append(dials, chatID)
		mu.Unlock()
		holdOpen(chatID, conn, r)
	})

	var states []signals.ConnState
	var statesMu sync.Mutex
	tracker := signals.NewConnTracker(func(s signals.ConnState) {
		statesMu.Lock()
		states = append(states, s)
		statesMu.Unlock()
	})

	manager := NewManager(wsURL, nil, tracker, Handlers{})
	defer manager.Close()

	if err := manager.SetActiveChat(context.Background(), "cht_1"); err != nil {
		t.Fatalf("SetActiveChat(cht_1) error = %v", err)
	}
	first := manager.Session()

	// Same chat is a no-op.
	if err := manager.SetActiveChat(context.Background(), "cht_1"); err != nil {
		t.Fatalf("SetActiveChat(cht_1) again error = %v", err)
	}
	if manager.Session() != first {
		t.Fatal("same-chat switch replaced the session")
	}

	if err := manager.SetActiveChat(context.Background(), "cht_2"); err != nil {
		t.Fatalf("SetActiveChat(cht_2) error = %v", err)
	}
	if manager.Session() == first {
		t.Fatal("chat switch kept the old session")
	}
	if tracker.ChatID() != "cht_2" {
		t.Fatalf("tracker chat = %q, want cht_2", tracker.ChatID())
	}
	if tracker.State() != signals.ConnConnected {
		t.Fatalf("tracker state = %v, want connected", tracker.State())
	}

	mu.Lock()
	gotDials := append([]string(nil), dials...)
	mu.Unlock()
	if len(gotDials) != 2 || gotDials[0] != "cht_1" || gotDials[1] != "cht_2" {
		t.Fatalf("dials = %v", gotDials)
	}

	// The switch must pass through connecting before connected again. The
	// lock must be released before the next SetActiveChat: closing the
	// session fires the tracker callback on this goroutine, which takes
	// statesMu again.
	statesMu.Lock()
	transitions := append([]signals.ConnState(nil), states...)
	statesMu.Unlock()
	var reconnecting bool
	for i := 1; i < len(transitions); i++ {
		if transitions[i-1] == signals.ConnConnecting && transitions[i] == signals.ConnConnected {
			reconnecting = true
		}
	}
	if !reconnecting {
		t.Fatalf("state transitions = %v, want connecting before connected", transitions)
	}

	if err := manager.SetActiveChat(context.Background(), ""); err != nil {
		t.Fatalf("SetActiveChat(empty) error = %v", err)
	}
	if manager.Session() != nil {
		t.Fatal("empty chat id left a live session")
	}
}
