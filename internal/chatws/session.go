package chatws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Esmakirs9082/chat-sub000/internal/signals"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 15 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = 10 * time.Second

	// Maximum frame size allowed from the server
	maxFrameSize = 65536
)

// Handlers receive decoded inbound frames. Nil handlers are skipped. All
// callbacks run on the session's read goroutine.
type Handlers struct {
	OnMessage  func(MessagePayload)
	OnTyping   func(TypingPayload)
	OnPresence func(PresencePayload)
	OnError    func(ErrorPayload)
}

// Session is one live socket for one chat. It owns a read goroutine and a
// ping ticker; writes are serialized behind a mutex.
type Session struct {
	id      string
	chatID  string
	conn    *websocket.Conn
	tracker *signals.ConnTracker
	logger  *slog.Logger

	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects the chat socket and starts the read loop. The access token is
// sent as a bearer header; tracker transitions are driven by the socket
// lifecycle.
func Dial(ctx context.Context, wsURL, chatID, accessToken string, tracker *signals.ConnTracker, handlers Handlers) (*Session, error) {
	tracker.Watch(chatID)

	header := http.Header{}
	if accessToken != "" {
		header.Set("Authorization", "Bearer "+accessToken)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL+"/ws/chats/"+chatID, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		tracker.HandleError()
		return nil, err
	}
	if resp != nil {
		resp.Body.Close()
	}

	s := &Session{
		id:      uuid.New().String(),
		chatID:  chatID,
		conn:    conn,
		tracker: tracker,
		logger:  slog.Default().With("chat_id", chatID),
		done:    make(chan struct{}),
	}
	tracker.HandleOpen()

	go s.readLoop(handlers)
	go s.pingLoop()
	return s, nil
}

func (s *Session) ID() string     { return s.id }
func (s *Session) ChatID() string { return s.chatID }

// SendMessage sends the user's message content over the socket.
func (s *Session) SendMessage(content string) error {
	frame, err := newFrame(FrameMessage, SendPayload{Content: content})
	if err != nil {
		return err
	}
	return s.writeFrame(frame)
}

// SendTyping reports the local user's typing state.
func (s *Session) SendTyping(typing bool) error {
	frame, err := newFrame(FrameTyping, TypingPayload{Typing: typing})
	if err != nil {
		return err
	}
	return s.writeFrame(frame)
}

// Close tears the socket down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		s.conn.Close()
		s.tracker.HandleClose()
	})
}

func (s *Session) writeFrame(frame Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(frame)
}

func (s *Session) readLoop(handlers Handlers) {
	defer s.Close()

	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("chat socket read failed", "error", err)
				s.tracker.HandleError()
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.logger.Warn("discarding malformed frame", "error", err)
			continue
		}
		s.dispatch(frame, handlers)
	}
}

func (s *Session) dispatch(frame Frame, handlers Handlers) {
	switch frame.Type {
	case FrameMessage:
		var p MessagePayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			s.logger.Warn("discarding malformed message frame", "error", err)
			return
		}
		if handlers.OnMessage != nil {
			handlers.OnMessage(p)
		}
	case FrameTyping:
		var p TypingPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			s.logger.Warn("discarding malformed typing frame", "error", err)
			return
		}
		if handlers.OnTyping != nil {
			handlers.OnTyping(p)
		}
	case FramePresence:
		var p PresencePayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			s.logger.Warn("discarding malformed presence frame", "error", err)
			return
		}
		if handlers.OnPresence != nil {
			handlers.OnPresence(p)
		}
	case FrameError:
		var p ErrorPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			s.logger.Warn("discarding malformed error frame", "error", err)
			return
		}
		s.logger.Warn("server rejected frame", "code", p.Code, "message", p.Message)
		if handlers.OnError != nil {
			handlers.OnError(p)
		}
	default:
		s.logger.Warn("unknown frame type", "type", string(frame.Type))
	}
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				s.Close()
				return
			}
		}
	}
}
