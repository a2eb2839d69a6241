package chatws

import (
	"context"
	"sync"

	"github.com/Esmakirs9082/chat-sub000/internal/signals"
)

// TokenReader supplies the current access token at dial time.
type TokenReader interface {
	AccessToken() string
}

// Manager keeps at most one live chat socket. Switching the active chat tears
// the old socket down and dials the new one; the shared tracker re-enters the
// connecting state on every switch.
type Manager struct {
	mu       sync.Mutex
	wsURL    string
	tokens   TokenReader
	tracker  *signals.ConnTracker
	handlers Handlers
	session  *Session
}

func NewManager(wsURL string, tokens TokenReader, tracker *signals.ConnTracker, handlers Handlers) *Manager {
	return &Manager{wsURL: wsURL, tokens: tokens, tracker: tracker, handlers: handlers}
}

// SetActiveChat switches the socket to the given chat. An empty id only
// disconnects.
func (m *Manager) SetActiveChat(ctx context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		if m.session.ChatID() == chatID {
			return nil
		}
		m.session.Close()
		m.session = nil
	}
	if chatID == "" {
		return nil
	}

	token := ""
	if m.tokens != nil {
		token = m.tokens.AccessToken()
	}

	session, err := Dial(ctx, m.wsURL, chatID, token, m.tracker, m.handlers)
	if err != nil {
		return err
	}
	m.session = session
	return nil
}

// Session returns the live session, or nil when disconnected.
func (m *Manager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Close tears down any live socket.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Close()
		m.session = nil
	}
}
