// Package store holds the client-side domain state: each store owns one slice
// of state, exposes actions that call the API, and derives read-only values
// from its snapshot. Persisted stores write an explicit allow-list of fields.
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Esmakirs9082/chat-sub000/internal/models"
	"github.com/Esmakirs9082/chat-sub000/internal/persist"
)

const sessionBlob = "chatsub.session"

// sessionSnapshot is the persisted allow-list: tokens only. The user profile
// is refreshed from the server on login.
type sessionSnapshot struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session holds the auth tokens and current user. It is owned by the Auth
// store; the API client only reads it through the TokenSource interface.
type Session struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	user         *models.User
	kv           *persist.Store
	logger       *slog.Logger
}

// NewSession restores any persisted token snapshot from the state store.
// kv may be nil for a purely in-memory session.
func NewSession(ctx context.Context, kv *persist.Store) *Session {
	s := &Session{kv: kv, logger: slog.Default()}
	if kv == nil {
		return s
	}

	var snap sessionSnapshot
	found, err := kv.Get(ctx, sessionBlob, &snap)
	if err != nil {
		s.logger.Warn("restoring session snapshot", "error", err)
		return s
	}
	if found {
		s.accessToken = snap.AccessToken
		s.refreshToken = snap.RefreshToken
	}
	return s
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// SetTokens replaces both tokens and persists the snapshot. Persistence is
// best-effort: a write failure is logged and does not undo the in-memory
// update.
func (s *Session) SetTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.mu.Unlock()

	if s.kv == nil {
		return
	}
	err := s.kv.Put(context.Background(), sessionBlob, sessionSnapshot{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
	if err != nil {
		s.logger.Error("persisting session snapshot", "error", err)
	}
}

// Clear wipes tokens, the user, and the persisted snapshot. It never fails.
func (s *Session) Clear() {
	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.user = nil
	s.mu.Unlock()

	if s.kv == nil {
		return
	}
	if err := s.kv.Delete(context.Background(), sessionBlob); err != nil {
		s.logger.Error("clearing session snapshot", "error", err)
	}
}

func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) SetUser(user *models.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
}
