package store

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Esmakirs9082/chat-sub000/internal/apiclient"
	"github.com/Esmakirs9082/chat-sub000/internal/forms"
	"github.com/Esmakirs9082/chat-sub000/internal/models"
)

// AuthStore drives the login/logout lifecycle. The implicit state machine is
// loggedOut → loggingIn → loggedIn, read through IsLoading and
// IsAuthenticated.
type AuthStore struct {
	mu      sync.RWMutex
	session *Session
	api     *apiclient.Client
	logger  *slog.Logger
	loading bool
	lastErr string
}

type authResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func NewAuth(session *Session, api *apiclient.Client) *AuthStore {
	return &AuthStore{session: session, api: api, logger: slog.Default()}
}

// Login authenticates with email and password. On failure the session is left
// untouched and the error is recorded for the UI.
func (s *AuthStore) Login(ctx context.Context, email, password string) error {
	if err := forms.Validate(forms.LoginForm{Email: email, Password: password}); err != nil {
		s.recordErr(err)
		return err
	}

	s.setLoading(true)
	defer s.setLoading(false)

	var out authResponse
	err := s.api.Request(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		s.logger.Error("login failed", "error", err)
		s.recordErr(err)
		return err
	}

	s.session.SetTokens(out.AccessToken, out.RefreshToken)
	s.session.SetUser(out.User)
	s.recordErr(nil)
	return nil
}

// Register creates an account and signs the new user in.
func (s *AuthStore) Register(ctx context.Context, form forms.RegisterForm) error {
	if err := forms.Validate(form); err != nil {
		s.recordErr(err)
		return err
	}

	s.setLoading(true)
	defer s.setLoading(false)

	var out authResponse
	err := s.api.Request(ctx, http.MethodPost, "/auth/register", form, &out)
	if err != nil {
		s.logger.Error("registration failed", "error", err)
		s.recordErr(err)
		return err
	}

	s.session.SetTokens(out.AccessToken, out.RefreshToken)
	s.session.SetUser(out.User)
	s.recordErr(nil)
	return nil
}

// Logout unconditionally clears the session and its persisted snapshot.
// It never fails.
func (s *AuthStore) Logout() {
	s.session.Clear()
	s.recordErr(nil)
}

// RefreshAuth silently replaces tokens. It is a no-op without a refresh token;
// an unrecoverable refresh degrades to Logout.
func (s *AuthStore) RefreshAuth(ctx context.Context) error {
	refreshToken := s.session.RefreshToken()
	if refreshToken == "" {
		return nil
	}

	var out authResponse
	err := s.api.Request(ctx, http.MethodPost, "/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	}, &out)
	if err != nil {
		s.logger.Warn("silent token refresh failed, logging out", "error", err)
		s.Logout()
		return err
	}

	s.session.SetTokens(out.AccessToken, out.RefreshToken)
	return nil
}

// UpdateUser merges a partial update into the current user. No-op when
// logged out.
func (s *AuthStore) UpdateUser(patch models.UserPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.session.User()
	if user == nil {
		return
	}
	updated := *user
	patch.Apply(&updated)
	s.session.SetUser(&updated)
}

// IsAuthenticated derives login state from token presence.
func (s *AuthStore) IsAuthenticated() bool {
	return s.session.AccessToken() != ""
}

// User returns the current user, or nil when logged out.
func (s *AuthStore) User() *models.User {
	return s.session.User()
}

// Subscription returns the current user's subscription, or nil.
func (s *AuthStore) Subscription() *models.Subscription {
	user := s.session.User()
	if user == nil {
		return nil
	}
	return user.Subscription
}

func (s *AuthStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last action's user-facing error message, empty when the
// last action succeeded.
func (s *AuthStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *AuthStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *AuthStore) recordErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastErr = ""
		return
	}
	s.lastErr = err.Error()
}
