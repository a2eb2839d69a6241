package stubapi

import (
	"net/http"

	"github.com/Esmakirs9082/chat-sub000/internal/models"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type authResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, ok := s.state.createUser(req.Email, sanitizer.Sanitize(req.Username), req.Password)
	if !ok {
		conflict(w, "An account with this email already exists")
		return
	}

	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("issuing tokens", "error", err)
		internalError(w)
		return
	}

	writeData(w, http.StatusCreated, authResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user := s.state.authenticate(req.Email, req.Password)
	if user == nil {
		unauthorized(w, "Invalid email or password")
		return
	}

	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("issuing tokens", "error", err)
		internalError(w)
		return
	}

	writeData(w, http.StatusOK, authResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	pair, err := s.tokens.Rotate(req.RefreshToken)
	if err != nil {
		unauthorized(w, "Invalid or expired refresh token")
		return
	}

	writeData(w, http.StatusOK, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeAndValidate(r.Body, &req); err == nil && req.RefreshToken != "" {
		s.tokens.Revoke(req.RefreshToken)
	}
	writeData(w, http.StatusOK, nil)
}
