package stubapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Esmakirs9082/chat-sub000/internal/constants"
	"github.com/Esmakirs9082/chat-sub000/internal/ids"
	"github.com/Esmakirs9082/chat-sub000/internal/models"
)

type createChatRequest struct {
	CharacterID string `json:"characterId" validate:"required"`
	Title       string `json:"title" validate:"max=128"`
}

type postMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.state.listChats(requestUserID(r)))
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	userID := requestUserID(r)

	s.state.mu.Lock()
	character, ok := s.state.characters[req.CharacterID]
	if !ok {
		s.state.mu.Unlock()
		notFound(w, "Character not found")
		return
	}
	if character.IsNSFW && !s.nsfwAllowedLocked(userID) {
		s.state.mu.Unlock()
		writeError(w, http.StatusForbidden, constants.ErrCodeUpgradeRequired,
			"An active subscription is required for this character")
		return
	}
	if !s.chatQuotaAvailableLocked(userID) {
		s.state.mu.Unlock()
		writeError(w, http.StatusForbidden, constants.ErrCodeUsageLimitReached,
			"Daily chat limit reached")
		return
	}

	id, err := ids.New("cht")
	if err != nil {
		s.state.mu.Unlock()
		internalError(w)
		return
	}
	title := req.Title
	if title == "" {
		title = "Chat with " + character.Name
	}
	chat := models.Chat{
		ID:          id,
		CharacterID: req.CharacterID,
		UserID:      userID,
		Title:       sanitizer.Sanitize(title),
		Messages:    []models.Message{},
		Settings:    models.DefaultChatSettings(),
	}
	s.state.chats[chat.ID] = &chat

	usage := s.state.usage[userID]
	usage.ChatsToday++
	s.state.usage[userID] = usage
	s.state.mu.Unlock()

	writeData(w, http.StatusCreated, chat)
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := requestUserID(r)

	s.state.mu.Lock()
	chat, ok := s.state.chats[id]
	if ok && chat.UserID != userID {
		s.state.mu.Unlock()
		forbidden(w, "This chat belongs to another user")
		return
	}
	delete(s.state.chats, id)
	delete(s.state.messages, id)
	s.state.mu.Unlock()

	// Deleting a chat the server never saw is fine: the client may hold
	// locally created chats.
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.state.mu.Lock()
	msgs := append([]models.Message(nil), s.state.messages[id]...)
	s.state.mu.Unlock()

	writeData(w, http.StatusOK, msgs)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	userID := requestUserID(r)

	var req postMessageRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if len(req.Content) > constants.MaxMessageContentLength {
		writeError(w, http.StatusBadRequest, constants.ErrCodeMessageTooLong,
			"Message exceeds maximum length")
		return
	}

	s.state.mu.Lock()
	if chat, ok := s.state.chats[chatID]; ok && chat.UserID != userID {
		s.state.mu.Unlock()
		forbidden(w, "This chat belongs to another user")
		return
	}
	s.state.mu.Unlock()

	id, err := ids.New("msg")
	if err != nil {
		internalError(w)
		return
	}
	msg := models.Message{
		ID:        id,
		ChatID:    chatID,
		Sender:    models.SenderUser,
		Content:   sanitizer.Sanitize(req.Content),
		Timestamp: time.Now().UTC(),
		Type:      models.MessageTypeText,
	}
	s.state.appendMessage(msg)

	writeData(w, http.StatusCreated, msg)
}

// nsfwAllowedLocked reports whether the user's subscription unlocks NSFW
// characters. Callers hold state.mu.
func (s *Server) nsfwAllowedLocked(userID string) bool {
	sub, ok := s.state.subscriptions[userID]
	if !ok || !sub.Active {
		return false
	}
	return sub.Tier == models.TierBasic || sub.Tier == models.TierPremium
}

// chatQuotaAvailableLocked checks the daily chat ceiling for the user's plan.
// Callers hold state.mu.
func (s *Server) chatQuotaAvailableLocked(userID string) bool {
	tier := models.TierFree
	if sub, ok := s.state.subscriptions[userID]; ok && sub.Active {
		tier = sub.Tier
	}
	for _, plan := range s.state.plans {
		if plan.Tier != tier {
			continue
		}
		if plan.Limits.ChatsPerDay == models.UnlimitedLimit {
			return true
		}
		return s.state.usage[userID].ChatsToday < plan.Limits.ChatsPerDay
	}
	return true
}
