package store

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Esmakirs9082/chat-sub000/internal/apiclient"
	"github.com/Esmakirs9082/chat-sub000/internal/ids"
	"github.com/Esmakirs9082/chat-sub000/internal/models"
)

// ChatStore owns chat sessions and their messages. Sending is optimistic:
// the user's message is appended locally before the network call resolves,
// and stays even if the send fails.
type ChatStore struct {
	mu          sync.RWMutex
	api         *apiclient.Client
	logger      *slog.Logger
	userID      func() string
	chats       []models.Chat
	activeID    string
	messages    []models.Message
	typingUsers []string
	isTyping    bool
	loading     bool
	lastErr     string
}

// NewChats creates the chat store. userID supplies the signed-in user's id for
// locally synthesized chats and messages; it is a cross-store read, never a
// write.
func NewChats(api *apiclient.Client, userID func() string) *ChatStore {
	return &ChatStore{api: api, logger: slog.Default(), userID: userID}
}

// SetActiveChat looks the chat up by id. A miss resolves to an empty active
// chat, not an error.
func (s *ChatStore) SetActiveChat(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.chats {
		if c.ID == id {
			s.activeID = id
			s.messages = append([]models.Message(nil), c.Messages...)
			return
		}
	}
	s.activeID = ""
	s.messages = nil
}

// ActiveChat returns a copy of the active chat, or nil.
func (s *ChatStore) ActiveChat() *models.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.chats {
		if s.chats[i].ID == s.activeID {
			c := s.chats[i]
			return &c
		}
	}
	return nil
}

// LoadChats replaces the chat list from the server.
func (s *ChatStore) LoadChats(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var out []models.Chat
	if err := s.api.Request(ctx, http.MethodGet, "/chats", nil, &out); err != nil {
		s.logger.Error("loading chats", "error", err)
		s.recordErr(err)
		return err
	}

	s.mu.Lock()
	s.chats = out
	s.mu.Unlock()
	s.recordErr(nil)
	return nil
}

// LoadMessages replaces the flat message list for a chat.
func (s *ChatStore) LoadMessages(ctx context.Context, chatID string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var out []models.Message
	if err := s.api.Request(ctx, http.MethodGet, "/chats/"+chatID+"/messages", nil, &out); err != nil {
		s.logger.Error("loading messages", "error", err, "chat_id", chatID)
		s.recordErr(err)
		return err
	}

	s.mu.Lock()
	s.messages = out
	for i := range s.chats {
		if s.chats[i].ID == chatID {
			s.chats[i].Messages = append([]models.Message(nil), out...)
			s.chats[i].MessageCount = len(out)
			break
		}
	}
	s.mu.Unlock()
	s.recordErr(nil)
	return nil
}

// SendMessage appends the user's message optimistically, then issues the send.
// A failed send is logged and recorded but the optimistic message stays;
// there is no rollback or retry. No-op without an active chat.
func (s *ChatStore) SendMessage(ctx context.Context, content string) error {
	s.mu.Lock()
	if s.activeID == "" {
		s.mu.Unlock()
		return nil
	}
	chatID := s.activeID

	id, err := ids.New("msg")
	if err != nil {
		s.mu.Unlock()
		return err
	}

	msg := models.Message{
		ID:        id,
		ChatID:    chatID,
		Sender:    models.SenderUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Type:      models.MessageTypeText,
	}
	s.appendLocked(msg)
	s.mu.Unlock()

	// The optimistic message is authoritative locally; the server copy is
	// not reconciled back, so the response body is not decoded.
	err = s.api.Request(ctx, http.MethodPost, "/chats/"+chatID+"/messages", map[string]string{
		"content": content,
	}, nil)
	if err != nil {
		s.logger.Error("sending message", "error", err, "chat_id", chatID)
		s.recordErr(err)
		return err
	}

	s.recordErr(nil)
	return nil
}

// CreateChat synthesizes a new chat with default settings, appends it, and
// makes it active.
func (s *ChatStore) CreateChat(characterID string) (models.Chat, error) {
	id, err := ids.New("cht")
	if err != nil {
		return models.Chat{}, err
	}

	userID := ""
	if s.userID != nil {
		userID = s.userID()
	}

	chat := models.Chat{
		ID:          id,
		CharacterID: characterID,
		UserID:      userID,
		Title:       "New chat",
		Messages:    []models.Message{},
		Settings:    models.DefaultChatSettings(),
	}

	s.mu.Lock()
	s.chats = append(s.chats, chat)
	s.activeID = chat.ID
	s.messages = nil
	s.mu.Unlock()
	return chat, nil
}

// DeleteChat removes a chat. If it was active, the active chat and message
// list are cleared.
func (s *ChatStore) DeleteChat(ctx context.Context, chatID string) error {
	if err := s.api.Request(ctx, http.MethodDelete, "/chats/"+chatID, nil, nil); err != nil {
		s.logger.Error("deleting chat", "error", err, "chat_id", chatID)
		s.recordErr(err)
		return err
	}

	s.mu.Lock()
	kept := s.chats[:0]
	for _, c := range s.chats {
		if c.ID != chatID {
			kept = append(kept, c)
		}
	}
	s.chats = kept
	if s.activeID == chatID {
		s.activeID = ""
		s.messages = nil
	}
	s.mu.Unlock()
	s.recordErr(nil)
	return nil
}

// AddMessage appends an externally sourced message (e.g. socket-delivered),
// bypassing the optimistic-send path.
func (s *ChatStore) AddMessage(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(msg)
}

// StartTyping records a typing participant. Duplicate names are not appended.
func (s *ChatStore) StartTyping(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.typingUsers {
		if existing == name {
			return
		}
	}
	s.typingUsers = append(s.typingUsers, name)
	s.isTyping = true
}

// StopTyping clears all typing participants unconditionally.
func (s *ChatStore) StopTyping() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typingUsers = nil
	s.isTyping = false
}

func (s *ChatStore) TypingUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.typingUsers...)
}

func (s *ChatStore) IsTyping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isTyping
}

func (s *ChatStore) Chats() []models.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Chat(nil), s.chats...)
}

func (s *ChatStore) ActiveChatID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Messages returns the flat message list for the active chat.
func (s *ChatStore) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.messages...)
}

func (s *ChatStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *ChatStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// appendLocked adds a message to the flat list (when it belongs to the active
// chat) and to the owning chat's embedded list. Messages are append-only; the
// client never reorders.
func (s *ChatStore) appendLocked(msg models.Message) {
	if msg.ChatID == s.activeID {
		s.messages = append(s.messages, msg)
	}
	for i := range s.chats {
		if s.chats[i].ID == msg.ChatID {
			s.chats[i].Messages = append(s.chats[i].Messages, msg)
			s.chats[i].MessageCount = len(s.chats[i].Messages)
			ts := msg.Timestamp
			s.chats[i].LastMessageAt = &ts
			break
		}
	}
}

func (s *ChatStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *ChatStore) recordErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastErr = ""
		return
	}
	s.lastErr = err.Error()
}
