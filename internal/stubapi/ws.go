package stubapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Esmakirs9082/chat-sub000/internal/chatws"
	"github.com/Esmakirs9082/chat-sub000/internal/constants"
	"github.com/Esmakirs9082/chat-sub000/internal/ids"
	"github.com/Esmakirs9082/chat-sub000/internal/models"
)

const (
	wsWriteWait    = 10 * time.Second
	wsMaxFrameSize = 65536

	// Simulated thinking delay before the character reply
	replyTypingDelay = 300 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// chatConn serializes writes to one upgraded connection.
type chatConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *chatConn) writeFrame(t chatws.FrameType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(chatws.Frame{Type: t, Data: data})
}

// handleChatSocket serves the per-chat socket: echoes the user's messages,
// frames the character's typing state, and emits an AI reply.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticateRequest(r)
	if !ok {
		unauthorized(w, "Invalid or expired token")
		return
	}
	chatID := chi.URLParam(r, "id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxFrameSize)

	cc := &chatConn{conn: conn}
	cc.writeFrame(chatws.FramePresence, chatws.PresencePayload{UserID: userID, Online: true})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame chatws.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			cc.writeFrame(chatws.FrameError, chatws.ErrorPayload{
				Code:    constants.ErrCodeInvalidRequest,
				Message: "Malformed frame",
			})
			continue
		}

		switch frame.Type {
		case chatws.FrameMessage:
			var p chatws.SendPayload
			if err := json.Unmarshal(frame.Data, &p); err != nil || p.Content == "" {
				cc.writeFrame(chatws.FrameError, chatws.ErrorPayload{
					Code:    constants.ErrCodeInvalidRequest,
					Message: "Message content is required",
				})
				continue
			}
			s.handleSocketMessage(r.Context(), cc, chatID, p.Content)

		case chatws.FrameTyping:
			// The user's typing state is not rebroadcast in a 1:1 chat.

		default:
			cc.writeFrame(chatws.FrameError, chatws.ErrorPayload{
				Code:    constants.ErrCodeInvalidRequest,
				Message: "Unknown frame type",
			})
		}
	}
}

func (s *Server) handleSocketMessage(ctx context.Context, cc *chatConn, chatID, content string) {
	if len(content) > constants.MaxMessageContentLength {
		cc.writeFrame(chatws.FrameError, chatws.ErrorPayload{
			Code:    constants.ErrCodeMessageTooLong,
			Message: "Message exceeds maximum length",
		})
		return
	}

	msgID, err := ids.New("msg")
	if err != nil {
		return
	}
	userMsg := models.Message{
		ID:        msgID,
		ChatID:    chatID,
		Sender:    models.SenderUser,
		Content:   sanitizer.Sanitize(content),
		Timestamp: time.Now().UTC(),
		Type:      models.MessageTypeText,
	}
	s.state.appendMessage(userMsg)
	cc.writeFrame(chatws.FrameMessage, chatws.MessagePayload{Message: userMsg})

	character := s.chatCharacter(chatID)
	cc.writeFrame(chatws.FrameTyping, chatws.TypingPayload{Name: character.Name, Typing: true})
	time.Sleep(replyTypingDelay)

	s.state.mu.Lock()
	history := append([]models.Message(nil), s.state.messages[chatID]...)
	s.state.mu.Unlock()

	reply, err := s.responder.Reply(ctx, character, history, userMsg.Content)
	if err != nil {
		s.logger.Error("generating reply", "error", err, "chat_id", chatID)
		reply = character.Name + " seems lost in thought."
	}

	replyID, err := ids.New("msg")
	if err != nil {
		return
	}
	aiMsg := models.Message{
		ID:        replyID,
		ChatID:    chatID,
		Sender:    models.SenderAI,
		Content:   reply,
		Timestamp: time.Now().UTC(),
		Type:      models.MessageTypeText,
	}
	s.state.appendMessage(aiMsg)

	cc.writeFrame(chatws.FrameTyping, chatws.TypingPayload{Name: character.Name, Typing: false})
	cc.writeFrame(chatws.FrameMessage, chatws.MessagePayload{Message: aiMsg})
}

// chatCharacter resolves the character behind a chat, falling back to the
// first seeded character when the chat was created client-side only.
func (s *Server) chatCharacter(chatID string) models.Character {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if chat, ok := s.state.chats[chatID]; ok {
		if character, ok := s.state.characters[chat.CharacterID]; ok {
			return *character
		}
	}
	for _, c := range s.state.characters {
		return *c
	}
	return models.Character{Name: "Narrator", Description: "An impartial narrator."}
}
