// Package chatws maintains the per-chat WebSocket session: one socket per
// active chat carrying JSON frames for messages, typing, and presence.
package chatws

import (
	"encoding/json"

	"github.com/Esmakirs9082/chat-sub000/internal/models"
)

// FrameType discriminates the wire frames.
type FrameType string

const (
	FrameMessage  FrameType = "message"
	FrameTyping   FrameType = "typing"
	FramePresence FrameType = "presence"
	FrameError    FrameType = "error"
)

// Frame is the wire envelope. Data is decoded per Type.
type Frame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MessagePayload carries a chat message in either direction: outbound it holds
// only the content, inbound the full message.
type MessagePayload struct {
	Message models.Message `json:"message"`
}

// SendPayload is the outbound message body.
type SendPayload struct {
	Content string `json:"content"`
}

// TypingPayload signals a participant starting or stopping typing.
type TypingPayload struct {
	Name   string `json:"name"`
	Typing bool   `json:"typing"`
}

// PresencePayload reports a participant's presence.
type PresencePayload struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// ErrorPayload is sent by the server when it rejects a client frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newFrame(t FrameType, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: t, Data: data}, nil
}
