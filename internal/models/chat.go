package models

import "time"

type Sender string

const (
	SenderUser   Sender = "user"
	SenderAI     Sender = "ai"
	SenderSystem Sender = "system"
)

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeSystem MessageType = "system"
)

// Message is immutable once created; edits and reactions are annotations
// layered on top.
type Message struct {
	ID          string         `json:"id"`
	ChatID      string         `json:"chatId"`
	CharacterID *string        `json:"characterId,omitempty"`
	Sender      Sender         `json:"sender"`
	Content     string         `json:"content"`
	Timestamp   time.Time      `json:"timestamp"`
	Type        MessageType    `json:"type"`
	Edited      bool           `json:"edited,omitempty"`
	Reactions   map[string]int `json:"reactions,omitempty"`
}

// ChatSettings are per-chat behavior toggles.
type ChatSettings struct {
	AutoReply     bool `json:"autoReply"`
	TypingEnabled bool `json:"typingEnabled"`
}

// DefaultChatSettings are applied to newly created chats.
func DefaultChatSettings() ChatSettings {
	return ChatSettings{AutoReply: true, TypingEnabled: true}
}

type Chat struct {
	ID            string       `json:"id"`
	CharacterID   string       `json:"characterId"`
	UserID        string       `json:"userId"`
	Title         string       `json:"title"`
	Messages      []Message    `json:"messages"`
	LastMessageAt *time.Time   `json:"lastMessageAt,omitempty"`
	MessageCount  int          `json:"messageCount"`
	Archived      bool         `json:"archived"`
	Settings      ChatSettings `json:"settings"`
}
