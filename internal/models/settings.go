package models

import "time"

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

type NotificationSettings struct {
	Email       bool `json:"email"`
	Push        bool `json:"push"`
	NewMessage  bool `json:"newMessage"`
	Marketing   bool `json:"marketing"`
	SoundAlerts bool `json:"soundAlerts"`
}

type ChatBehaviorSettings struct {
	AutoReply        bool `json:"autoReply"`
	TypingIndicators bool `json:"typingIndicators"`
	EnterToSend      bool `json:"enterToSend"`
}

type PrivacySettings struct {
	PublicProfile bool `json:"publicProfile"`
	ShowActivity  bool `json:"showActivity"`
}

type Settings struct {
	Theme         Theme                `json:"theme"`
	NSFWEnabled   bool                 `json:"nsfwEnabled"`
	Notifications NotificationSettings `json:"notifications"`
	Chat          ChatBehaviorSettings `json:"chat"`
	Privacy       PrivacySettings      `json:"privacy"`
	LastSyncedAt  *time.Time           `json:"lastSyncedAt,omitempty"`
}

// DefaultSettings returns the fixed default bundle. The theme follows the
// environment's color-scheme preference at first run.
func DefaultSettings(prefersDark bool) Settings {
	theme := ThemeLight
	if prefersDark {
		theme = ThemeDark
	}
	return Settings{
		Theme:       theme,
		NSFWEnabled: false,
		Notifications: NotificationSettings{
			Email:      true,
			Push:       true,
			NewMessage: true,
		},
		Chat: ChatBehaviorSettings{
			AutoReply:        true,
			TypingIndicators: true,
			EnterToSend:      true,
		},
		Privacy: PrivacySettings{
			PublicProfile: true,
			ShowActivity:  true,
		},
	}
}
