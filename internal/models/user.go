package models

import "time"

type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierBasic   SubscriptionTier = "basic"
	TierPremium SubscriptionTier = "premium"
)

type User struct {
	ID                    string           `json:"id"`
	Email                 string           `json:"email"`
	Username              string           `json:"username"`
	AvatarURL             *string          `json:"avatarUrl,omitempty"`
	Tier                  SubscriptionTier `json:"subscriptionTier"`
	SubscriptionExpiresAt *time.Time       `json:"subscriptionExpiresAt,omitempty"`
	Subscription          *Subscription    `json:"subscription,omitempty"`
	EmailVerified         bool             `json:"emailVerified"`
	CreatedAt             time.Time        `json:"createdAt"`
	LastActiveAt          *time.Time       `json:"lastActiveAt,omitempty"`
	Preferences           UserPreferences  `json:"preferences"`
}

type UserPreferences struct {
	Theme       Theme `json:"theme"`
	NSFWEnabled bool  `json:"nsfwEnabled"`
}

func (u *User) GetAvatarURL() string {
	if u.AvatarURL != nil {
		return *u.AvatarURL
	}
	return ""
}

// UserPatch carries a partial user update; nil fields are left untouched.
type UserPatch struct {
	Username    *string `json:"username,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	Theme       *Theme  `json:"theme,omitempty"`
	NSFWEnabled *bool   `json:"nsfwEnabled,omitempty"`
}

// Apply merges the patch into the user.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.AvatarURL != nil {
		u.AvatarURL = p.AvatarURL
	}
	if p.Theme != nil {
		u.Preferences.Theme = *p.Theme
	}
	if p.NSFWEnabled != nil {
		u.Preferences.NSFWEnabled = *p.NSFWEnabled
	}
}
