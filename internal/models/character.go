package models

import "time"

// PersonalityTrait is one entry of a character's ordered trait list.
type PersonalityTrait struct {
	Trait string `json:"trait"`
	Value int    `json:"value"`
}

type Character struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	AvatarURL     *string            `json:"avatarUrl,omitempty"`
	Personality   []PersonalityTrait `json:"personality"`
	IsNSFW        bool               `json:"isNsfw"`
	IsPublic      bool               `json:"isPublic"`
	CreatorID     string             `json:"creatorId"`
	Tags          []string           `json:"tags"`
	MessageCount  int                `json:"messageCount"`
	FavoriteCount int                `json:"favoriteCount"`
	CreatedAt     time.Time          `json:"createdAt"`
	LastUsedAt    *time.Time         `json:"lastUsedAt,omitempty"`
}

// HasAnyTag reports whether the character carries at least one of the given tags.
func (c *Character) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range c.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// CharacterPatch carries a partial character update; nil fields are left untouched.
type CharacterPatch struct {
	Name        *string             `json:"name,omitempty"`
	Description *string             `json:"description,omitempty"`
	AvatarURL   *string             `json:"avatarUrl,omitempty"`
	Personality *[]PersonalityTrait `json:"personality,omitempty"`
	IsNSFW      *bool               `json:"isNsfw,omitempty"`
	IsPublic    *bool               `json:"isPublic,omitempty"`
	Tags        *[]string           `json:"tags,omitempty"`
}

func (p CharacterPatch) Apply(c *Character) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.AvatarURL != nil {
		c.AvatarURL = p.AvatarURL
	}
	if p.Personality != nil {
		c.Personality = *p.Personality
	}
	if p.IsNSFW != nil {
		c.IsNSFW = *p.IsNSFW
	}
	if p.IsPublic != nil {
		c.IsPublic = *p.IsPublic
	}
	if p.Tags != nil {
		c.Tags = *p.Tags
	}
}
