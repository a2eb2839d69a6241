package models

import "time"

// UnlimitedLimit marks a plan limit without a ceiling. Quota arithmetic must
// branch on it instead of subtracting.
const UnlimitedLimit = -1

type Subscription struct {
	Tier          SubscriptionTier `json:"tier"`
	Active        bool             `json:"active"`
	StartedAt     time.Time        `json:"startedAt"`
	ExpiresAt     *time.Time       `json:"expiresAt,omitempty"`
	AutoRenew     bool             `json:"autoRenew"`
	PaymentMethod *string          `json:"paymentMethod,omitempty"`
}

type PlanLimits struct {
	ChatsPerDay      int `json:"chatsPerDay"`
	MessagesPerMonth int `json:"messagesPerMonth"`
}

type SubscriptionPlan struct {
	ID         string           `json:"id"`
	Tier       SubscriptionTier `json:"tier"`
	Name       string           `json:"name"`
	PriceCents int              `json:"priceCents"`
	Currency   string           `json:"currency"`
	Limits     PlanLimits       `json:"limits"`
	Features   []string         `json:"features"`
}

type PaymentRecord struct {
	ID          string    `json:"id"`
	PlanID      string    `json:"planId"`
	AmountCents int       `json:"amountCents"`
	Currency    string    `json:"currency"`
	Method      string    `json:"method"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UsageCounters track per-period consumption compared against plan limits.
type UsageCounters struct {
	ChatsToday        int       `json:"chatsToday"`
	MessagesThisMonth int       `json:"messagesThisMonth"`
	PeriodStart       time.Time `json:"periodStart"`
}
