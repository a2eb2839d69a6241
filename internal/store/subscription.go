package store

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Esmakirs9082/chat-sub000/internal/apiclient"
	"github.com/Esmakirs9082/chat-sub000/internal/models"
	"github.com/Esmakirs9082/chat-sub000/internal/persist"
)

const subscriptionBlob = "chatsub.subscription"

// SubscriptionStore tracks the active subscription, the plan catalog, payment
// history, and usage counters.
type SubscriptionStore struct {
	mu           sync.RWMutex
	api          *apiclient.Client
	kv           *persist.Store
	logger       *slog.Logger
	subscription *models.Subscription
	plans        []models.SubscriptionPlan
	history      []models.PaymentRecord
	usage        models.UsageCounters
	loading      bool
	lastErr      string
}

func NewSubscriptions(ctx context.Context, api *apiclient.Client, kv *persist.Store) *SubscriptionStore {
	s := &SubscriptionStore{api: api, kv: kv, logger: slog.Default()}

	if kv != nil {
		var snap models.Subscription
		found, err := kv.Get(ctx, subscriptionBlob, &snap)
		if err != nil {
			s.logger.Warn("restoring subscription snapshot", "error", err)
		} else if found {
			s.subscription = &snap
		}
	}
	return s
}

type subscriptionState struct {
	Subscription *models.Subscription   `json:"subscription"`
	Usage        models.UsageCounters   `json:"usage"`
	History      []models.PaymentRecord `json:"history"`
}

// LoadSubscription replaces subscription, usage, and history from the server.
func (s *SubscriptionStore) LoadSubscription(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var out subscriptionState
	if err := s.api.Request(ctx, http.MethodGet, "/subscriptions/me", nil, &out); err != nil {
		s.logger.Error("loading subscription", "error", err)
		s.recordErr(err)
		return err
	}

	s.mu.Lock()
	s.subscription = out.Subscription
	s.usage = out.Usage
	s.history = out.History
	s.mu.Unlock()

	s.persistSnapshot()
	s.recordErr(nil)
	return nil
}

// LoadPlans replaces the plan catalog.
func (s *SubscriptionStore) LoadPlans(ctx context.Context) error {
	var out []models.SubscriptionPlan
	if err := s.api.Request(ctx, http.MethodGet, "/subscriptions/plans", nil, &out); err != nil {
		s.logger.Error("loading plans", "error", err)
		s.recordErr(err)
		return err
	}

	s.mu.Lock()
	s.plans = out
	s.mu.Unlock()
	s.recordErr(nil)
	return nil
}

type subscribeResponse struct {
	Subscription *models.Subscription `json:"subscription"`
	Payment      models.PaymentRecord `json:"payment"`
}

// Subscribe replaces the subscription wholesale and appends exactly one
// payment record.
func (s *SubscriptionStore) Subscribe(ctx context.Context, planID, paymentMethod string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var out subscribeResponse
	err := s.api.Request(ctx, http.MethodPost, "/subscriptions", map[string]string{
		"planId":        planID,
		"paymentMethod": paymentMethod,
	}, &out)
	if err != nil {
		s.logger.Error("subscribing", "error", err, "plan_id", planID)
		s.recordErr(err)
		return err
	}

	s.mu.Lock()
	s.subscription = out.Subscription
	s.history = append(s.history, out.Payment)
	s.mu.Unlock()

	s.persistSnapshot()
	s.recordErr(nil)
	return nil
}

// CancelSubscription flips the active and auto-renew flags; the subscription
// is otherwise left intact.
func (s *SubscriptionStore) CancelSubscription(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.api.Request(ctx, http.MethodPost, "/subscriptions/cancel", nil, nil); err != nil {
		s.logger.Error("cancelling subscription", "error", err)
		s.recordErr(err)
		return err
	}

	s.mu.Lock()
	if s.subscription != nil {
		s.subscription.Active = false
		s.subscription.AutoRenew = false
	}
	s.mu.Unlock()

	s.persistSnapshot()
	s.recordErr(nil)
	return nil
}

// IsActive derives strictly from the subscription's active flag.
func (s *SubscriptionStore) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscription != nil && s.subscription.Active
}

// IsPremium requires both the premium tier and an active subscription.
func (s *SubscriptionStore) IsPremium() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscription != nil && s.subscription.Active && s.subscription.Tier == models.TierPremium
}

// CanAccessNSFW requires an active basic or premium subscription.
func (s *SubscriptionStore) CanAccessNSFW() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.subscription == nil || !s.subscription.Active {
		return false
	}
	return s.subscription.Tier == models.TierBasic || s.subscription.Tier == models.TierPremium
}

// RemainingChats returns the remaining daily chat quota. unlimited is true
// when the plan has no ceiling; remaining is then meaningless and never
// computed by subtraction.
func (s *SubscriptionStore) RemainingChats() (remaining int, unlimited bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan := s.currentPlanLocked()
	if plan == nil || plan.Limits.ChatsPerDay == models.UnlimitedLimit {
		return 0, true
	}
	return clampRemaining(plan.Limits.ChatsPerDay, s.usage.ChatsToday), false
}

// RemainingMessages returns the remaining monthly message quota, with the same
// unlimited semantics as RemainingChats.
func (s *SubscriptionStore) RemainingMessages() (remaining int, unlimited bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan := s.currentPlanLocked()
	if plan == nil || plan.Limits.MessagesPerMonth == models.UnlimitedLimit {
		return 0, true
	}
	return clampRemaining(plan.Limits.MessagesPerMonth, s.usage.MessagesThisMonth), false
}

// CheckUsageLimits reports whether the user may keep chatting: true only when
// neither finite ceiling has been reached.
func (s *SubscriptionStore) CheckUsageLimits() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan := s.currentPlanLocked()
	if plan == nil {
		return true
	}
	if plan.Limits.ChatsPerDay != models.UnlimitedLimit && s.usage.ChatsToday >= plan.Limits.ChatsPerDay {
		return false
	}
	if plan.Limits.MessagesPerMonth != models.UnlimitedLimit && s.usage.MessagesThisMonth >= plan.Limits.MessagesPerMonth {
		return false
	}
	return true
}

func (s *SubscriptionStore) Subscription() *models.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.subscription == nil {
		return nil
	}
	snap := *s.subscription
	return &snap
}

func (s *SubscriptionStore) Plans() []models.SubscriptionPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SubscriptionPlan(nil), s.plans...)
}

func (s *SubscriptionStore) History() []models.PaymentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.PaymentRecord(nil), s.history...)
}

func (s *SubscriptionStore) Usage() models.UsageCounters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage
}

// SetUsage records fresh usage counters (e.g. delivered with a server push).
func (s *SubscriptionStore) SetUsage(u models.UsageCounters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = u
}

func (s *SubscriptionStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *SubscriptionStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// currentPlanLocked resolves the plan matching the subscription tier. A free
// tier is assumed when no subscription is held.
func (s *SubscriptionStore) currentPlanLocked() *models.SubscriptionPlan {
	tier := models.TierFree
	if s.subscription != nil {
		tier = s.subscription.Tier
	}
	for i := range s.plans {
		if s.plans[i].Tier == tier {
			return &s.plans[i]
		}
	}
	return nil
}

func clampRemaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}

func (s *SubscriptionStore) persistSnapshot() {
	if s.kv == nil {
		return
	}

	s.mu.RLock()
	sub := s.subscription
	s.mu.RUnlock()

	ctx := context.Background()
	if sub == nil {
		if err := s.kv.Delete(ctx, subscriptionBlob); err != nil {
			s.logger.Error("clearing subscription snapshot", "error", err)
		}
		return
	}
	if err := s.kv.Put(ctx, subscriptionBlob, *sub); err != nil {
		s.logger.Error("persisting subscription snapshot", "error", err)
	}
}

func (s *SubscriptionStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *SubscriptionStore) recordErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastErr = ""
		return
	}
	s.lastErr = err.Error()
}
