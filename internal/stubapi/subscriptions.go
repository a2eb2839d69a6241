package stubapi

import (
	"net/http"
	"time"

	"github.com/Esmakirs9082/chat-sub000/internal/ids"
	"github.com/Esmakirs9082/chat-sub000/internal/models"
)

type subscribeRequest struct {
	PlanID        string `json:"planId" validate:"required"`
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

type subscriptionState struct {
	Subscription *models.Subscription   `json:"subscription"`
	Usage        models.UsageCounters   `json:"usage"`
	History      []models.PaymentRecord `json:"history"`
}

type subscribeResponse struct {
	Subscription *models.Subscription `json:"subscription"`
	Payment      models.PaymentRecord `json:"payment"`
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	s.state.mu.Lock()
	var sub *models.Subscription
	if stored, ok := s.state.subscriptions[userID]; ok {
		snap := *stored
		sub = &snap
	}
	out := subscriptionState{
		Subscription: sub,
		Usage:        s.state.usage[userID],
		History:      append([]models.PaymentRecord(nil), s.state.payments[userID]...),
	}
	s.state.mu.Unlock()

	writeData(w, http.StatusOK, out)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	plans := append([]models.SubscriptionPlan(nil), s.state.plans...)
	s.state.mu.Unlock()

	writeData(w, http.StatusOK, plans)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	userID := requestUserID(r)

	s.state.mu.Lock()
	var plan *models.SubscriptionPlan
	for i := range s.state.plans {
		if s.state.plans[i].ID == req.PlanID {
			plan = &s.state.plans[i]
			break
		}
	}
	if plan == nil {
		s.state.mu.Unlock()
		notFound(w, "Plan not found")
		return
	}

	paymentID, err := ids.New("pay")
	if err != nil {
		s.state.mu.Unlock()
		internalError(w)
		return
	}

	now := time.Now().UTC()
	sub := &models.Subscription{
		Tier:          plan.Tier,
		Active:        true,
		StartedAt:     now,
		AutoRenew:     true,
		PaymentMethod: &req.PaymentMethod,
	}
	payment := models.PaymentRecord{
		ID:          paymentID,
		PlanID:      plan.ID,
		AmountCents: plan.PriceCents,
		Currency:    plan.Currency,
		Method:      req.PaymentMethod,
		CreatedAt:   now,
	}
	s.state.subscriptions[userID] = sub
	s.state.payments[userID] = append(s.state.payments[userID], payment)
	snap := *sub
	s.state.mu.Unlock()

	writeData(w, http.StatusOK, subscribeResponse{Subscription: &snap, Payment: payment})
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	s.state.mu.Lock()
	sub, ok := s.state.subscriptions[userID]
	if !ok {
		s.state.mu.Unlock()
		notFound(w, "No active subscription")
		return
	}
	sub.Active = false
	sub.AutoRenew = false
	s.state.mu.Unlock()

	writeData(w, http.StatusOK, nil)
}
