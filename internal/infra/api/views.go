package api

import (
	"encoding/json"
	"time"

	"realestate-payments/internal/domain/model"
)

type paymentView struct {
	ID           string      `json:"id"`
	Status       string      `json:"status"`
	PreferenceID string      `json:"preference_id"`
	PaymentID    *string     `json:"payment_id"`
	PlanID       string      `json:"plan_id"`
	Amount       json.Number `json:"amount"`
	Currency     string      `json:"currency"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func newPaymentView(p *model.Payment) paymentView {
	return paymentView{
		ID:           p.ID,
		Status:       string(p.Status),
		PreferenceID: p.PreferenceID,
		PaymentID:    p.ExternalPaymentID,
		PlanID:       p.PlanID,
		Amount:       json.Number(p.Amount.StringFixed(2)),
		Currency:     p.Currency,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type webhookEventView struct {
	ID          string          `json:"id"`
	Provider    string          `json:"provider"`
	Topic       string          `json:"topic"`
	Action      string          `json:"action,omitempty"`
	ResourceID  string          `json:"resource_id"`
	Outcome     string          `json:"outcome"`
	Error       string          `json:"error,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	ReceivedAt  time.Time       `json:"received_at"`
	ProcessedAt *time.Time      `json:"processed_at"`
}

func newWebhookEventView(e *model.WebhookEvent) webhookEventView {
	v := webhookEventView{
		ID:          e.ID,
		Provider:    e.Provider,
		Topic:       e.Topic,
		Action:      e.Action,
		ResourceID:  e.ResourceID,
		Outcome:     string(e.Outcome),
		Error:       e.Error,
		ReceivedAt:  e.ReceivedAt,
		ProcessedAt: e.ProcessedAt,
	}
	if json.Valid(e.Payload) {
		v.Payload = e.Payload
	}
	return v
}

type subscriptionView struct {
	ID          string     `json:"id"`
	PlanID      string     `json:"plan_id"`
	PaymentID   string     `json:"payment_id"`
	Status      string     `json:"status"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func newSubscriptionView(s *model.UserSubscription) subscriptionView {
	return subscriptionView{
		ID:          s.ID,
		PlanID:      s.PlanID,
		PaymentID:   s.PaymentID,
		Status:      string(s.Status),
		StartDate:   s.StartDate,
		EndDate:     s.EndDate,
		CancelledAt: s.CancelledAt,
	}
}
