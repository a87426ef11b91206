package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type WebhookOutcome string

const (
	WebhookOutcomeReceived         WebhookOutcome = "received"
	WebhookOutcomeIgnored          WebhookOutcome = "ignored"
	WebhookOutcomeProcessed        WebhookOutcome = "processed"
	WebhookOutcomeAlreadyProcessed WebhookOutcome = "already_processed"
	WebhookOutcomeNotFound         WebhookOutcome = "not_found"
	WebhookOutcomeFailed           WebhookOutcome = "failed"
)

// WebhookEvent is the journal entry of one provider notification delivery.
type WebhookEvent struct {
	ID          string // ULID, sortable by arrival
	Provider    string
	Topic       string // "payment", "merchant_order", ...
	Action      string // "payment.created", "payment.updated", ...
	ResourceID  string // provider payment id
	Payload     []byte // raw JSON body
	Outcome     WebhookOutcome
	Error       string
	ReceivedAt  time.Time
	ProcessedAt *time.Time
}

// NewWebhookEvent stamps a new journal entry with a ULID derived from now.
func NewWebhookEvent(provider, topic, action, resourceID string, payload []byte, now time.Time) *WebhookEvent {
	return &WebhookEvent{
		ID:         ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Provider:   provider,
		Topic:      topic,
		Action:     action,
		ResourceID: resourceID,
		Payload:    payload,
		Outcome:    WebhookOutcomeReceived,
		ReceivedAt: now,
	}
}
