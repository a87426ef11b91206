package adapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PreferenceItem is one checkout line item.
type PreferenceItem struct {
	ID         string
	Title      string
	Quantity   int
	UnitPrice  decimal.Decimal
	CurrencyID string
}

type PreferencePayer struct {
	Name  string
	Email string
}

// BackURLs are the browser redirects after the hosted checkout finishes.
type BackURLs struct {
	Success string
	Failure string
	Pending string
}

// PreferenceRequest describes a hosted checkout session.
type PreferenceRequest struct {
	Items             []PreferenceItem
	Payer             PreferencePayer
	BackURLs          BackURLs
	NotificationURL   string
	ExternalReference string
	ExpiresFrom       time.Time
	ExpiresTo         time.Time
	// IdempotencyKey lets the provider collapse retried creations into one preference.
	IdempotencyKey string
}

// Preference is the provider's answer to a PreferenceRequest.
type Preference struct {
	ID               string
	InitPoint        string
	SandboxInitPoint string
}

// ProviderPayment is the provider's view of a checkout attempt.
type ProviderPayment struct {
	ID                string
	Status            string // raw provider status, see model.PaymentStatusFromProvider
	StatusDetail      string
	PreferenceID      string
	ExternalReference string
	TransactionAmount decimal.Decimal
	CurrencyID        string
}

// PreferenceGateway is the hex port for the hosted-checkout provider.
type PreferenceGateway interface {
	Name() string

	// CreatePreference opens a hosted checkout session.
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
	// GetPayment fetches the provider's current view of a payment.
	GetPayment(ctx context.Context, paymentID string) (*ProviderPayment, error)
}

// NotificationVerifier authenticates provider webhook deliveries.
type NotificationVerifier interface {
	VerifyNotification(signatureHeader, requestID, dataID string) error
}
