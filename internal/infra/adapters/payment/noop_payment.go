package payment

import (
	"context"
	"fmt"
	"sync"

	"realestate-payments/internal/domain"
	"realestate-payments/internal/domain/ports/adapter"
)

var _ adapter.PreferenceGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory provider for dev mode and tests.
type NoopPaymentGateway struct {
	mu          sync.Mutex
	seq         int64
	preferences map[string]adapter.PreferenceRequest
	payments    map[string]*adapter.ProviderPayment
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{
		preferences: make(map[string]adapter.PreferenceRequest),
		payments:    make(map[string]*adapter.ProviderPayment),
	}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) next(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

func (g *NoopPaymentGateway) CreatePreference(ctx context.Context, req adapter.PreferenceRequest) (*adapter.Preference, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next("noop-pref")
	g.preferences[id] = req
	return &adapter.Preference{
		ID:               id,
		InitPoint:        "https://example.test/checkout/" + id,
		SandboxInitPoint: "https://sandbox.example.test/checkout/" + id,
	}, nil
}

func (g *NoopPaymentGateway) GetPayment(ctx context.Context, paymentID string) (*adapter.ProviderPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("noop payment %s: %w", paymentID, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// SetPaymentStatus simulates a checkout attempt against preferenceID and returns the provider payment id.
// Calling it again with the returned id updates that payment.
func (g *NoopPaymentGateway) SetPaymentStatus(preferenceID, paymentID, status string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	req, ok := g.preferences[preferenceID]
	if !ok {
		return "", fmt.Errorf("noop preference %s: %w", preferenceID, domain.ErrNotFound)
	}
	if paymentID == "" {
		paymentID = g.next("noop-pay")
	}
	p := &adapter.ProviderPayment{
		ID:                paymentID,
		Status:            status,
		PreferenceID:      preferenceID,
		ExternalReference: req.ExternalReference,
	}
	if len(req.Items) > 0 {
		p.TransactionAmount = req.Items[0].UnitPrice
		p.CurrencyID = req.Items[0].CurrencyID
	}
	g.payments[paymentID] = p
	return paymentID, nil
}
