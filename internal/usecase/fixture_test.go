//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"realestate-payments/internal/domain/model"
	"realestate-payments/internal/domain/ports/adapter"
	"realestate-payments/internal/usecase"
)

var testBackURLs = adapter.BackURLs{
	Success: "https://api.test/payments/success",
	Failure: "https://api.test/payments/failure",
	Pending: "https://api.test/payments/pending",
}

func testPlans() []*model.Plan {
	five, twenty := 5, 20
	return []*model.Plan{
		{ID: "1", Name: "basico", DisplayName: "Básico", Price: decimal.RequireFromString("29.90"), MaxAds: &five},
		{ID: "2", Name: "premium", DisplayName: "Premium", Price: decimal.RequireFromString("49.90"), MaxAds: &twenty},
		{ID: "3", Name: "ilimitado", DisplayName: "Ilimitado", Price: decimal.RequireFromString("99.90")},
	}
}

// fixture wires the real use cases over in-memory mocks.
type fixture struct {
	payments *MockPaymentRepo
	plans    *MockPlanRepo
	subs     *MockSubscriptionRepo
	events   *MockWebhookEventRepo
	gateway  *MockGateway
	notifier *MockNotifier
	tm       *MockTxManager

	subUC       usecase.SubscriptionUseCase
	transitions *usecase.PaymentTransitioner
	paymentUC   usecase.PaymentUseCase
	webhookUC   usecase.WebhookUseCase
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	paymentOpts usecase.PaymentOptions
	verifier    adapter.NotificationVerifier
	locker      adapter.Locker
}

func withLatestPendingFallback() fixtureOption {
	return func(c *fixtureConfig) { c.paymentOpts.LatestPendingFallback = true }
}

func withVerifier(v adapter.NotificationVerifier) fixtureOption {
	return func(c *fixtureConfig) { c.verifier = v }
}

func withLocker(l adapter.Locker) fixtureOption {
	return func(c *fixtureConfig) { c.locker = l }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{paymentOpts: usecase.PaymentOptions{
		Currency:            "ARS",
		PreferenceTTL:       30 * time.Minute,
		FallbackEmailDomain: "users.test",
		NotificationURL:     "https://api.test/webhook/mercadopago",
		BackURLs:            testBackURLs,
	}}
	for _, o := range opts {
		o(&cfg)
	}

	logger := newTestLogger()
	f := &fixture{
		payments: NewMockPaymentRepo(),
		plans:    NewMockPlanRepo(testPlans()...),
		subs:     NewMockSubscriptionRepo(),
		events:   NewMockWebhookEventRepo(),
		gateway:  NewMockGateway(),
		notifier: &MockNotifier{},
	}
	f.tm = NewMockTxManager(f.payments, f.subs)
	f.subUC = usecase.NewSubscriptionUseCase(f.subs, f.tm, logger)
	f.transitions = usecase.NewPaymentTransitioner(f.payments, f.subUC, f.tm, f.notifier, logger)
	f.paymentUC = usecase.NewPaymentUseCase(f.payments, f.plans, f.gateway, f.transitions, cfg.paymentOpts, logger)
	f.webhookUC = usecase.NewWebhookUseCase(f.events, f.payments, f.gateway, cfg.verifier, cfg.locker, f.transitions,
		usecase.WebhookOptions{LockTTL: time.Second}, logger)
	return f
}

// createPayment runs the real checkout flow and returns the stored payment.
func (f *fixture) createPayment(t *testing.T, planID, userID string) *usecase.CreatePaymentResult {
	t.Helper()
	res, err := f.paymentUC.CreatePayment(context.Background(), usecase.CreatePaymentInput{
		PlanID: planID,
		Payer:  model.Payer{ID: userID, Email: userID + "@example.com"},
	})
	if err != nil {
		t.Fatalf("createPayment failed: %v", err)
	}
	return res
}

// providerReports makes the gateway report status for a checkout of p under providerID.
func (f *fixture) providerReports(p *model.Payment, providerID, status string) {
	ref := model.ExternalReference{PlanID: p.PlanID, UserID: p.UserID, PaymentID: p.ID}
	f.gateway.SetPayment(&adapter.ProviderPayment{
		ID:                providerID,
		Status:            status,
		PreferenceID:      p.PreferenceID,
		ExternalReference: ref.String(),
		TransactionAmount: p.Amount,
		CurrencyID:        p.Currency,
	})
}

func paymentWebhook(id string) usecase.WebhookNotification {
	return usecase.WebhookNotification{
		Topic:      "payment",
		Action:     "payment.updated",
		ResourceID: id,
		Payload:    []byte(`{"type":"payment","action":"payment.updated","data":{"id":"` + id + `"}}`),
	}
}
