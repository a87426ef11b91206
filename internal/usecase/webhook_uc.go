// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"realestate-payments/internal/domain"
	"realestate-payments/internal/domain/model"
	"realestate-payments/internal/domain/ports/adapter"
	"realestate-payments/internal/domain/ports/repository"
	"realestate-payments/internal/infra/metrics"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

type WebhookUseCase interface {
	// HandleNotification journals a provider delivery and applies it.
	HandleNotification(ctx context.Context, n WebhookNotification) (*WebhookResult, error)
	// Replay re-runs a journaled event. The signature is not checked again.
	Replay(ctx context.Context, eventID string) (*WebhookResult, error)
	ListEvents(ctx context.Context, limit int) ([]*model.WebhookEvent, error)
}

// WebhookNotification is a decoded provider delivery.
type WebhookNotification struct {
	Topic      string // "payment", "merchant_order", ...
	Action     string // "payment.created", "payment.updated", ...
	ResourceID string // data.id
	Payload    []byte // raw JSON, may be nil
	Signature  string // x-signature header
	RequestID  string // x-request-id header
}

type WebhookResult struct {
	EventID          string
	ResourceID       string
	Outcome          model.WebhookOutcome
	Payment          *model.Payment
	AlreadyProcessed bool
}

// WebhookOptions configures the ingestor.
type WebhookOptions struct {
	Provider string
	LockTTL  time.Duration
}

type webhookUC struct {
	events      repository.WebhookEventRepository
	payments    repository.PaymentRepository
	gateway     adapter.PreferenceGateway
	verifier    adapter.NotificationVerifier
	locker      adapter.Locker
	transitions *PaymentTransitioner
	opts        WebhookOptions
	log         zerolog.Logger
	now         func() time.Time
}

// NewWebhookUseCase accepts a nil verifier (no signature check) and a nil locker (no
// cross-instance serialization).
func NewWebhookUseCase(
	events repository.WebhookEventRepository,
	payments repository.PaymentRepository,
	gateway adapter.PreferenceGateway,
	verifier adapter.NotificationVerifier,
	locker adapter.Locker,
	transitions *PaymentTransitioner,
	opts WebhookOptions,
	logger *zerolog.Logger,
) *webhookUC {
	if opts.Provider == "" {
		opts.Provider = gateway.Name()
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	return &webhookUC{
		events:      events,
		payments:    payments,
		gateway:     gateway,
		verifier:    verifier,
		locker:      locker,
		transitions: transitions,
		opts:        opts,
		log:         logger.With().Str("component", "WebhookUseCase").Logger(),
		now:         time.Now,
	}
}

func (u *webhookUC) HandleNotification(ctx context.Context, n WebhookNotification) (*WebhookResult, error) {
	n.ResourceID = strings.TrimSpace(n.ResourceID)
	if n.ResourceID == "" && IsPaymentEvent(n.Topic, n.Action) {
		return nil, fmt.Errorf("%w: payment notification without resource id", domain.ErrInvalidArgument)
	}
	if u.verifier != nil {
		if err := u.verifier.VerifyNotification(n.Signature, n.RequestID, n.ResourceID); err != nil {
			metrics.IncWebhookSignatureFailure()
			u.log.Warn().Err(err).Str("resource_id", n.ResourceID).Msg("rejected webhook signature")
			return nil, err
		}
	}

	ev := model.NewWebhookEvent(u.opts.Provider, n.Topic, n.Action, n.ResourceID, n.Payload, u.now())
	if err := u.events.Save(ctx, nil, ev); err != nil {
		return nil, fmt.Errorf("journal webhook: %w", err)
	}
	return u.run(ctx, ev)
}

func (u *webhookUC) Replay(ctx context.Context, eventID string) (*WebhookResult, error) {
	ev, err := u.events.FindByID(ctx, nil, eventID)
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("event_id", ev.ID).Str("resource_id", ev.ResourceID).Msg("replaying webhook event")
	return u.run(ctx, ev)
}

func (u *webhookUC) ListEvents(ctx context.Context, limit int) ([]*model.WebhookEvent, error) {
	return u.events.ListRecent(ctx, nil, limit)
}

// run processes ev and records the outcome in the journal.
func (u *webhookUC) run(ctx context.Context, ev *model.WebhookEvent) (*WebhookResult, error) {
	start := time.Now()
	res, err := u.process(ctx, ev)
	res.EventID = ev.ID
	res.ResourceID = ev.ResourceID

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	if mErr := u.events.MarkProcessed(ctx, nil, ev.ID, res.Outcome, errMsg, u.now()); mErr != nil {
		u.log.Warn().Err(mErr).Str("event_id", ev.ID).Msg("failed to record webhook outcome")
	}
	metrics.ObserveWebhook(ev.Topic, string(res.Outcome), time.Since(start))

	l := u.log.Info()
	if err != nil {
		l = u.log.Warn().Err(err)
	}
	l.Str("event_id", ev.ID).
		Str("topic", ev.Topic).
		Str("resource_id", ev.ResourceID).
		Str("outcome", string(res.Outcome)).
		Msg("webhook handled")
	return res, err
}

func (u *webhookUC) process(ctx context.Context, ev *model.WebhookEvent) (*WebhookResult, error) {
	res := &WebhookResult{Outcome: model.WebhookOutcomeFailed}
	if !IsPaymentEvent(ev.Topic, ev.Action) {
		res.Outcome = model.WebhookOutcomeIgnored
		return res, nil
	}

	if u.locker != nil {
		key := webhookLockKey(ev.ResourceID)
		token, err := u.locker.TryLock(ctx, key, u.opts.LockTTL)
		switch {
		case errors.Is(err, domain.ErrLocked):
			return res, err
		case err != nil:
			// without redis the row lock still keeps transitions single-winner
			u.log.Warn().Err(err).Str("key", key).Msg("webhook lock unavailable; continuing")
		default:
			defer func() {
				if err := u.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					u.log.Warn().Err(err).Str("key", key).Msg("webhook unlock failed")
				}
			}()
		}
	}

	pp, err := u.gateway.GetPayment(ctx, ev.ResourceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			res.Outcome = model.WebhookOutcomeNotFound
		}
		return res, fmt.Errorf("fetch provider payment %s: %w", ev.ResourceID, err)
	}

	p, err := u.resolve(ctx, pp)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			res.Outcome = model.WebhookOutcomeNotFound
		}
		return res, err
	}
	res.Payment = p
	if p.Status.IsTerminal() {
		res.Outcome = model.WebhookOutcomeAlreadyProcessed
		res.AlreadyProcessed = true
		return res, nil
	}

	tr, err := u.transitions.Apply(ctx, p.ID, pp)
	if err != nil {
		return res, err
	}
	res.Payment = tr.Payment
	if tr.AlreadyFinal {
		res.Outcome = model.WebhookOutcomeAlreadyProcessed
		res.AlreadyProcessed = true
		return res, nil
	}
	res.Outcome = model.WebhookOutcomeProcessed
	return res, nil
}

// resolve finds the local payment by preference id, falling back to the payment id
// carried in the external reference.
func (u *webhookUC) resolve(ctx context.Context, pp *adapter.ProviderPayment) (*model.Payment, error) {
	if pp.PreferenceID != "" {
		p, err := u.payments.FindByPreferenceID(ctx, nil, pp.PreferenceID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	ref, err := model.ParseExternalReference(pp.ExternalReference)
	if err != nil {
		return nil, fmt.Errorf("no local payment for provider payment %s: %w", pp.ID, domain.ErrNotFound)
	}
	return u.payments.FindByID(ctx, nil, ref.PaymentID)
}

// IsPaymentEvent reports whether a delivery refers to a payment resource.
func IsPaymentEvent(topic, action string) bool {
	return strings.EqualFold(topic, "payment") || strings.HasPrefix(strings.ToLower(action), "payment.")
}

func webhookLockKey(resourceID string) string {
	return "lock:webhook:" + resourceID
}
