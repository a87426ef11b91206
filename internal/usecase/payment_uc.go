// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"realestate-payments/internal/domain"
	"realestate-payments/internal/domain/model"
	"realestate-payments/internal/domain/ports/adapter"
	"realestate-payments/internal/domain/ports/repository"
	"realestate-payments/internal/infra/logging"
	"realestate-payments/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// CreatePayment opens a checkout preference for the plan and stores a pending payment.
	CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error)
	// CheckPaymentStatus resolves a payment by id, then by preference id, and reconciles
	// it with the provider when it is still pending.
	CheckPaymentStatus(ctx context.Context, paymentID, preferenceID string) (*model.Payment, error)
	// Reconcile asks the provider about a pending payment and applies any final outcome.
	Reconcile(ctx context.Context, p *model.Payment) (*model.Payment, error)
	GetPayment(ctx context.Context, id string) (*model.Payment, error)
}

// PaymentOptions carries the checkout settings taken from config.
type PaymentOptions struct {
	Currency            string
	PreferenceTTL       time.Duration
	FallbackEmailDomain string
	NotificationURL     string
	BackURLs            adapter.BackURLs
	// LatestPendingFallback resolves identifier-less status checks to the newest pending
	// payment. Dev only.
	LatestPendingFallback bool
	Dev                   bool
}

type CreatePaymentInput struct {
	PlanID string
	Payer  model.Payer
}

type CreatePaymentResult struct {
	Preference *adapter.Preference
	Payment    *model.Payment
}

type paymentUC struct {
	payments    repository.PaymentRepository
	plans       repository.PlanRepository
	gateway     adapter.PreferenceGateway
	transitions *PaymentTransitioner
	opts        PaymentOptions
	log         zerolog.Logger
	now         func() time.Time
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	plans repository.PlanRepository,
	gateway adapter.PreferenceGateway,
	transitions *PaymentTransitioner,
	opts PaymentOptions,
	logger *zerolog.Logger,
) *paymentUC {
	if opts.Currency == "" {
		opts.Currency = "ARS"
	}
	if opts.PreferenceTTL <= 0 {
		opts.PreferenceTTL = 30 * time.Minute
	}
	if opts.FallbackEmailDomain == "" {
		opts.FallbackEmailDomain = "users.noreply.invalid"
	}
	return &paymentUC{
		payments:    payments,
		plans:       plans,
		gateway:     gateway,
		transitions: transitions,
		opts:        opts,
		log:         logger.With().Str("component", "PaymentUseCase").Logger(),
		now:         time.Now,
	}
}

func (u *paymentUC) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error) {
	log := logging.With(ctx, &u.log)
	defer logging.TraceDuration(log, "PaymentUseCase.CreatePayment")()

	planID := strings.TrimSpace(in.PlanID)
	if planID == "" || in.Payer.IsZero() {
		return nil, fmt.Errorf("%w: plan id and user id are required", domain.ErrInvalidArgument)
	}
	plan, err := u.plans.FindByID(ctx, nil, planID)
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", planID, err)
	}
	if !plan.Purchasable() {
		return nil, fmt.Errorf("%w: plan %s has no price or display name", domain.ErrInvalidArgument, plan.ID)
	}

	paymentID := uuid.NewString()
	now := u.now()
	email := in.Payer.ContactEmail(u.opts.FallbackEmailDomain)
	ref := model.ExternalReference{PlanID: plan.ID, UserID: in.Payer.ID, PaymentID: paymentID}

	pref, err := u.gateway.CreatePreference(ctx, adapter.PreferenceRequest{
		Items: []adapter.PreferenceItem{{
			ID:         plan.ID,
			Title:      "Plan " + plan.DisplayName,
			Quantity:   1,
			UnitPrice:  plan.Price,
			CurrencyID: u.opts.Currency,
		}},
		Payer:             adapter.PreferencePayer{Name: in.Payer.Name, Email: email},
		BackURLs:          u.opts.BackURLs,
		NotificationURL:   u.opts.NotificationURL,
		ExternalReference: ref.String(),
		ExpiresFrom:       now,
		ExpiresTo:         now.Add(u.opts.PreferenceTTL),
		IdempotencyKey:    paymentID,
	})
	if err != nil {
		log.Error().Err(err).Str("plan_id", plan.ID).Str("user_id", in.Payer.ID).Msg("create preference failed")
		return nil, fmt.Errorf("create preference: %w", err)
	}

	p, err := model.NewPayment(paymentID, in.Payer.ID, plan, u.opts.Currency, pref.ID, now)
	if err == nil {
		err = u.payments.Save(ctx, nil, p)
	}
	if err != nil {
		metrics.IncOrphanedPreference()
		log.Error().
			Err(err).
			Str("preference_id", pref.ID).
			Str("payment_id", paymentID).
			Str("payer_email", logging.Redact(email, u.opts.Dev)).
			Msg("orphaned preference: payment row not stored")
		return nil, fmt.Errorf("store payment: %w", err)
	}

	metrics.IncPayment(string(model.PaymentStatusPending))
	log.Info().
		Str("payment_id", p.ID).
		Str("preference_id", pref.ID).
		Str("plan_id", plan.ID).
		Str("amount", p.Amount.StringFixed(2)).
		Msg("payment created")
	return &CreatePaymentResult{Preference: pref, Payment: p}, nil
}

func (u *paymentUC) CheckPaymentStatus(ctx context.Context, paymentID, preferenceID string) (*model.Payment, error) {
	p, err := u.lookup(ctx, strings.TrimSpace(paymentID), strings.TrimSpace(preferenceID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncStatusCheck("poll", "not_found")
		} else {
			metrics.IncStatusCheck("poll", "error")
		}
		return nil, err
	}
	// reconciliation problems are logged; the caller still gets the stored record
	out, _ := u.reconcile(ctx, p, "poll")
	return out, nil
}

func (u *paymentUC) lookup(ctx context.Context, paymentID, preferenceID string) (*model.Payment, error) {
	if paymentID != "" {
		p, err := u.payments.FindByID(ctx, nil, paymentID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrNotFound) || preferenceID == "" {
			return nil, err
		}
	}
	if preferenceID != "" {
		return u.payments.FindByPreferenceID(ctx, nil, preferenceID)
	}
	if u.opts.LatestPendingFallback {
		u.log.Warn().Msg("status check without identifiers; using latest pending payment")
		return u.payments.FindLatestPending(ctx, nil)
	}
	return nil, fmt.Errorf("%w: paymentId or preferenceId is required", domain.ErrInvalidArgument)
}

func (u *paymentUC) Reconcile(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	return u.reconcile(ctx, p, "reconciler")
}

func (u *paymentUC) reconcile(ctx context.Context, p *model.Payment, source string) (*model.Payment, error) {
	if p.Status.IsTerminal() || p.ExternalPaymentID == nil || *p.ExternalPaymentID == "" {
		metrics.IncStatusCheck(source, "found")
		return p, nil
	}

	log := logging.With(logging.WithPaymentID(ctx, p.ID), &u.log)
	pp, err := u.gateway.GetPayment(ctx, *p.ExternalPaymentID)
	if err != nil {
		metrics.IncStatusCheck(source, "error")
		log.Warn().Err(err).Str("external_payment_id", *p.ExternalPaymentID).Msg("provider lookup failed during reconciliation")
		return p, err
	}
	if model.PaymentStatusFromProvider(pp.Status) == p.Status {
		metrics.IncStatusCheck(source, "found")
		return p, nil
	}

	res, err := u.transitions.Apply(ctx, p.ID, pp)
	if err != nil {
		metrics.IncStatusCheck(source, "error")
		log.Error().Err(err).Msg("apply reconciled status failed")
		return p, err
	}
	metrics.IncStatusCheck(source, "reconciled")
	return res.Payment, nil
}

func (u *paymentUC) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.payments.FindByID(ctx, nil, id)
}
