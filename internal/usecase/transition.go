// File: internal/usecase/transition.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"realestate-payments/internal/domain/model"
	"realestate-payments/internal/domain/ports/adapter"
	"realestate-payments/internal/domain/ports/repository"
	"realestate-payments/internal/infra/metrics"
)

// TransitionResult describes what Apply did to a payment.
type TransitionResult struct {
	Payment      *model.Payment
	Applied      bool // status moved out of pending in this call
	AlreadyFinal bool // someone else resolved the payment first
	Subscription *model.UserSubscription
}

// PaymentTransitioner is the single place where a provider outcome is written to a
// payment. Webhooks, status polls and the reconciler all go through Apply.
type PaymentTransitioner struct {
	payments repository.PaymentRepository
	subs     SubscriptionUseCase
	tm       repository.TransactionManager
	notifier adapter.PaymentNotifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewPaymentTransitioner(
	payments repository.PaymentRepository,
	subs SubscriptionUseCase,
	tm repository.TransactionManager,
	notifier adapter.PaymentNotifier,
	logger *zerolog.Logger,
) *PaymentTransitioner {
	return &PaymentTransitioner{
		payments: payments,
		subs:     subs,
		tm:       tm,
		notifier: notifier,
		log:      logger.With().Str("component", "PaymentTransitioner").Logger(),
		now:      time.Now,
	}
}

// Apply locks the payment row, moves it out of pending when the provider reports a final
// status and activates the subscription for approvals, all in one transaction. Only the
// caller whose conditional update wins sees Applied=true.
func (t *PaymentTransitioner) Apply(ctx context.Context, paymentID string, pp *adapter.ProviderPayment) (*TransitionResult, error) {
	if pp == nil {
		return nil, errors.New("transition: nil provider payment")
	}
	res := &TransitionResult{}
	next := model.PaymentStatusFromProvider(pp.Status)

	err := t.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := t.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		res.Payment = p
		if p.Status.IsTerminal() {
			res.AlreadyFinal = true
			return nil
		}

		ext := pp.ID
		if next == model.PaymentStatusPending {
			if ext != "" && (p.ExternalPaymentID == nil || *p.ExternalPaymentID != ext) {
				if err := t.payments.AttachExternalID(ctx, tx, p.ID, ext); err != nil {
					return fmt.Errorf("attach external id: %w", err)
				}
				p.ExternalPaymentID = &ext
			}
			return nil
		}

		if !pp.TransactionAmount.IsZero() && !pp.TransactionAmount.Equal(p.Amount) {
			t.log.Warn().
				Str("payment_id", p.ID).
				Str("expected", p.Amount.String()).
				Str("provider", pp.TransactionAmount.String()).
				Msg("provider amount differs from stored amount")
		}

		var extPtr *string
		if ext != "" {
			extPtr = &ext
		}
		won, err := t.payments.UpdateStatusIfPending(ctx, tx, p.ID, next, extPtr)
		if err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}
		if !won {
			res.AlreadyFinal = true
			return nil
		}
		p.Status = next
		if extPtr != nil {
			p.ExternalPaymentID = extPtr
		}
		p.UpdatedAt = t.now()
		res.Applied = true

		if next != model.PaymentStatusApproved {
			return nil
		}
		sub, err := t.subs.Activate(ctx, tx, p.UserID, p.PlanID, p.ID)
		if err != nil {
			return fmt.Errorf("activate subscription: %w", err)
		}
		res.Subscription = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Applied {
		t.afterCommit(ctx, res)
	}
	return res, nil
}

func (t *PaymentTransitioner) afterCommit(ctx context.Context, res *TransitionResult) {
	p := res.Payment
	metrics.IncPayment(string(p.Status))
	if p.Status == model.PaymentStatusApproved {
		metrics.AddPaymentRevenue(p.Currency, p.Amount)
	}
	if res.Subscription != nil {
		metrics.IncSubscriptionActivated(res.Subscription.PlanID)
	}
	t.log.Info().
		Str("payment_id", p.ID).
		Str("user_id", p.UserID).
		Str("status", string(p.Status)).
		Bool("subscription_activated", res.Subscription != nil).
		Msg("payment resolved")

	if t.notifier == nil {
		return
	}
	if err := t.notifier.NotifyPaymentStatus(ctx, p); err != nil {
		t.log.Warn().Err(err).Str("payment_id", p.ID).Msg("publish payment status failed")
	}
}
