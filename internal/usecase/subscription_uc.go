// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"realestate-payments/internal/domain/model"
	"realestate-payments/internal/domain/ports/repository"
	"realestate-payments/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	// Activate makes a new active subscription for paymentID and cancels whatever was
	// active for the user before. A non-nil tx is joined, otherwise a new one is opened.
	Activate(ctx context.Context, tx repository.Tx, userID, planID, paymentID string) (*model.UserSubscription, error)
	GetActive(ctx context.Context, userID string) (*model.UserSubscription, error)
	ListByUser(ctx context.Context, userID string) ([]*model.UserSubscription, error)
	// RefreshGauges recomputes the subscription status gauges.
	RefreshGauges(ctx context.Context) error
}

type subscriptionUC struct {
	subs repository.SubscriptionRepository
	tm   repository.TransactionManager
	log  zerolog.Logger
	now  func() time.Time
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, tm repository.TransactionManager, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{
		subs: subs,
		tm:   tm,
		log:  logger.With().Str("component", "SubscriptionUseCase").Logger(),
		now:  time.Now,
	}
}

func (u *subscriptionUC) Activate(ctx context.Context, tx repository.Tx, userID, planID, paymentID string) (*model.UserSubscription, error) {
	if tx != nil {
		return u.activate(ctx, tx, userID, planID, paymentID)
	}

	var out *model.UserSubscription
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		s, err := u.activate(ctx, tx, userID, planID, paymentID)
		out = s
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.IncSubscriptionActivated(out.PlanID)
	return out, nil
}

// activate: lock user -> cancel active rows -> insert the new active row.
func (u *subscriptionUC) activate(ctx context.Context, tx repository.Tx, userID, planID, paymentID string) (*model.UserSubscription, error) {
	now := u.now()
	s, err := model.NewUserSubscription(uuid.NewString(), userID, planID, paymentID, now)
	if err != nil {
		return nil, err
	}
	if err := u.subs.LockUser(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("lock user %s: %w", userID, err)
	}
	n, err := u.subs.CancelActiveByUser(ctx, tx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("cancel active subscriptions: %w", err)
	}
	if err := u.subs.Save(ctx, tx, s); err != nil {
		return nil, fmt.Errorf("insert subscription: %w", err)
	}
	if n > 0 {
		metrics.AddSubscriptionsSuperseded(n)
	}
	u.log.Info().
		Str("user_id", userID).
		Str("plan_id", planID).
		Str("payment_id", paymentID).
		Int64("superseded", n).
		Time("end_date", s.EndDate).
		Msg("subscription activated")
	return s, nil
}

func (u *subscriptionUC) GetActive(ctx context.Context, userID string) (*model.UserSubscription, error) {
	return u.subs.FindActiveByUser(ctx, nil, userID)
}

func (u *subscriptionUC) ListByUser(ctx context.Context, userID string) ([]*model.UserSubscription, error) {
	return u.subs.ListByUser(ctx, nil, userID)
}

func (u *subscriptionUC) RefreshGauges(ctx context.Context) error {
	counts, err := u.subs.CountByStatus(ctx, nil)
	if err != nil {
		return err
	}
	metrics.SetSubscriptionsTotal(counts)
	return nil
}
