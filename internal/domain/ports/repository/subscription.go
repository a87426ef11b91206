package repository

import (
	"context"
	"time"

	"realestate-payments/internal/domain/model"
)

type SubscriptionRepository interface {
	// LockUser serializes subscription changes of one user for the rest of tx.
	LockUser(ctx context.Context, tx Tx, userID string) error
	// CancelActiveByUser cancels every active row of the user and returns how many changed.
	CancelActiveByUser(ctx context.Context, tx Tx, userID string, at time.Time) (int64, error)
	Save(ctx context.Context, tx Tx, s *model.UserSubscription) error
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.UserSubscription, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.UserSubscription, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
