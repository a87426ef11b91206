package repository

import (
	"context"
	"time"

	"realestate-payments/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	// Save inserts a new payment. Existing rows are never overwritten.
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// FindByPreferenceID returns the most recent payment for a checkout preference.
	FindByPreferenceID(ctx context.Context, tx Tx, preferenceID string) (*model.Payment, error)
	// FindLatestPending returns the most recently created pending payment.
	FindLatestPending(ctx context.Context, tx Tx) (*model.Payment, error)
	// UpdateStatusIfPending moves a pending payment to status and attaches the provider
	// payment id. It reports false when the row was no longer pending.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.PaymentStatus, externalPaymentID *string) (bool, error)
	// AttachExternalID records the provider payment id without changing status.
	AttachExternalID(ctx context.Context, tx Tx, id string, externalPaymentID string) error
	// ListPendingWithExternalID lists pending payments created before olderThan that
	// already carry a provider payment id.
	ListPendingWithExternalID(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
}
