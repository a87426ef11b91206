package adapter

import (
	"context"

	"realestate-payments/internal/domain/model"
)

// PaymentNotifier pushes payment status changes to interested clients so they
// don't have to wait for their next poll. Delivery is best effort.
type PaymentNotifier interface {
	NotifyPaymentStatus(ctx context.Context, p *model.Payment) error
}
