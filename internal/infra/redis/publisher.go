package redis

import (
	"context"
	"encoding/json"
	"time"

	"realestate-payments/internal/domain/model"
	"realestate-payments/internal/domain/ports/adapter"
)

var (
	_ adapter.PaymentNotifier = (*PaymentPublisher)(nil)
	_ adapter.PaymentNotifier = NopNotifier{}
)

// PaymentStatusMessage is published on PaymentChannel(userID) after a payment settles.
type PaymentStatusMessage struct {
	PaymentID string              `json:"payment_id"`
	UserID    string              `json:"user_id"`
	PlanID    string              `json:"plan_id"`
	Status    model.PaymentStatus `json:"status"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type PaymentPublisher struct {
	client RedisClient
}

func NewPaymentPublisher(client RedisClient) *PaymentPublisher {
	return &PaymentPublisher{client: client}
}

func PaymentChannel(userID string) string {
	return "payments:" + userID
}

func (p *PaymentPublisher) NotifyPaymentStatus(ctx context.Context, payment *model.Payment) error {
	b, err := json.Marshal(PaymentStatusMessage{
		PaymentID: payment.ID,
		UserID:    payment.UserID,
		PlanID:    payment.PlanID,
		Status:    payment.Status,
		UpdatedAt: payment.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, PaymentChannel(payment.UserID), b)
}

// NopNotifier is used when redis is not configured.
type NopNotifier struct{}

func (NopNotifier) NotifyPaymentStatus(context.Context, *model.Payment) error { return nil }
