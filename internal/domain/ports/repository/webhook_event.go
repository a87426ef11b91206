package repository

import (
	"context"
	"time"

	"realestate-payments/internal/domain/model"
)

type WebhookEventRepository interface {
	Save(ctx context.Context, tx Tx, e *model.WebhookEvent) error
	MarkProcessed(ctx context.Context, tx Tx, id string, outcome model.WebhookOutcome, errMsg string, at time.Time) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.WebhookEvent, error)
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.WebhookEvent, error)
}
