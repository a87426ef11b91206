package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"realestate-payments/internal/domain"
	"realestate-payments/internal/domain/model"
	"realestate-payments/internal/domain/ports/repository"
)

var _ repository.WebhookEventRepository = (*webhookEventRepo)(nil)

type webhookEventRepo struct{ pool *pgxpool.Pool }

func NewWebhookEventRepo(pool *pgxpool.Pool) *webhookEventRepo {
	return &webhookEventRepo{pool: pool}
}

const webhookEventColumns = `id, provider, topic, action, resource_id, payload, outcome, error, received_at, processed_at`

func scanWebhookEvent(row pgx.Row) (*model.WebhookEvent, error) {
	e := &model.WebhookEvent{}
	if err := row.Scan(&e.ID, &e.Provider, &e.Topic, &e.Action, &e.ResourceID, &e.Payload, &e.Outcome, &e.Error, &e.ReceivedAt, &e.ProcessedAt); err != nil {
		return nil, mapReadErr(err)
	}
	return e, nil
}

func (r *webhookEventRepo) Save(ctx context.Context, tx repository.Tx, e *model.WebhookEvent) error {
	const q = `INSERT INTO webhook_events (` + webhookEventColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	var payload interface{}
	if len(e.Payload) > 0 {
		payload = string(e.Payload)
	}
	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.Provider, e.Topic, e.Action, e.ResourceID, payload, string(e.Outcome), e.Error, e.ReceivedAt, e.ProcessedAt)
	return mapExecErr(err)
}

func (r *webhookEventRepo) MarkProcessed(ctx context.Context, tx repository.Tx, id string, outcome model.WebhookOutcome, errMsg string, at time.Time) error {
	const q = `UPDATE webhook_events SET outcome=$2, error=$3, processed_at=$4 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(outcome), errMsg, at)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *webhookEventRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.WebhookEvent, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+webhookEventColumns+` FROM webhook_events WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanWebhookEvent(row)
}

func (r *webhookEventRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.WebhookEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+webhookEventColumns+` FROM webhook_events ORDER BY id DESC LIMIT $1;`, limit)
	if err != nil {
		return nil, mapReadErr(err)
	}
	defer rows.Close()

	var out []*model.WebhookEvent
	for rows.Next() {
		e, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, mapReadErr(rows.Err())
}
