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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, plan_id, amount, currency, status, payment_method, preference_id, external_payment_id, description, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	if err := row.Scan(&p.ID, &p.UserID, &p.PlanID, &p.Amount, &p.Currency, &p.Status, &p.Method, &p.PreferenceID, &p.ExternalPaymentID, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	return p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.PlanID, p.Amount, p.Currency, string(p.Status), p.Method, p.PreferenceID, p.ExternalPaymentID, p.Description, p.CreatedAt, p.UpdatedAt)
	return mapExecErr(err)
}

// findOne runs a single-row payment query, locking the row when tx is a transaction.
func (r *paymentRepo) findOne(ctx context.Context, tx repository.Tx, where string, args ...interface{}) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments ` + where
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", args...)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	return r.findOne(ctx, tx, `WHERE id=$1`, id)
}

func (r *paymentRepo) FindByPreferenceID(ctx context.Context, tx repository.Tx, preferenceID string) (*model.Payment, error) {
	if preferenceID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return r.findOne(ctx, tx, `WHERE preference_id=$1 ORDER BY created_at DESC LIMIT 1`, preferenceID)
}

func (r *paymentRepo) FindLatestPending(ctx context.Context, tx repository.Tx) (*model.Payment, error) {
	return r.findOne(ctx, tx, `WHERE status='pending' ORDER BY created_at DESC LIMIT 1`)
}

// UpdateStatusIfPending atomically updates status only when current status is 'pending'.
func (r *paymentRepo) UpdateStatusIfPending(
	ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, externalPaymentID *string,
) (bool, error) {
	if !model.PaymentStatusPending.CanTransitionTo(status) {
		return false, domain.ErrInvalidTransition
	}
	const q = `
    UPDATE payments
       SET status = $2,
           external_payment_id = COALESCE($3, external_payment_id),
           updated_at = NOW()
     WHERE id = $1
       AND status = 'pending'`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), externalPaymentID)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *paymentRepo) AttachExternalID(ctx context.Context, tx repository.Tx, id string, externalPaymentID string) error {
	const q = `UPDATE payments SET external_payment_id=$2, updated_at=NOW() WHERE id=$1 AND external_payment_id IS DISTINCT FROM $2;`
	_, err := execSQL(ctx, r.pool, tx, q, id, externalPaymentID)
	return mapExecErr(err)
}

func (r *paymentRepo) ListPendingWithExternalID(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments
WHERE status='pending' AND external_payment_id IS NOT NULL AND created_at < $1
ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, mapReadErr(err)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapReadErr(rows.Err())
}
