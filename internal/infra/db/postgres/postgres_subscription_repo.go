package postgres

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"realestate-payments/internal/domain"
	"realestate-payments/internal/domain/model"
	"realestate-payments/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan_id, payment_id, status, start_date, end_date, cancelled_at, created_at`

func scanSubscription(row pgx.Row) (*model.UserSubscription, error) {
	s := &model.UserSubscription{}
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.PaymentID, &s.Status, &s.StartDate, &s.EndDate, &s.CancelledAt, &s.CreatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	return s, nil
}

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

// LockUser takes a transaction-scoped advisory lock keyed by the user id.
func (r *subscriptionRepo) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	if !inTx(tx) {
		return domain.ErrInvalidExecContext
	}
	_, err := execSQL(ctx, r.pool, tx, `SELECT pg_advisory_xact_lock($1)`, hashToInt64("subscription:"+userID))
	return mapExecErr(err)
}

func (r *subscriptionRepo) CancelActiveByUser(ctx context.Context, tx repository.Tx, userID string, at time.Time) (int64, error) {
	const q = `
UPDATE user_subscriptions
   SET status = 'cancelled', cancelled_at = $2
 WHERE user_id = $1 AND status = 'active';`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, at)
	if err != nil {
		return 0, mapExecErr(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.UserSubscription) error {
	const q = `
INSERT INTO user_subscriptions (` + subscriptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  cancelled_at = EXCLUDED.cancelled_at;`
	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, s.PlanID, s.PaymentID, string(s.Status), s.StartDate, s.EndDate, s.CancelledAt, s.CreatedAt)
	return mapExecErr(err)
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.UserSubscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM user_subscriptions WHERE user_id=$1 AND status='active'`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", userID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.UserSubscription, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM user_subscriptions WHERE user_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, mapReadErr(err)
	}
	defer rows.Close()

	var out []*model.UserSubscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, mapReadErr(rows.Err())
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM user_subscriptions GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapReadErr(err)
	}
	defer rows.Close()

	out := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, mapReadErr(err)
		}
		out[model.SubscriptionStatus(status)] = n
	}
	return out, mapReadErr(rows.Err())
}
