package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"realestate-payments/internal/domain/model"
	"realestate-payments/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var p model.Plan
	if err := row.Scan(&p.ID, &p.Name, &p.DisplayName, &p.Price, &p.MaxAds, &p.CreatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	return &p, nil
}

// Save upserts reference data; it is used by the seeder only.
func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	const sql = `
INSERT INTO plans (id, name, display_name, price, max_ads, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
  SET name         = EXCLUDED.name,
      display_name = EXCLUDED.display_name,
      price        = EXCLUDED.price,
      max_ads      = EXCLUDED.max_ads;
`
	_, err := execSQL(ctx, r.pool, tx, sql, plan.ID, plan.Name, plan.DisplayName, plan.Price, plan.MaxAds, plan.CreatedAt)
	return mapExecErr(err)
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	const sql = `
SELECT id, name, display_name, price, max_ads, created_at
  FROM plans
 WHERE id = $1;
`
	row, err := pickRow(ctx, r.pool, tx, sql, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *PostgresPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	const sql = `
SELECT id, name, display_name, price, max_ads, created_at
  FROM plans
 ORDER BY price ASC;
`
	rows, err := queryRows(ctx, r.pool, tx, sql)
	if err != nil {
		return nil, mapReadErr(err)
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapReadErr(rows.Err())
}
