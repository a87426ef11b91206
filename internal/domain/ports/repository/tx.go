package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an infra-defined transaction handle (pgx.Tx for Postgres). Repositories
// accept nil and then run outside any transaction.
type Tx interface{}

// TransactionManager runs fn inside one database transaction and passes the
// handle through tx. fn returning an error rolls everything back.
//
// USAGE
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		p, err := payments.FindByID(ctx, tx, id) // row is locked FOR UPDATE
//		...
//		return err
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
