package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Beginner starts transactions; *pgxpool.Pool satisfies it.
type Beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// WithTx runs fn inside a transaction at the given isolation level. The
// transaction commits only when fn returns nil; errors and panics roll it back.
func WithTx(ctx context.Context, conn Beginner, iso pgx.TxIsoLevel, fn func(pgx.Tx) error) error {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: iso})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}
	return finish(ctx, tx, fn, "tx")
}

// WithSavepoint runs fn inside a pgx nested transaction of tx, which issues
// SAVEPOINT and then RELEASE or ROLLBACK TO SAVEPOINT. A failing fn undoes
// only its own writes and leaves tx usable.
func WithSavepoint(ctx context.Context, tx pgx.Tx, fn func(pgx.Tx) error) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("platform/db: savepoint: %w", err)
	}
	return finish(ctx, sp, fn, "savepoint")
}

func finish(ctx context.Context, tx pgx.Tx, fn func(pgx.Tx) error, kind string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit %s: %w", kind, err)
	}
	return nil
}
