package store

import (
	"context"
	"database/sql"
)

// withTx runs fn inside a transaction bound to ctx. The transaction is
// committed only when fn succeeds; every other path rolls back and returns
// the connection to the pool. A cancelled ctx aborts the transaction.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
