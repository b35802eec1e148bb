package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// txBeginner is satisfied by *pgxpool.Pool.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TransactionManager manages database transactions.
type TransactionManager struct {
	pool    txBeginner
	backoff time.Duration
}

// NewTransactionManager creates a new transaction manager.
func NewTransactionManager(pool txBeginner) *TransactionManager {
	return &TransactionManager{
		pool:    pool,
		backoff: 10 * time.Millisecond,
	}
}

// WithTransaction executes fn within a database transaction. The transaction
// is committed when fn returns nil and rolled back otherwise.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	tx, err := tm.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			return fmt.Errorf("failed to rollback transaction after error %w: %w", err, rollbackErr)
		}
		return err
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("failed to commit transaction: %w", commitErr)
	}

	return nil
}

// WithTransactionRetry runs WithTransaction, retrying up to maxRetries times
// on deadlocks and serialization failures.
func (tm *TransactionManager) WithTransactionRetry(
	ctx context.Context,
	maxRetries int,
	fn func(context.Context, pgx.Tx) error,
) error {
	for attempt := 0; ; attempt++ {
		err := tm.WithTransaction(ctx, fn)
		if err == nil || !isRetryableError(err) || attempt >= maxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tm.backoff * time.Duration(attempt+1)):
		}
	}
}

// isRetryableError checks if an error indicates a condition that might be resolved by retrying.
func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgDeadlockDetected || pgErr.Code == pgSerializationFailure
}
