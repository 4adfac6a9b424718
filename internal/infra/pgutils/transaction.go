package pgutils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repos react to.
const (
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeUniqueViolation      = "23505"
)

// TxFunc is the body of a transaction.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// InTx runs fn in one transaction opened with opts (nil means driver
// defaults). A nil return commits; anything else rolls back.
func InTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	err = fn(ctx, tx)
	if err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}

		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// InTxRetry is InTx repeated up to attempts times while the failure is
// retryable. The context is checked between attempts.
func InTxRetry(ctx context.Context, db *sql.DB, attempts int, opts *sql.TxOptions, fn TxFunc) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for range attempts {
		err = InTx(ctx, db, opts, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}

		if ctx.Err() != nil {
			return errors.Join(err, ctx.Err())
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", attempts, err)
}

// Code returns the SQLSTATE carried by err, or "" when err did not come
// from the server.
func Code(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}

// IsRetryable reports a serialization failure or deadlock; rerunning the
// same transaction may succeed.
func IsRetryable(err error) bool {
	switch Code(err) {
	case CodeSerializationFailure, CodeDeadlockDetected:
		return true
	default:
		return false
	}
}

// IsUniqueViolation reports a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return Code(err) == CodeUniqueViolation
}
