package services

import (
	"context"
	"errors"

	"github.com/reactiverates/users/repositories"
)

// WithTransaction executes fn within a database transaction.
// Commits on success, rolls back on error. Repositories used with the ctx
// handed to fn join the transaction; a ctx already inside one is reused.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	if err := txMgr.InTransaction(ctx, fn); err != nil {
		var domainErr *DomainError
		if errors.As(err, &domainErr) {
			return err
		}
		return ErrTransactionFailed.Wrap(err)
	}
	return nil
}

// WithTransactionResult executes fn within a database transaction and returns its result.
// On error the zero value is returned.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) (T, error)) (T, error) {
	var result T
	err := WithTransaction(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		r, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
