package services

import (
	"context"

	"github.com/upb/erp-backend/repositories"
)

// InTenantTransaction runs fn in a transaction scoped to tenantID. The
// context passed to fn carries the transaction, so repository calls made
// with it join the transaction. A nil txMgr runs fn directly.
func InTenantTransaction(ctx context.Context, txMgr repositories.TransactionManager, tenantID string, fn func(ctx context.Context) error) error {
	if txMgr == nil {
		return fn(ctx)
	}
	return txMgr.InTransaction(repositories.WithTenantScope(ctx, tenantID), func(txCtx context.Context, _ repositories.Transaction) error {
		return fn(txCtx)
	})
}

// InTenantTransactionResult is InTenantTransaction for functions returning a value.
func InTenantTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, tenantID string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := InTenantTransaction(ctx, txMgr, tenantID, func(txCtx context.Context) error {
		var err error
		result, err = fn(txCtx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
