// Package uow implements the unit-of-work executor: one transactional scope
// per logical operation, committed when the supplied function returns nil and
// rolled back entirely on any error. The active scope travels on the context,
// so a nested Do call re-enters the existing transaction instead of opening a
// second one (no savepoints).
package uow

import (
	"context"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module provides the shared unit-of-work manager.
var Module = fx.Module("uow",
	fx.Provide(NewManager),
)

type txKey struct{}

// Manager opens unit-of-work scopes against the shared connection.
type Manager struct {
	db *gorm.DB
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// Do runs fn inside a transactional scope. When ctx already carries a scope,
// fn re-enters it and commit/rollback stays with the outermost caller.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx))
	})
}

// Tx returns the transaction bound to ctx, or fallback when no scope is open.
// Repositories route every read and write through this so that work inside a
// unit of work sees its own uncommitted writes.
func Tx(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return fallback
}

// InScope reports whether ctx carries an open unit-of-work scope.
func InScope(ctx context.Context) bool {
	_, ok := txFromContext(ctx)
	return ok
}

func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok
}
