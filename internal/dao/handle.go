// Package dao holds the pieces every repository shares: the database handle
// abstraction, the settings-table extension, the lazy result set, the owner
// association and the repository registry.
package dao

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyPersisted  = errors.New("entity already persisted")
	ErrNotPersisted      = errors.New("entity not persisted")
	ErrUnknownDAO        = errors.New("unknown dao")
	ErrUndeclaredSetting = errors.New("setting is not declared for this table")
	ErrInvalidLocale     = errors.New("invalid locale")
	ErrUnknownAssocType  = errors.New("unknown assoc type")
	ErrNoID              = errors.New("no id returned")
)

// Handle is satisfied by both *sqlx.DB and *sqlx.Tx, so a repository can be
// rebound to a caller-owned transaction.
type Handle interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

var (
	_ Handle = (*sqlx.DB)(nil)
	_ Handle = (*sqlx.Tx)(nil)
)

// InsertReturningID runs an INSERT ... RETURNING statement and scans the generated key.
func InsertReturningID(ctx context.Context, h Handle, query string, args ...any) (int64, error) {
	rows, err := h.QueryxContext(ctx, h.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, ErrNoID
	}
	var id int64
	if err := rows.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Exec rebinds and executes query, returning the number of affected rows.
func Exec(ctx context.Context, h Handle, query string, args ...any) (int64, error) {
	res, err := h.ExecContext(ctx, h.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
