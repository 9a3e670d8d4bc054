package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
)

const migrationTable = "schema_migrations"

// ErrIrreversible is returned when rolling back a migration that has no Down step.
var ErrIrreversible = errors.New("migration is irreversible")

// Step is one direction of a migration. It runs inside the migration's transaction.
type Step func(ctx context.Context, tx *sqlx.Tx, d Dialect) error

// Migration is a forward-only schema change with an optional reverse.
type Migration struct {
	Version int
	Name    string
	Up      Step
	// Down is nil when the change destroys data and cannot be undone.
	Down Step
}

// Exec returns a Step running each statement in order.
func Exec(stmts ...string) Step {
	return func(ctx context.Context, tx *sqlx.Tx, _ Dialect) error {
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sqlx.DB, d Dialect, ms []Migration) ([]int, error) {
	return MigrateTo(ctx, db, d, ms, 0)
}

// MigrateTo applies pending migrations up to and including target. A target
// of 0 means the latest version.
func MigrateTo(ctx context.Context, db *sqlx.DB, d Dialect, ms []Migration, target int) ([]int, error) {
	if db == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	sorted, err := sortMigrations(ms)
	if err != nil {
		return nil, err
	}
	if err := ensureMigrationTable(ctx, db); err != nil {
		return nil, err
	}
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	var done []int
	for _, m := range sorted {
		if target > 0 && m.Version > target {
			break
		}
		if applied[m.Version] {
			continue
		}
		if m.Up == nil {
			return done, fmt.Errorf("migration %d %s has no up step", m.Version, m.Name)
		}
		err := InTx(ctx, db, func(tx *sqlx.Tx) error {
			if err := m.Up(ctx, tx, d); err != nil {
				return err
			}
			q := tx.Rebind(fmt.Sprintf("INSERT INTO %s (version, name, applied_at) VALUES (?, ?, ?)", migrationTable))
			_, err := tx.ExecContext(ctx, q, m.Version, m.Name, time.Now().UTC())
			return err
		})
		if err != nil {
			return done, fmt.Errorf("apply migration %d %s: %w", m.Version, m.Name, err)
		}
		done = append(done, m.Version)
	}
	return done, nil
}

// Rollback reverts the latest steps applied migrations, newest first. It stops
// at the first migration without a Down step and reports ErrIrreversible.
func Rollback(ctx context.Context, db *sqlx.DB, d Dialect, ms []Migration, steps int) ([]int, error) {
	sorted, err := sortMigrations(ms)
	if err != nil {
		return nil, err
	}
	if err := ensureMigrationTable(ctx, db); err != nil {
		return nil, err
	}
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	var reverted []int
	for i := len(sorted) - 1; i >= 0 && len(reverted) < steps; i-- {
		m := sorted[i]
		if !applied[m.Version] {
			continue
		}
		if m.Down == nil {
			return reverted, fmt.Errorf("rollback migration %d %s: %w", m.Version, m.Name, ErrIrreversible)
		}
		err := InTx(ctx, db, func(tx *sqlx.Tx) error {
			if err := m.Down(ctx, tx, d); err != nil {
				return err
			}
			q := tx.Rebind(fmt.Sprintf("DELETE FROM %s WHERE version = ?", migrationTable))
			_, err := tx.ExecContext(ctx, q, m.Version)
			return err
		})
		if err != nil {
			return reverted, fmt.Errorf("rollback migration %d %s: %w", m.Version, m.Name, err)
		}
		reverted = append(reverted, m.Version)
	}
	return reverted, nil
}

// AppliedVersions returns the set of recorded migration versions.
func AppliedVersions(ctx context.Context, db *sqlx.DB) (map[int]bool, error) {
	if err := ensureMigrationTable(ctx, db); err != nil {
		return nil, err
	}
	var versions []int
	if err := db.SelectContext(ctx, &versions, "SELECT version FROM "+migrationTable); err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}
	out := make(map[int]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out, nil
}

func ensureMigrationTable(ctx context.Context, db *sqlx.DB) error {
	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TIMESTAMP NOT NULL
)`, migrationTable)
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return nil
}

func sortMigrations(ms []Migration) ([]Migration, error) {
	sorted := append([]Migration(nil), ms...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	for i, m := range sorted {
		if m.Version <= 0 {
			return nil, fmt.Errorf("migration %q has invalid version %d", m.Name, m.Version)
		}
		if i > 0 && sorted[i-1].Version == m.Version {
			return nil, fmt.Errorf("duplicate migration version %d", m.Version)
		}
	}
	return sorted, nil
}
