package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dbtest"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/schema"
	"github.com/ovaphlow/pitchfork/service-journal-go/pkg/database"
)

func tableExists(t *testing.T, db *sqlx.DB, name string) bool {
	t.Helper()
	var n int
	err := db.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
	require.NoError(t, err)
	return n > 0
}

func TestMigrateAppliesAllOnce(t *testing.T) {
	db := dbtest.OpenEmpty(t)
	ctx := context.Background()

	applied, err := database.Migrate(ctx, db, database.SQLite, schema.Migrations())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, applied)

	applied, err = database.Migrate(ctx, db, database.SQLite, schema.Migrations())
	require.NoError(t, err)
	assert.Empty(t, applied)

	versions, err := database.AppliedVersions(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}, versions)

	for _, table := range []string{"journals", "review_forms", "review_form_element_settings", "submission_comments"} {
		assert.True(t, tableExists(t, db, table), table)
	}
}

func TestMigrateToAndRollback(t *testing.T) {
	db := dbtest.OpenEmpty(t)
	ctx := context.Background()

	applied, err := database.MigrateTo(ctx, db, database.SQLite, schema.Migrations(), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, applied)

	reverted, err := database.Rollback(ctx, db, database.SQLite, schema.Migrations(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, reverted)
	assert.False(t, tableExists(t, db, "submission_comments"))
	assert.True(t, tableExists(t, db, "review_forms"))

	versions, err := database.AppliedVersions(ctx, db)
	require.NoError(t, err)
	assert.False(t, versions[3])
}

func TestRollbackIrreversible(t *testing.T) {
	db := dbtest.Open(t)

	reverted, err := database.Rollback(context.Background(), db, database.SQLite, schema.Migrations(), 2)
	require.ErrorIs(t, err, database.ErrIrreversible)
	assert.Equal(t, []int{5}, reverted, "rollback stops at the first irreversible migration")

	reverted, err = database.Rollback(context.Background(), db, database.SQLite, schema.Migrations(), 1)
	require.ErrorIs(t, err, database.ErrIrreversible)
	assert.Empty(t, reverted)
	assert.True(t, tableExists(t, db, "submission_comments"))
}

func TestMigrateFailureRollsBackStep(t *testing.T) {
	db := dbtest.OpenEmpty(t)
	ctx := context.Background()

	ms := []database.Migration{
		{Version: 1, Name: "ok", Up: database.Exec(`CREATE TABLE widgets (id INTEGER)`)},
		{Version: 2, Name: "broken", Up: database.Exec(`CREATE TABLE gadgets (id INTEGER)`, `NOT VALID SQL`)},
	}
	applied, err := database.Migrate(ctx, db, database.SQLite, ms)
	require.Error(t, err)
	assert.Equal(t, []int{1}, applied)
	assert.True(t, tableExists(t, db, "widgets"))
	assert.False(t, tableExists(t, db, "gadgets"))
}

func TestMigrateRejectsDuplicateVersions(t *testing.T) {
	db := dbtest.OpenEmpty(t)
	ms := []database.Migration{
		{Version: 1, Name: "a", Up: database.Exec()},
		{Version: 1, Name: "b", Up: database.Exec()},
	}
	_, err := database.Migrate(context.Background(), db, database.SQLite, ms)
	require.Error(t, err)
}

func TestInTxRollsBackOnError(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := database.InTx(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO journals (path, seq, primary_locale, enabled) VALUES ('x', 1, 'en_US', TRUE)`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM journals`))
	assert.Zero(t, n)
}

func TestDialectFor(t *testing.T) {
	d, err := database.DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, database.SQLite, d)

	d, err = database.DialectFor("")
	require.NoError(t, err)
	assert.Equal(t, database.Postgres, d)

	_, err = database.DialectFor("oracle")
	assert.Error(t, err)
}
