package dao

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dbtest"
)

var testSettings = SettingsTable{
	Table:    "journal_settings",
	IDColumn: "journal_id",
	Fields:   []string{"name", "description", "enableAnnouncements"},
}

func TestSettingsInsertLoad(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	in := Settings{
		"name":                {"en_US": "Journal of Tests", "fr_CA": "Revue des tests"},
		"enableAnnouncements": {"": "true"},
	}
	require.NoError(t, testSettings.Insert(ctx, db, 1, in))

	got, err := testSettings.Load(ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, in["name"], got.Text("name"))
	assert.Equal(t, "true", got.Value("enableAnnouncements"))
	assert.Empty(t, got.Text("description"))

	other, err := testSettings.Load(ctx, db, 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSettingsReplaceDropsAbsentLocalesAndFields(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	require.NoError(t, testSettings.Insert(ctx, db, 1, Settings{
		"name":        {"en_US": "Old", "fr_CA": "Ancien"},
		"description": {"en_US": "About"},
	}))
	require.NoError(t, testSettings.Replace(ctx, db, 1, Settings{
		"name": {"en_US": "New"},
	}))

	got, err := testSettings.Load(ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, LocalizedText{"en_US": "New"}, got.Text("name"))
	_, ok := got["description"]
	assert.False(t, ok)
}

func TestSettingsRejectsUndeclaredAndBadLocale(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	err := testSettings.Insert(ctx, db, 1, Settings{"color": {"": "red"}})
	require.ErrorIs(t, err, ErrUndeclaredSetting)

	err = testSettings.Replace(ctx, db, 1, Settings{"name": {"not a locale": "x"}})
	require.ErrorIs(t, err, ErrInvalidLocale)

	got, err := testSettings.Load(ctx, db, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSettingsDeleteAll(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	require.NoError(t, testSettings.Insert(ctx, db, 1, Settings{"name": {"en_US": "One"}}))
	require.NoError(t, testSettings.Insert(ctx, db, 2, Settings{"name": {"en_US": "Two"}}))
	require.NoError(t, testSettings.DeleteAll(ctx, db, 1))

	gone, err := testSettings.Load(ctx, db, 1)
	require.NoError(t, err)
	assert.Empty(t, gone)

	kept, err := testSettings.Load(ctx, db, 2)
	require.NoError(t, err)
	assert.Equal(t, "Two", kept.Text("name").Get("en_US"))
}

func TestSettingsLoadMany(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	require.NoError(t, testSettings.Insert(ctx, db, 1, Settings{"name": {"en_US": "One", "fr_CA": "Un"}}))
	require.NoError(t, testSettings.Insert(ctx, db, 2, Settings{"name": {"en_US": "Two"}, "enableAnnouncements": {"": "false"}}))

	got, err := testSettings.LoadMany(ctx, db, []int64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, LocalizedText{"en_US": "One", "fr_CA": "Un"}, got[1].Text("name"))
	assert.Equal(t, "Two", got[2].Text("name").Get("en_US"))
	assert.Equal(t, "false", got[2].Value("enableAnnouncements"))
	assert.Empty(t, got[3])

	none, err := testSettings.LoadMany(ctx, db, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
