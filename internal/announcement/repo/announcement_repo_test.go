package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/announcement/entity"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dbtest"
)

func TestAnnouncementRoundTrip(t *testing.T) {
	db := dbtest.Open(t)
	r := NewAnnouncementRepo(db)
	ctx := context.Background()

	typeID := int64(3)
	expire := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	a := r.New()
	a.Owner = dao.JournalOwner(1)
	a.TypeID = &typeID
	a.DateExpire = &expire
	a.Title = dao.LocalizedText{"en_US": "Call for papers", "fr_CA": "Appel"}
	a.DescriptionShort = dao.LocalizedText{"en_US": "Short"}
	_, err := r.Insert(ctx, a)
	require.NoError(t, err)

	owner := dao.JournalOwner(1)
	got, err := r.GetByID(ctx, a.ID, &owner)
	require.NoError(t, err)
	assert.Equal(t, a.Title, got.Title)
	assert.Equal(t, a.DescriptionShort, got.DescriptionShort)
	require.NotNil(t, got.TypeID)
	assert.Equal(t, typeID, *got.TypeID)
	require.NotNil(t, got.DateExpire)
	assert.True(t, expire.Equal(got.DateExpire.UTC()))

	other := dao.JournalOwner(2)
	_, err = r.GetByID(ctx, a.ID, &other)
	assert.ErrorIs(t, err, dao.ErrNotFound)

	got.Title = dao.LocalizedText{"en_US": "Updated"}
	got.DateExpire = nil
	ok, err := r.Update(ctx, got)
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := r.GetByID(ctx, a.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, dao.LocalizedText{"en_US": "Updated"}, again.Title)
	assert.Nil(t, again.DateExpire)
}

func TestAnnouncementsNewestFirst(t *testing.T) {
	db := dbtest.Open(t)
	r := NewAnnouncementRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		a := &entity.Announcement{
			Owner:      dao.SiteOwner(),
			DatePosted: base.AddDate(0, 0, i),
			Title:      dao.LocalizedText{"en_US": "News"},
		}
		_, err := r.Insert(ctx, a)
		require.NoError(t, err)
	}

	items, err := r.GetByOwner(dao.SiteOwner(), nil).Collect(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.True(t, items[0].DatePosted.After(items[1].DatePosted))
	assert.True(t, items[1].DatePosted.After(items[2].DatePosted))
	assert.Equal(t, dao.SiteOwner(), items[0].Owner)

	n, err := r.GetNumByOwner(ctx, dao.SiteOwner())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, r.DeleteByOwner(ctx, dao.SiteOwner()))
	n, err = r.GetNumByOwner(ctx, dao.SiteOwner())
	require.NoError(t, err)
	assert.Zero(t, n)
}
