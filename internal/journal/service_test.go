package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dbtest"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/journal/entity"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/journal/repo"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db := dbtest.Open(t)
	return NewService(db, repo.NewJournalRepo(db), time.Minute, zap.NewNop().Sugar())
}

func create(t *testing.T, s *Service, path string, enabled bool) *entity.Journal {
	t.Helper()
	j, err := s.Create(context.Background(), &entity.Journal{
		Path:          path,
		PrimaryLocale: "en_US",
		Enabled:       enabled,
		Name:          dao.LocalizedText{"en_US": "Journal " + path},
	})
	require.NoError(t, err)
	return j
}

func TestResolveReturnsIndependentCopies(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	create(t, s, "jot", true)

	first, err := s.Resolve(ctx, "jot")
	require.NoError(t, err)
	first.Name["en_US"] = "changed by caller"
	first.Name["fr_CA"] = "ajouté"
	first.Path = "elsewhere"

	cached, err := s.Resolve(ctx, "jot")
	require.NoError(t, err)
	assert.Equal(t, "jot", cached.Path)
	assert.Equal(t, dao.LocalizedText{"en_US": "Journal jot"}, cached.Name)

	cached.Name["en_US"] = "changed again"
	again, err := s.Resolve(ctx, "jot")
	require.NoError(t, err)
	assert.Equal(t, "Journal jot", again.Name.Get("en_US"))
}

func TestResolveHidesDisabledAndUnknown(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	create(t, s, "off", false)

	_, err := s.Resolve(ctx, "off")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Resolve(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateInvalidatesCachedPath(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	j := create(t, s, "jot", true)

	_, err := s.Resolve(ctx, "jot")
	require.NoError(t, err)

	j.Enabled = false
	_, err = s.Update(ctx, j)
	require.NoError(t, err)

	_, err = s.Resolve(ctx, "jot")
	assert.ErrorIs(t, err, ErrNotFound)
}
