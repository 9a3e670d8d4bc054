package reviewform

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dbtest"
	reviewrepo "github.com/ovaphlow/pitchfork/service-journal-go/internal/review/repo"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/reviewform/entity"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/reviewform/repo"
)

func newTestService(t *testing.T) (*Service, *sqlx.DB) {
	t.Helper()
	db := dbtest.Open(t)
	return NewService(db, repo.NewReviewFormRepo(db), repo.NewElementRepo(db), zap.NewNop().Sugar()), db
}

func create(t *testing.T, s *Service, owner dao.Owner, title string) *entity.ReviewForm {
	t.Helper()
	f, err := s.Create(context.Background(), owner, &entity.ReviewForm{Title: dao.LocalizedText{"en_US": title}})
	require.NoError(t, err)
	return f
}

func markInUse(t *testing.T, db *sqlx.DB, formID int64) {
	t.Helper()
	assignments := reviewrepo.NewAssignmentRepo(db)
	a := assignments.New(1, 1)
	a.ReviewFormID = &formID
	_, err := assignments.Insert(context.Background(), a)
	require.NoError(t, err)
}

func TestCreateAppendsInSequence(t *testing.T) {
	s, _ := newTestService(t)
	owner := dao.JournalOwner(1)

	a := create(t, s, owner, "A")
	b := create(t, s, owner, "B")
	other := create(t, s, dao.JournalOwner(2), "Other")

	assert.Equal(t, 1.0, a.Seq)
	assert.Equal(t, 2.0, b.Seq)
	assert.Equal(t, 1.0, other.Seq)

	forms, total, err := s.List(context.Background(), owner, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, forms, 2)
	assert.Equal(t, a.ID, forms[0].ID)
}

func TestCreateRequiresTitle(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Create(context.Background(), dao.JournalOwner(1), &entity.ReviewForm{})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = s.Create(context.Background(), dao.JournalOwner(1), &entity.ReviewForm{Title: dao.LocalizedText{"": "untagged"}})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestGetForeignFormIsNotFound(t *testing.T) {
	s, _ := newTestService(t)
	f := create(t, s, dao.JournalOwner(1), "Mine")

	_, err := s.Get(context.Background(), dao.JournalOwner(2), f.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Delete(context.Background(), dao.JournalOwner(2), f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteInUseForm(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	owner := dao.JournalOwner(1)
	f := create(t, s, owner, "Used")
	markInUse(t, db, f.ID)

	err := s.Delete(ctx, owner, f.ID)
	require.ErrorIs(t, err, ErrInUse)

	got, err := s.Get(ctx, owner, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.IncompleteCount)
}

func TestDeleteResequences(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	owner := dao.JournalOwner(1)
	a := create(t, s, owner, "A")
	b := create(t, s, owner, "B")
	c := create(t, s, owner, "C")

	require.NoError(t, s.Delete(ctx, owner, b.ID))

	forms, _, err := s.List(ctx, owner, nil)
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, a.ID, forms[0].ID)
	assert.Equal(t, 1.0, forms[0].Seq)
	assert.Equal(t, c.ID, forms[1].ID)
	assert.Equal(t, 2.0, forms[1].Seq)
}

func TestUpdateKeepsPosition(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	owner := dao.JournalOwner(1)
	create(t, s, owner, "A")
	b := create(t, s, owner, "B")

	got, err := s.Update(ctx, owner, &entity.ReviewForm{
		ID:     b.ID,
		Title:  dao.LocalizedText{"en_US": "B2", "fr_CA": "B2fr"},
		Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Seq)

	again, err := s.Get(ctx, owner, b.ID)
	require.NoError(t, err)
	assert.True(t, again.Active)
	assert.Equal(t, "B2fr", again.Title.Get("fr_CA"))
}

func TestCopyDuplicatesElements(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	owner := dao.JournalOwner(1)

	src, err := s.Create(ctx, owner, &entity.ReviewForm{
		Title:  dao.LocalizedText{"en_US": "Original"},
		Active: true,
	})
	require.NoError(t, err)
	_, err = s.AddElement(ctx, owner, src.ID, &entity.Element{
		ElementType: entity.ElementTextarea,
		Question:    dao.LocalizedText{"en_US": "Comments"},
	})
	require.NoError(t, err)
	_, err = s.AddElement(ctx, owner, src.ID, &entity.Element{
		ElementType:       entity.ElementCheckboxes,
		Question:          dao.LocalizedText{"en_US": "Topics"},
		PossibleResponses: map[string][]string{"en_US": {"A", "B"}},
	})
	require.NoError(t, err)

	cp, err := s.Copy(ctx, owner, src.ID)
	require.NoError(t, err)
	assert.NotEqual(t, src.ID, cp.ID)
	assert.False(t, cp.Active)
	assert.Equal(t, src.Title, cp.Title)
	assert.Equal(t, 2.0, cp.Seq)

	els, err := s.ListElements(ctx, owner, cp.ID)
	require.NoError(t, err)
	require.Len(t, els, 2)
	assert.Equal(t, "Comments", els[0].Question.Get("en_US"))
	assert.Equal(t, []string{"A", "B"}, els[1].PossibleResponses["en_US"])

	orig, err := s.ListElements(ctx, owner, src.ID)
	require.NoError(t, err)
	assert.Len(t, orig, 2)
}

func TestReorder(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	owner := dao.JournalOwner(1)
	a := create(t, s, owner, "A")
	b := create(t, s, owner, "B")
	c := create(t, s, owner, "C")

	require.NoError(t, s.Reorder(ctx, owner, []int64{c.ID, a.ID}))

	forms, _, err := s.List(ctx, owner, nil)
	require.NoError(t, err)
	require.Len(t, forms, 3)
	assert.Equal(t, []int64{c.ID, a.ID, b.ID}, []int64{forms[0].ID, forms[1].ID, forms[2].ID})
	for i, f := range forms {
		assert.Equal(t, float64(i+1), f.Seq)
	}

	foreign := create(t, s, dao.JournalOwner(2), "X")
	err = s.Reorder(ctx, owner, []int64{foreign.ID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestElementsBlockedWhenInUse(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	owner := dao.JournalOwner(1)
	f := create(t, s, owner, "Form")
	e, err := s.AddElement(ctx, owner, f.ID, &entity.Element{
		ElementType: entity.ElementSmallTextField,
		Question:    dao.LocalizedText{"en_US": "Name"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, e.Seq)

	markInUse(t, db, f.ID)

	_, err = s.AddElement(ctx, owner, f.ID, &entity.Element{
		ElementType: entity.ElementSmallTextField,
		Question:    dao.LocalizedText{"en_US": "More"},
	})
	assert.ErrorIs(t, err, ErrInUse)
	assert.ErrorIs(t, s.DeleteElement(ctx, owner, f.ID, e.ID), ErrInUse)
}

func TestAddElementValidates(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	owner := dao.JournalOwner(1)
	f := create(t, s, owner, "Form")

	_, err := s.AddElement(ctx, owner, f.ID, &entity.Element{ElementType: 99, Question: dao.LocalizedText{"en_US": "Q"}})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = s.AddElement(ctx, owner, f.ID, &entity.Element{ElementType: entity.ElementTextField})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = s.AddElement(ctx, owner, f.ID, &entity.Element{ElementType: entity.ElementDropDownBox, Question: dao.LocalizedText{"en_US": "Pick"}})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDeleteElementResequences(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	owner := dao.JournalOwner(1)
	f := create(t, s, owner, "Form")

	var ids []int64
	for _, q := range []string{"One", "Two", "Three"} {
		e, err := s.AddElement(ctx, owner, f.ID, &entity.Element{
			ElementType: entity.ElementTextField,
			Question:    dao.LocalizedText{"en_US": q},
		})
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	require.NoError(t, s.DeleteElement(ctx, owner, f.ID, ids[0]))
	assert.ErrorIs(t, s.DeleteElement(ctx, owner, f.ID, ids[0]), ErrElementNotFound)

	els, err := s.ListElements(ctx, owner, f.ID)
	require.NoError(t, err)
	require.Len(t, els, 2)
	assert.Equal(t, ids[1], els[0].ID)
	assert.Equal(t, 1.0, els[0].Seq)
	assert.Equal(t, 2.0, els[1].Seq)
}
