package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dbtest"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/reviewform/entity"
)

func TestElementRoundTrip(t *testing.T) {
	db := dbtest.Open(t)
	forms := NewReviewFormRepo(db)
	r := NewElementRepo(db)
	ctx := context.Background()

	f := insertForm(t, forms, dao.JournalOwner(1), 1, "Form")
	e := r.New(f.ID)
	e.ElementType = entity.ElementRadioButtons
	e.Seq = 1
	e.Required = true
	e.Question = dao.LocalizedText{"en_US": "Recommendation", "fr_CA": "Recommandation"}
	e.PossibleResponses = map[string][]string{
		"en_US": {"Accept", "Revise", "Decline"},
		"fr_CA": {"Accepter", "Réviser", "Refuser"},
	}
	_, err := r.Insert(ctx, e)
	require.NoError(t, err)

	got, err := r.GetByID(ctx, e.ID, &f.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ElementRadioButtons, got.ElementType)
	assert.True(t, got.Required)
	assert.True(t, got.Included)
	assert.Equal(t, e.Question, got.Question)
	assert.Equal(t, e.PossibleResponses, got.PossibleResponses)

	otherForm := f.ID + 100
	_, err = r.GetByID(ctx, e.ID, &otherForm)
	assert.ErrorIs(t, err, dao.ErrNotFound)

	required, err := r.GetRequiredIDs(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{e.ID}, required)

	got.PossibleResponses = map[string][]string{"en_US": {"Yes", "No"}}
	ok, err := r.Update(ctx, got)
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := r.GetByID(ctx, e.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"en_US": {"Yes", "No"}}, again.PossibleResponses)
}

func TestElementInsertRejectsUnknownType(t *testing.T) {
	db := dbtest.Open(t)
	r := NewElementRepo(db)

	e := r.New(1)
	e.ElementType = 42
	_, err := r.Insert(context.Background(), e)
	assert.Error(t, err)
}

func TestElementDeleteAndResequence(t *testing.T) {
	db := dbtest.Open(t)
	forms := NewReviewFormRepo(db)
	r := NewElementRepo(db)
	ctx := context.Background()

	f := insertForm(t, forms, dao.JournalOwner(1), 1, "Form")
	var ids []int64
	for i := 1; i <= 3; i++ {
		e := r.New(f.ID)
		e.Seq = float64(i * 10)
		e.Question = dao.LocalizedText{"en_US": "Q"}
		_, err := r.Insert(ctx, e)
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}
	require.NoError(t, r.InsertResponse(ctx, ids[1], 7, "string", "answer"))

	require.NoError(t, r.DeleteByID(ctx, ids[1]))
	n, err := r.CountResponses(ctx, ids[1])
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, r.Resequence(ctx, f.ID))
	els, err := r.GetByReviewFormID(f.ID, nil).Collect(ctx)
	require.NoError(t, err)
	require.Len(t, els, 2)
	assert.Equal(t, ids[0], els[0].ID)
	assert.Equal(t, 1.0, els[0].Seq)
	assert.Equal(t, ids[2], els[1].ID)
	assert.Equal(t, 2.0, els[1].Seq)

	maxSeq, err := r.MaxSeq(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, maxSeq)
}
