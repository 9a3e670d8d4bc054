package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/reviewform/entity"
)

var formSettings = dao.SettingsTable{
	Table:    "review_form_settings",
	IDColumn: "review_form_id",
	Fields:   []string{"title", "description"},
}

// formColumns selects a form with its usage counts. Declined assignments do
// not count towards either aggregate.
const formColumns = `SELECT rf.review_form_id, rf.assoc_type, rf.assoc_id, rf.seq, rf.is_active,
	(SELECT COUNT(*) FROM review_assignments ra
		WHERE ra.review_form_id = rf.review_form_id AND ra.date_completed IS NOT NULL AND ra.declined = FALSE) AS complete_count,
	(SELECT COUNT(*) FROM review_assignments ra
		WHERE ra.review_form_id = rf.review_form_id AND ra.date_completed IS NULL AND ra.declined = FALSE) AS incomplete_count
	FROM review_forms rf`

type formRow struct {
	ID              int64         `db:"review_form_id"`
	AssocType       int           `db:"assoc_type"`
	AssocID         sql.NullInt64 `db:"assoc_id"`
	Seq             float64       `db:"seq"`
	Active          bool          `db:"is_active"`
	CompleteCount   int           `db:"complete_count"`
	IncompleteCount int           `db:"incomplete_count"`
}

// ReviewFormRepo maps review forms and their settings. Deleting a form
// cascades to its elements through an ElementRepo on the same handle.
type ReviewFormRepo struct {
	db dao.Handle
}

func NewReviewFormRepo(db dao.Handle) *ReviewFormRepo { return &ReviewFormRepo{db: db} }

// WithHandle returns a copy bound to h, typically a transaction.
func (r *ReviewFormRepo) WithHandle(h dao.Handle) *ReviewFormRepo { return &ReviewFormRepo{db: h} }

// New returns an unpersisted, inactive form of owner.
func (r *ReviewFormRepo) New(owner dao.Owner) *entity.ReviewForm {
	return &entity.ReviewForm{Owner: owner}
}

func formFromRow(row formRow) (*entity.ReviewForm, error) {
	owner, err := dao.OwnerFromColumns(row.AssocType, row.AssocID)
	if err != nil {
		return nil, fmt.Errorf("review form %d: %w", row.ID, err)
	}
	return &entity.ReviewForm{
		ID:              row.ID,
		Owner:           owner,
		Seq:             row.Seq,
		Active:          row.Active,
		CompleteCount:   row.CompleteCount,
		IncompleteCount: row.IncompleteCount,
	}, nil
}

func applyFormSettings(f *entity.ReviewForm, s dao.Settings) {
	f.Title = s.Text("title")
	f.Description = s.Text("description")
}

func scanForm(rows *sqlx.Rows) (*entity.ReviewForm, error) {
	var row formRow
	if err := rows.StructScan(&row); err != nil {
		return nil, err
	}
	return formFromRow(row)
}

// hydrate loads the settings of a chunk of forms in one query.
func (r *ReviewFormRepo) hydrate(ctx context.Context, forms []*entity.ReviewForm) error {
	ids := make([]int64, len(forms))
	for i, f := range forms {
		ids[i] = f.ID
	}
	all, err := formSettings.LoadMany(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for _, f := range forms {
		applyFormSettings(f, all[f.ID])
	}
	return nil
}

func (r *ReviewFormRepo) resultSet(q string, args []any, rng *dao.Range) *dao.ResultSet[*entity.ReviewForm] {
	return dao.NewResultSet(r.db, q, args, rng, scanForm).WithHydrator(r.hydrate)
}

func formLocalized(f *entity.ReviewForm) dao.Settings {
	return dao.Settings{"title": f.Title, "description": f.Description}
}

// GetByID fetches a form. When owner is given the form must belong to it,
// otherwise dao.ErrNotFound is returned even if the id exists.
func (r *ReviewFormRepo) GetByID(ctx context.Context, id int64, owner *dao.Owner) (*entity.ReviewForm, error) {
	q := formColumns + ` WHERE rf.review_form_id = ?`
	args := []any{id}
	if owner != nil {
		clause, ownerArgs := dao.OwnerClause("rf.", *owner)
		q += " AND " + clause
		args = append(args, ownerArgs...)
	}
	var row formRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(q), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dao.ErrNotFound
		}
		return nil, err
	}
	f, err := formFromRow(row)
	if err != nil {
		return nil, err
	}
	settings, err := formSettings.Load(ctx, r.db, f.ID)
	if err != nil {
		return nil, err
	}
	applyFormSettings(f, settings)
	return f, nil
}

// Exists reports whether form id exists, optionally within owner.
func (r *ReviewFormRepo) Exists(ctx context.Context, id int64, owner *dao.Owner) (bool, error) {
	q := `SELECT COUNT(*) FROM review_forms WHERE review_form_id = ?`
	args := []any{id}
	if owner != nil {
		clause, ownerArgs := dao.OwnerClause("", *owner)
		q += " AND " + clause
		args = append(args, ownerArgs...)
	}
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(q), args...); err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByOwner returns the owner's forms in sequence order.
func (r *ReviewFormRepo) GetByOwner(owner dao.Owner, rng *dao.Range) *dao.ResultSet[*entity.ReviewForm] {
	clause, args := dao.OwnerClause("rf.", owner)
	q := formColumns + ` WHERE ` + clause + ` ORDER BY rf.seq, rf.review_form_id`
	return r.resultSet(q, args, rng)
}

// GetActiveByOwner returns the owner's active forms in sequence order.
func (r *ReviewFormRepo) GetActiveByOwner(owner dao.Owner, rng *dao.Range) *dao.ResultSet[*entity.ReviewForm] {
	clause, args := dao.OwnerClause("rf.", owner)
	q := formColumns + ` WHERE ` + clause + ` AND rf.is_active = TRUE ORDER BY rf.seq, rf.review_form_id`
	return r.resultSet(q, args, rng)
}

// UnusedCheck reports whether no review assignment uses the form, i.e. both
// the complete and incomplete counts are zero.
func (r *ReviewFormRepo) UnusedCheck(ctx context.Context, id int64) (bool, error) {
	var row formRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(formColumns+` WHERE rf.review_form_id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, dao.ErrNotFound
		}
		return false, err
	}
	return row.CompleteCount == 0 && row.IncompleteCount == 0, nil
}

// Insert writes a new form and its settings, assigning its id.
func (r *ReviewFormRepo) Insert(ctx context.Context, f *entity.ReviewForm) (int64, error) {
	if f.ID != 0 {
		return 0, dao.ErrAlreadyPersisted
	}
	if err := f.Owner.Validate(); err != nil {
		return 0, err
	}
	assocType, assocID := f.Owner.Columns()
	id, err := dao.InsertReturningID(ctx, r.db,
		`INSERT INTO review_forms (assoc_type, assoc_id, seq, is_active) VALUES (?, ?, ?, ?) RETURNING review_form_id`,
		assocType, assocID, f.Seq, f.Active,
	)
	if err != nil {
		return 0, fmt.Errorf("insert review form: %w", err)
	}
	f.ID = id
	if err := formSettings.Insert(ctx, r.db, id, formLocalized(f)); err != nil {
		return 0, err
	}
	return id, nil
}

// Update rewrites the form row and replaces its settings. The usage counts
// are derived and never written.
func (r *ReviewFormRepo) Update(ctx context.Context, f *entity.ReviewForm) (bool, error) {
	if f.ID == 0 {
		return false, dao.ErrNotPersisted
	}
	if err := f.Owner.Validate(); err != nil {
		return false, err
	}
	assocType, assocID := f.Owner.Columns()
	n, err := dao.Exec(ctx, r.db,
		`UPDATE review_forms SET assoc_type = ?, assoc_id = ?, seq = ?, is_active = ? WHERE review_form_id = ?`,
		assocType, assocID, f.Seq, f.Active, f.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update review form: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if err := formSettings.Replace(ctx, r.db, f.ID, formLocalized(f)); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes f, cascading to its elements first.
func (r *ReviewFormRepo) Delete(ctx context.Context, f *entity.ReviewForm) error {
	return r.DeleteByID(ctx, f.ID)
}

// DeleteByID removes the form's elements, then its settings, then the row.
func (r *ReviewFormRepo) DeleteByID(ctx context.Context, id int64) error {
	if err := NewElementRepo(r.db).DeleteByReviewFormID(ctx, id); err != nil {
		return err
	}
	if err := formSettings.DeleteAll(ctx, r.db, id); err != nil {
		return err
	}
	if _, err := dao.Exec(ctx, r.db, `DELETE FROM review_forms WHERE review_form_id = ?`, id); err != nil {
		return fmt.Errorf("delete review form: %w", err)
	}
	return nil
}

// DeleteByOwner removes every form of owner.
func (r *ReviewFormRepo) DeleteByOwner(ctx context.Context, owner dao.Owner) error {
	ids, err := r.idsInSequence(ctx, owner)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := r.DeleteByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Resequence renumbers the owner's forms 1..N in their current order.
func (r *ReviewFormRepo) Resequence(ctx context.Context, owner dao.Owner) error {
	ids, err := r.idsInSequence(ctx, owner)
	if err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := dao.Exec(ctx, r.db, `UPDATE review_forms SET seq = ? WHERE review_form_id = ?`, float64(i+1), id); err != nil {
			return fmt.Errorf("resequence review form %d: %w", id, err)
		}
	}
	return nil
}

// SetSeq moves one form without touching its settings.
func (r *ReviewFormRepo) SetSeq(ctx context.Context, id int64, seq float64) error {
	_, err := dao.Exec(ctx, r.db, `UPDATE review_forms SET seq = ? WHERE review_form_id = ?`, seq, id)
	return err
}

// MaxSeq returns the highest seq among the owner's forms, or 0.
func (r *ReviewFormRepo) MaxSeq(ctx context.Context, owner dao.Owner) (float64, error) {
	clause, args := dao.OwnerClause("", owner)
	var seq sql.NullFloat64
	if err := r.db.GetContext(ctx, &seq, r.db.Rebind(`SELECT MAX(seq) FROM review_forms WHERE `+clause), args...); err != nil {
		return 0, err
	}
	return seq.Float64, nil
}

func (r *ReviewFormRepo) idsInSequence(ctx context.Context, owner dao.Owner) ([]int64, error) {
	clause, args := dao.OwnerClause("", owner)
	var ids []int64
	q := r.db.Rebind(`SELECT review_form_id FROM review_forms WHERE ` + clause + ` ORDER BY seq, review_form_id`)
	if err := r.db.SelectContext(ctx, &ids, q, args...); err != nil {
		return nil, err
	}
	return ids, nil
}
