package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/reviewform/entity"
)

var elementSettings = dao.SettingsTable{
	Table:    "review_form_element_settings",
	IDColumn: "review_form_element_id",
	Fields:   []string{"question", "description", "possibleResponses"},
}

const elementColumns = `SELECT review_form_element_id, review_form_id, seq, element_type, required, included FROM review_form_elements`

type elementRow struct {
	ID           int64   `db:"review_form_element_id"`
	ReviewFormID int64   `db:"review_form_id"`
	Seq          float64 `db:"seq"`
	ElementType  int     `db:"element_type"`
	Required     bool    `db:"required"`
	Included     bool    `db:"included"`
}

// ElementRepo maps review form elements, their settings and responses.
type ElementRepo struct {
	db dao.Handle
}

func NewElementRepo(db dao.Handle) *ElementRepo { return &ElementRepo{db: db} }

// WithHandle returns a copy bound to h, typically a transaction.
func (r *ElementRepo) WithHandle(h dao.Handle) *ElementRepo { return &ElementRepo{db: h} }

// New returns an unpersisted element of reviewFormID.
func (r *ElementRepo) New(reviewFormID int64) *entity.Element {
	return &entity.Element{ReviewFormID: reviewFormID, ElementType: entity.ElementTextField, Included: true}
}

func elementFromRow(row elementRow) *entity.Element {
	return &entity.Element{
		ID:           row.ID,
		ReviewFormID: row.ReviewFormID,
		Seq:          row.Seq,
		ElementType:  entity.ElementType(row.ElementType),
		Required:     row.Required,
		Included:     row.Included,
	}
}

func applyElementSettings(e *entity.Element, s dao.Settings) error {
	e.Question = s.Text("question")
	e.Description = s.Text("description")
	e.PossibleResponses = nil
	if raw := s["possibleResponses"]; len(raw) > 0 {
		e.PossibleResponses = make(map[string][]string, len(raw))
		for locale, encoded := range raw {
			var labels []string
			if err := json.Unmarshal([]byte(encoded), &labels); err != nil {
				return fmt.Errorf("element %d possible responses [%s]: %w", e.ID, locale, err)
			}
			e.PossibleResponses[locale] = labels
		}
	}
	return nil
}

func scanElement(rows *sqlx.Rows) (*entity.Element, error) {
	var row elementRow
	if err := rows.StructScan(&row); err != nil {
		return nil, err
	}
	return elementFromRow(row), nil
}

func (r *ElementRepo) hydrate(ctx context.Context, elements []*entity.Element) error {
	ids := make([]int64, len(elements))
	for i, e := range elements {
		ids[i] = e.ID
	}
	all, err := elementSettings.LoadMany(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for _, e := range elements {
		if err := applyElementSettings(e, all[e.ID]); err != nil {
			return err
		}
	}
	return nil
}

func elementLocalized(e *entity.Element) (dao.Settings, error) {
	s := dao.Settings{
		"question":    e.Question,
		"description": e.Description,
	}
	if len(e.PossibleResponses) > 0 {
		responses := dao.LocalizedText{}
		for locale, labels := range e.PossibleResponses {
			b, err := json.Marshal(labels)
			if err != nil {
				return nil, err
			}
			responses[locale] = string(b)
		}
		s["possibleResponses"] = responses
	}
	return s, nil
}

// GetByID fetches an element. When reviewFormID is given the element must
// belong to that form, otherwise dao.ErrNotFound is returned.
func (r *ElementRepo) GetByID(ctx context.Context, id int64, reviewFormID *int64) (*entity.Element, error) {
	q := elementColumns + ` WHERE review_form_element_id = ?`
	args := []any{id}
	if reviewFormID != nil {
		q += ` AND review_form_id = ?`
		args = append(args, *reviewFormID)
	}
	var row elementRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(q), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dao.ErrNotFound
		}
		return nil, err
	}
	e := elementFromRow(row)
	settings, err := elementSettings.Load(ctx, r.db, e.ID)
	if err != nil {
		return nil, err
	}
	if err := applyElementSettings(e, settings); err != nil {
		return nil, err
	}
	return e, nil
}

// Exists reports whether element id exists, optionally within reviewFormID.
func (r *ElementRepo) Exists(ctx context.Context, id int64, reviewFormID *int64) (bool, error) {
	q := `SELECT COUNT(*) FROM review_form_elements WHERE review_form_element_id = ?`
	args := []any{id}
	if reviewFormID != nil {
		q += ` AND review_form_id = ?`
		args = append(args, *reviewFormID)
	}
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(q), args...); err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByReviewFormID returns the form's elements in sequence order.
func (r *ElementRepo) GetByReviewFormID(reviewFormID int64, rng *dao.Range) *dao.ResultSet[*entity.Element] {
	q := elementColumns + ` WHERE review_form_id = ? ORDER BY seq, review_form_element_id`
	return dao.NewResultSet(r.db, q, []any{reviewFormID}, rng, scanElement).WithHydrator(r.hydrate)
}

// GetRequiredIDs returns the ids of the form's required elements in sequence order.
func (r *ElementRepo) GetRequiredIDs(ctx context.Context, reviewFormID int64) ([]int64, error) {
	var ids []int64
	q := r.db.Rebind(`SELECT review_form_element_id FROM review_form_elements
		WHERE review_form_id = ? AND required = ? ORDER BY seq, review_form_element_id`)
	if err := r.db.SelectContext(ctx, &ids, q, reviewFormID, true); err != nil {
		return nil, err
	}
	return ids, nil
}

// Insert writes a new element and its settings, assigning its id.
func (r *ElementRepo) Insert(ctx context.Context, e *entity.Element) (int64, error) {
	if e.ID != 0 {
		return 0, dao.ErrAlreadyPersisted
	}
	if !e.ElementType.Valid() {
		return 0, fmt.Errorf("unknown element type %d", int(e.ElementType))
	}
	s, err := elementLocalized(e)
	if err != nil {
		return 0, err
	}
	id, err := dao.InsertReturningID(ctx, r.db,
		`INSERT INTO review_form_elements (review_form_id, seq, element_type, required, included)
		VALUES (?, ?, ?, ?, ?) RETURNING review_form_element_id`,
		e.ReviewFormID, e.Seq, int(e.ElementType), e.Required, e.Included,
	)
	if err != nil {
		return 0, fmt.Errorf("insert review form element: %w", err)
	}
	e.ID = id
	if err := elementSettings.Insert(ctx, r.db, id, s); err != nil {
		return 0, err
	}
	return id, nil
}

// Update rewrites the element row and replaces its settings.
func (r *ElementRepo) Update(ctx context.Context, e *entity.Element) (bool, error) {
	if e.ID == 0 {
		return false, dao.ErrNotPersisted
	}
	if !e.ElementType.Valid() {
		return false, fmt.Errorf("unknown element type %d", int(e.ElementType))
	}
	s, err := elementLocalized(e)
	if err != nil {
		return false, err
	}
	n, err := dao.Exec(ctx, r.db,
		`UPDATE review_form_elements SET review_form_id = ?, seq = ?, element_type = ?, required = ?, included = ?
		WHERE review_form_element_id = ?`,
		e.ReviewFormID, e.Seq, int(e.ElementType), e.Required, e.Included, e.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update review form element: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if err := elementSettings.Replace(ctx, r.db, e.ID, s); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes e with its responses and settings.
func (r *ElementRepo) Delete(ctx context.Context, e *entity.Element) error {
	return r.DeleteByID(ctx, e.ID)
}

// DeleteByID removes the element's responses, settings and row, in that order.
func (r *ElementRepo) DeleteByID(ctx context.Context, id int64) error {
	if _, err := dao.Exec(ctx, r.db, `DELETE FROM review_form_responses WHERE review_form_element_id = ?`, id); err != nil {
		return fmt.Errorf("delete review form responses: %w", err)
	}
	if err := elementSettings.DeleteAll(ctx, r.db, id); err != nil {
		return err
	}
	if _, err := dao.Exec(ctx, r.db, `DELETE FROM review_form_elements WHERE review_form_element_id = ?`, id); err != nil {
		return fmt.Errorf("delete review form element: %w", err)
	}
	return nil
}

// DeleteByReviewFormID removes every element of the form.
func (r *ElementRepo) DeleteByReviewFormID(ctx context.Context, reviewFormID int64) error {
	ids, err := r.idsInSequence(ctx, reviewFormID)
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

// Resequence renumbers the form's elements 1..N in their current order.
func (r *ElementRepo) Resequence(ctx context.Context, reviewFormID int64) error {
	ids, err := r.idsInSequence(ctx, reviewFormID)
	if err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := dao.Exec(ctx, r.db, `UPDATE review_form_elements SET seq = ? WHERE review_form_element_id = ?`, float64(i+1), id); err != nil {
			return fmt.Errorf("resequence review form element %d: %w", id, err)
		}
	}
	return nil
}

// MaxSeq returns the highest seq among the form's elements, or 0.
func (r *ElementRepo) MaxSeq(ctx context.Context, reviewFormID int64) (float64, error) {
	var seq sql.NullFloat64
	q := r.db.Rebind(`SELECT MAX(seq) FROM review_form_elements WHERE review_form_id = ?`)
	if err := r.db.GetContext(ctx, &seq, q, reviewFormID); err != nil {
		return 0, err
	}
	return seq.Float64, nil
}

// InsertResponse records a reviewer's response to an element.
func (r *ElementRepo) InsertResponse(ctx context.Context, elementID, reviewID int64, responseType, value string) error {
	_, err := dao.Exec(ctx, r.db,
		`INSERT INTO review_form_responses (review_form_element_id, review_id, response_type, response_value) VALUES (?, ?, ?, ?)`,
		elementID, reviewID, responseType, value,
	)
	return err
}

// CountResponses counts the recorded responses to an element.
func (r *ElementRepo) CountResponses(ctx context.Context, elementID int64) (int, error) {
	var n int
	q := r.db.Rebind(`SELECT COUNT(*) FROM review_form_responses WHERE review_form_element_id = ?`)
	if err := r.db.GetContext(ctx, &n, q, elementID); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ElementRepo) idsInSequence(ctx context.Context, reviewFormID int64) ([]int64, error) {
	var ids []int64
	q := r.db.Rebind(`SELECT review_form_element_id FROM review_form_elements WHERE review_form_id = ? ORDER BY seq, review_form_element_id`)
	if err := r.db.SelectContext(ctx, &ids, q, reviewFormID); err != nil {
		return nil, err
	}
	return ids, nil
}
