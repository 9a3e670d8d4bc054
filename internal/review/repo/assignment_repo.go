package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/review/entity"
)

const assignmentColumns = `SELECT review_id, submission_id, reviewer_id, review_form_id, date_assigned, date_completed, declined FROM review_assignments`

// AssignmentRepo maps review assignments. Only the columns the review form
// usage counts depend on are modelled.
type AssignmentRepo struct {
	db dao.Handle
}

func NewAssignmentRepo(db dao.Handle) *AssignmentRepo { return &AssignmentRepo{db: db} }

func (r *AssignmentRepo) WithHandle(h dao.Handle) *AssignmentRepo { return &AssignmentRepo{db: h} }

// New returns an unpersisted assignment dated now.
func (r *AssignmentRepo) New(submissionID, reviewerID int64) *entity.ReviewAssignment {
	return &entity.ReviewAssignment{SubmissionID: submissionID, ReviewerID: reviewerID, DateAssigned: time.Now().UTC()}
}

func (r *AssignmentRepo) GetByID(ctx context.Context, id int64) (*entity.ReviewAssignment, error) {
	var a entity.ReviewAssignment
	if err := r.db.GetContext(ctx, &a, r.db.Rebind(assignmentColumns+` WHERE review_id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dao.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetByReviewFormID lists the assignments using a form, oldest first.
func (r *AssignmentRepo) GetByReviewFormID(ctx context.Context, reviewFormID int64) ([]*entity.ReviewAssignment, error) {
	var out []*entity.ReviewAssignment
	q := r.db.Rebind(assignmentColumns + ` WHERE review_form_id = ? ORDER BY date_assigned, review_id`)
	if err := r.db.SelectContext(ctx, &out, q, reviewFormID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AssignmentRepo) Insert(ctx context.Context, a *entity.ReviewAssignment) (int64, error) {
	if a.ID != 0 {
		return 0, dao.ErrAlreadyPersisted
	}
	id, err := dao.InsertReturningID(ctx, r.db,
		`INSERT INTO review_assignments (submission_id, reviewer_id, review_form_id, date_assigned, date_completed, declined)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING review_id`,
		a.SubmissionID, a.ReviewerID, a.ReviewFormID, a.DateAssigned, a.DateCompleted, a.Declined,
	)
	if err != nil {
		return 0, fmt.Errorf("insert review assignment: %w", err)
	}
	a.ID = id
	return id, nil
}

// Complete marks the review as submitted at at.
func (r *AssignmentRepo) Complete(ctx context.Context, id int64, at time.Time) error {
	n, err := dao.Exec(ctx, r.db, `UPDATE review_assignments SET date_completed = ? WHERE review_id = ?`, at, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return dao.ErrNotFound
	}
	return nil
}

// Decline records that the reviewer declined the request.
func (r *AssignmentRepo) Decline(ctx context.Context, id int64) error {
	n, err := dao.Exec(ctx, r.db, `UPDATE review_assignments SET declined = ? WHERE review_id = ?`, true, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return dao.ErrNotFound
	}
	return nil
}
