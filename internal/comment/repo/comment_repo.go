package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/comment/entity"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
)

const commentColumns = `SELECT comment_id, journal_id, comment_type, role_id, submission_id, assoc_id, author_id,
	comment_title, comments, date_posted, date_modified, viewable FROM submission_comments`

// Filter narrows GetBySubmission. Zero values match everything.
type Filter struct {
	CommentType entity.CommentType
	RoleID      int64
	AssocID     int64
}

func (f Filter) where(journalID, submissionID int64) (string, []any) {
	clause := ` WHERE journal_id = ? AND submission_id = ?`
	args := []any{journalID, submissionID}
	if f.CommentType != 0 {
		clause += ` AND comment_type = ?`
		args = append(args, int(f.CommentType))
	}
	if f.RoleID != 0 {
		clause += ` AND role_id = ?`
		args = append(args, f.RoleID)
	}
	if f.AssocID != 0 {
		clause += ` AND assoc_id = ?`
		args = append(args, f.AssocID)
	}
	return clause, args
}

// CommentRepo maps submission comments. Every read is scoped to one journal.
// Comments have no settings table.
type CommentRepo struct {
	db dao.Handle
}

func NewCommentRepo(db dao.Handle) *CommentRepo { return &CommentRepo{db: db} }

func (r *CommentRepo) WithHandle(h dao.Handle) *CommentRepo { return &CommentRepo{db: h} }

// New returns an unpersisted comment on submissionID in journalID.
func (r *CommentRepo) New(journalID, submissionID int64) *entity.SubmissionComment {
	return &entity.SubmissionComment{JournalID: journalID, SubmissionID: submissionID}
}

func scanComment(rows *sqlx.Rows) (*entity.SubmissionComment, error) {
	var c entity.SubmissionComment
	if err := rows.StructScan(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID fetches a comment of journalID. When submissionID is given the
// comment must also belong to it, otherwise dao.ErrNotFound is returned.
func (r *CommentRepo) GetByID(ctx context.Context, id, journalID int64, submissionID *int64) (*entity.SubmissionComment, error) {
	q := commentColumns + ` WHERE comment_id = ? AND journal_id = ?`
	args := []any{id, journalID}
	if submissionID != nil {
		q += ` AND submission_id = ?`
		args = append(args, *submissionID)
	}
	var c entity.SubmissionComment
	if err := r.db.GetContext(ctx, &c, r.db.Rebind(q), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dao.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetBySubmission returns the submission's comments, oldest first.
func (r *CommentRepo) GetBySubmission(journalID, submissionID int64, f Filter, rng *dao.Range) *dao.ResultSet[*entity.SubmissionComment] {
	clause, args := f.where(journalID, submissionID)
	q := commentColumns + clause + ` ORDER BY date_posted, comment_id`
	return dao.NewResultSet(r.db, q, args, rng, scanComment)
}

// GetMostRecent returns the latest comment matching f.
func (r *CommentRepo) GetMostRecent(ctx context.Context, journalID, submissionID int64, f Filter) (*entity.SubmissionComment, error) {
	clause, args := f.where(journalID, submissionID)
	q := commentColumns + clause + ` ORDER BY date_posted DESC, comment_id DESC LIMIT 1`
	var c entity.SubmissionComment
	if err := r.db.GetContext(ctx, &c, r.db.Rebind(q), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dao.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Insert writes a new comment, assigning its id.
func (r *CommentRepo) Insert(ctx context.Context, c *entity.SubmissionComment) (int64, error) {
	if c.ID != 0 {
		return 0, dao.ErrAlreadyPersisted
	}
	if !c.CommentType.Valid() {
		return 0, fmt.Errorf("unknown comment type %d", int(c.CommentType))
	}
	if c.JournalID <= 0 {
		return 0, fmt.Errorf("submission comment has no journal")
	}
	if c.DatePosted.IsZero() {
		c.DatePosted = time.Now().UTC()
	}
	q := `INSERT INTO submission_comments (journal_id, comment_type, role_id, submission_id, assoc_id, author_id,
		comment_title, comments, date_posted, date_modified, viewable)
		VALUES (:journal_id, :comment_type, :role_id, :submission_id, :assoc_id, :author_id,
		:comment_title, :comments, :date_posted, :date_modified, :viewable) RETURNING comment_id`
	bound, args, err := r.db.BindNamed(q, c)
	if err != nil {
		return 0, err
	}
	id, err := dao.InsertReturningID(ctx, r.db, bound, args...)
	if err != nil {
		return 0, fmt.Errorf("insert submission comment: %w", err)
	}
	c.ID = id
	return id, nil
}

// Update rewrites the comment row. The journal of a comment never changes.
func (r *CommentRepo) Update(ctx context.Context, c *entity.SubmissionComment) (bool, error) {
	if c.ID == 0 {
		return false, dao.ErrNotPersisted
	}
	q := `UPDATE submission_comments SET comment_type = :comment_type, role_id = :role_id,
		submission_id = :submission_id, assoc_id = :assoc_id, author_id = :author_id,
		comment_title = :comment_title, comments = :comments, date_posted = :date_posted,
		date_modified = :date_modified, viewable = :viewable
		WHERE comment_id = :comment_id AND journal_id = :journal_id`
	res, err := r.db.NamedExecContext(ctx, q, c)
	if err != nil {
		return false, fmt.Errorf("update submission comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *CommentRepo) Delete(ctx context.Context, c *entity.SubmissionComment) error {
	return r.DeleteByID(ctx, c.ID)
}

func (r *CommentRepo) DeleteByID(ctx context.Context, id int64) error {
	_, err := dao.Exec(ctx, r.db, `DELETE FROM submission_comments WHERE comment_id = ?`, id)
	return err
}

// DeleteBySubmission removes every comment of a submission in journalID.
func (r *CommentRepo) DeleteBySubmission(ctx context.Context, journalID, submissionID int64) error {
	_, err := dao.Exec(ctx, r.db, `DELETE FROM submission_comments WHERE journal_id = ? AND submission_id = ?`, journalID, submissionID)
	return err
}

// DeleteByJournal removes every comment posted in journalID.
func (r *CommentRepo) DeleteByJournal(ctx context.Context, journalID int64) error {
	_, err := dao.Exec(ctx, r.db, `DELETE FROM submission_comments WHERE journal_id = ?`, journalID)
	return err
}
