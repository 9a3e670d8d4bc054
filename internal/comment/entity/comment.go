package entity

import "time"

// CommentType classifies the workflow stage a comment belongs to.
type CommentType int

const (
	CommentPeerReview     CommentType = 1
	CommentEditorDecision CommentType = 2
	CommentCopyedit       CommentType = 3
	CommentLayout         CommentType = 4
	CommentProofread      CommentType = 5
)

func (t CommentType) Valid() bool {
	return t >= CommentPeerReview && t <= CommentProofread
}

// SubmissionComment is a note attached to a submission in one journal.
// AssocID points at the object the comment is about (e.g. a review assignment
// for peer review).
type SubmissionComment struct {
	ID           int64       `db:"comment_id" json:"id"`
	JournalID    int64       `db:"journal_id" json:"journal_id"`
	CommentType  CommentType `db:"comment_type" json:"comment_type"`
	RoleID       int64       `db:"role_id" json:"role_id"`
	SubmissionID int64       `db:"submission_id" json:"submission_id"`
	AssocID      int64       `db:"assoc_id" json:"assoc_id"`
	AuthorID     int64       `db:"author_id" json:"author_id"`
	Title        string      `db:"comment_title" json:"title"`
	Comments     string      `db:"comments" json:"comments"`
	DatePosted   time.Time   `db:"date_posted" json:"date_posted"`
	DateModified *time.Time  `db:"date_modified" json:"date_modified,omitempty"`
	Viewable     bool        `db:"viewable" json:"viewable"`
}
