package entity

import "time"

// ReviewAssignment asks one reviewer to review one submission, optionally
// with a review form. It is what makes a review form "in use".
type ReviewAssignment struct {
	ID            int64      `db:"review_id"`
	SubmissionID  int64      `db:"submission_id"`
	ReviewerID    int64      `db:"reviewer_id"`
	ReviewFormID  *int64     `db:"review_form_id"`
	DateAssigned  time.Time  `db:"date_assigned"`
	DateCompleted *time.Time `db:"date_completed"`
	Declined      bool       `db:"declined"`
}

// Complete reports whether the reviewer submitted the review.
func (a *ReviewAssignment) Complete() bool {
	return a.DateCompleted != nil
}
