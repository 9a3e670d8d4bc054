package entity

import "github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"

// ReviewForm is a questionnaire reviewers fill in. CompleteCount and
// IncompleteCount are derived from review assignments and are read-only.
type ReviewForm struct {
	ID     int64
	Owner  dao.Owner
	Seq    float64
	Active bool

	CompleteCount   int
	IncompleteCount int

	Title       dao.LocalizedText
	Description dao.LocalizedText
}

// InUse reports whether any non-declined review assignment uses the form.
func (f *ReviewForm) InUse() bool {
	return f.CompleteCount+f.IncompleteCount > 0
}
