package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
)

// Announcement is a dated notice published by a journal or by the site.
type Announcement struct {
	ID         int64
	Owner      dao.Owner
	TypeID     *int64
	DateExpire *time.Time
	DatePosted time.Time

	Title            dao.LocalizedText
	DescriptionShort dao.LocalizedText
	Description      dao.LocalizedText
}

// IsExpired reports whether the announcement stopped being visible before now.
// An announcement expires at the end of its expiry day.
func (a *Announcement) IsExpired(now time.Time) bool {
	if a.DateExpire == nil {
		return false
	}
	y, m, d := a.DateExpire.Date()
	endOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return !now.Before(endOfDay)
}
