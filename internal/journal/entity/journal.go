package entity

import "github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"

// Journal is a hosted journal; it is the tenant context of most requests.
type Journal struct {
	ID            int64
	Path          string
	Seq           float64
	PrimaryLocale string
	Enabled       bool

	Name                dao.LocalizedText
	Description         dao.LocalizedText
	EnableAnnouncements bool
}

// Owner returns the association used by entities the journal owns.
func (j *Journal) Owner() dao.Owner {
	return dao.JournalOwner(j.ID)
}

// Clone returns a copy that shares no maps with j.
func (j *Journal) Clone() *Journal {
	cp := *j
	cp.Name = j.Name.Clone()
	cp.Description = j.Description.Clone()
	return &cp
}
