package dao

import (
	"database/sql"
	"fmt"
)

// AssocType identifies the kind of parent an entity belongs to.
type AssocType int

const (
	AssocTypeJournal AssocType = 1
	AssocTypeSite    AssocType = 2
)

func (t AssocType) String() string {
	switch t {
	case AssocTypeJournal:
		return "journal"
	case AssocTypeSite:
		return "site"
	default:
		return fmt.Sprintf("assoc(%d)", int(t))
	}
}

// Owner is the parent of an owned entity. It is a closed union: a journal
// owner carries the journal id, the site owner carries none and is stored
// with a NULL assoc_id.
type Owner struct {
	Type AssocType
	ID   int64
}

func JournalOwner(journalID int64) Owner { return Owner{Type: AssocTypeJournal, ID: journalID} }

func SiteOwner() Owner { return Owner{Type: AssocTypeSite} }

// Validate reports whether o is one of the known parent kinds with a usable id.
func (o Owner) Validate() error {
	switch o.Type {
	case AssocTypeJournal:
		if o.ID <= 0 {
			return fmt.Errorf("journal owner requires a positive id, got %d", o.ID)
		}
		return nil
	case AssocTypeSite:
		if o.ID != 0 {
			return fmt.Errorf("site owner carries no id, got %d", o.ID)
		}
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownAssocType, int(o.Type))
	}
}

// JournalID returns the owning journal id, if the owner is a journal.
func (o Owner) JournalID() (int64, bool) {
	if o.Type != AssocTypeJournal {
		return 0, false
	}
	return o.ID, true
}

// Columns returns the assoc_type and assoc_id column values.
func (o Owner) Columns() (int, sql.NullInt64) {
	if o.Type == AssocTypeSite {
		return int(o.Type), sql.NullInt64{}
	}
	return int(o.Type), sql.NullInt64{Int64: o.ID, Valid: true}
}

func (o Owner) String() string {
	if o.Type == AssocTypeSite {
		return "site"
	}
	return fmt.Sprintf("%s:%d", o.Type, o.ID)
}

// OwnerFromColumns rebuilds an Owner from stored assoc columns.
func OwnerFromColumns(assocType int, assocID sql.NullInt64) (Owner, error) {
	switch AssocType(assocType) {
	case AssocTypeJournal:
		if !assocID.Valid {
			return Owner{}, fmt.Errorf("journal owner stored without id")
		}
		return JournalOwner(assocID.Int64), nil
	case AssocTypeSite:
		return SiteOwner(), nil
	default:
		return Owner{}, fmt.Errorf("%w: %d", ErrUnknownAssocType, assocType)
	}
}

// OwnerClause returns a WHERE fragment and its args matching o on the given
// column prefix (e.g. "rf." or "").
func OwnerClause(prefix string, o Owner) (string, []any) {
	t, id := o.Columns()
	if !id.Valid {
		return prefix + "assoc_type = ? AND " + prefix + "assoc_id IS NULL", []any{t}
	}
	return prefix + "assoc_type = ? AND " + prefix + "assoc_id = ?", []any{t, id.Int64}
}
