package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/announcement/entity"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
)

var settings = dao.SettingsTable{
	Table:    "announcement_settings",
	IDColumn: "announcement_id",
	Fields:   []string{"title", "descriptionShort", "description"},
}

const selectColumns = `SELECT announcement_id, assoc_type, assoc_id, type_id, date_expire, date_posted FROM announcements`

type announcementRow struct {
	ID         int64         `db:"announcement_id"`
	AssocType  int           `db:"assoc_type"`
	AssocID    sql.NullInt64 `db:"assoc_id"`
	TypeID     sql.NullInt64 `db:"type_id"`
	DateExpire sql.NullTime  `db:"date_expire"`
	DatePosted time.Time     `db:"date_posted"`
}

// AnnouncementRepo maps announcements and their settings.
type AnnouncementRepo struct {
	db dao.Handle
}

func NewAnnouncementRepo(db dao.Handle) *AnnouncementRepo { return &AnnouncementRepo{db: db} }

// WithHandle returns a copy bound to h, typically a transaction.
func (r *AnnouncementRepo) WithHandle(h dao.Handle) *AnnouncementRepo {
	return &AnnouncementRepo{db: h}
}

// New returns an unpersisted announcement posted now.
func (r *AnnouncementRepo) New() *entity.Announcement {
	return &entity.Announcement{DatePosted: time.Now().UTC()}
}

func announcementFromRow(row announcementRow) (*entity.Announcement, error) {
	owner, err := dao.OwnerFromColumns(row.AssocType, row.AssocID)
	if err != nil {
		return nil, fmt.Errorf("announcement %d: %w", row.ID, err)
	}
	a := &entity.Announcement{
		ID:         row.ID,
		Owner:      owner,
		DatePosted: row.DatePosted,
	}
	if row.TypeID.Valid {
		v := row.TypeID.Int64
		a.TypeID = &v
	}
	if row.DateExpire.Valid {
		v := row.DateExpire.Time
		a.DateExpire = &v
	}
	return a, nil
}

func applySettings(a *entity.Announcement, s dao.Settings) {
	a.Title = s.Text("title")
	a.DescriptionShort = s.Text("descriptionShort")
	a.Description = s.Text("description")
}

func scanAnnouncement(rows *sqlx.Rows) (*entity.Announcement, error) {
	var row announcementRow
	if err := rows.StructScan(&row); err != nil {
		return nil, err
	}
	return announcementFromRow(row)
}

func (r *AnnouncementRepo) hydrate(ctx context.Context, announcements []*entity.Announcement) error {
	ids := make([]int64, len(announcements))
	for i, a := range announcements {
		ids[i] = a.ID
	}
	all, err := settings.LoadMany(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for _, a := range announcements {
		applySettings(a, all[a.ID])
	}
	return nil
}

func localized(a *entity.Announcement) dao.Settings {
	return dao.Settings{
		"title":            a.Title,
		"descriptionShort": a.DescriptionShort,
		"description":      a.Description,
	}
}

// GetByID fetches an announcement. When owner is given the announcement must
// belong to it, otherwise dao.ErrNotFound is returned.
func (r *AnnouncementRepo) GetByID(ctx context.Context, id int64, owner *dao.Owner) (*entity.Announcement, error) {
	q := selectColumns + ` WHERE announcement_id = ?`
	args := []any{id}
	if owner != nil {
		clause, ownerArgs := dao.OwnerClause("", *owner)
		q += " AND " + clause
		args = append(args, ownerArgs...)
	}
	var row announcementRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(q), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dao.ErrNotFound
		}
		return nil, err
	}
	a, err := announcementFromRow(row)
	if err != nil {
		return nil, err
	}
	s, err := settings.Load(ctx, r.db, a.ID)
	if err != nil {
		return nil, err
	}
	applySettings(a, s)
	return a, nil
}

// GetByOwner returns the owner's announcements, newest first.
func (r *AnnouncementRepo) GetByOwner(owner dao.Owner, rng *dao.Range) *dao.ResultSet[*entity.Announcement] {
	clause, args := dao.OwnerClause("", owner)
	q := selectColumns + ` WHERE ` + clause + ` ORDER BY date_posted DESC, announcement_id DESC`
	return dao.NewResultSet(r.db, q, args, rng, scanAnnouncement).WithHydrator(r.hydrate)
}

// GetNumByOwner counts the owner's announcements.
func (r *AnnouncementRepo) GetNumByOwner(ctx context.Context, owner dao.Owner) (int, error) {
	clause, args := dao.OwnerClause("", owner)
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM announcements WHERE `+clause), args...); err != nil {
		return 0, err
	}
	return n, nil
}

// Insert writes a new announcement and its settings, assigning its id.
func (r *AnnouncementRepo) Insert(ctx context.Context, a *entity.Announcement) (int64, error) {
	if a.ID != 0 {
		return 0, dao.ErrAlreadyPersisted
	}
	if err := a.Owner.Validate(); err != nil {
		return 0, err
	}
	assocType, assocID := a.Owner.Columns()
	id, err := dao.InsertReturningID(ctx, r.db,
		`INSERT INTO announcements (assoc_type, assoc_id, type_id, date_expire, date_posted)
		VALUES (?, ?, ?, ?, ?) RETURNING announcement_id`,
		assocType, assocID, a.TypeID, a.DateExpire, a.DatePosted,
	)
	if err != nil {
		return 0, fmt.Errorf("insert announcement: %w", err)
	}
	a.ID = id
	if err := settings.Insert(ctx, r.db, id, localized(a)); err != nil {
		return 0, err
	}
	return id, nil
}

// Update rewrites the announcement row and replaces its settings.
func (r *AnnouncementRepo) Update(ctx context.Context, a *entity.Announcement) (bool, error) {
	if a.ID == 0 {
		return false, dao.ErrNotPersisted
	}
	if err := a.Owner.Validate(); err != nil {
		return false, err
	}
	assocType, assocID := a.Owner.Columns()
	n, err := dao.Exec(ctx, r.db,
		`UPDATE announcements SET assoc_type = ?, assoc_id = ?, type_id = ?, date_expire = ?, date_posted = ?
		WHERE announcement_id = ?`,
		assocType, assocID, a.TypeID, a.DateExpire, a.DatePosted, a.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update announcement: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if err := settings.Replace(ctx, r.db, a.ID, localized(a)); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a and its settings.
func (r *AnnouncementRepo) Delete(ctx context.Context, a *entity.Announcement) error {
	return r.DeleteByID(ctx, a.ID)
}

// DeleteByID removes an announcement's settings, then the row.
func (r *AnnouncementRepo) DeleteByID(ctx context.Context, id int64) error {
	if err := settings.DeleteAll(ctx, r.db, id); err != nil {
		return err
	}
	if _, err := dao.Exec(ctx, r.db, `DELETE FROM announcements WHERE announcement_id = ?`, id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}

// DeleteByOwner removes every announcement of owner.
func (r *AnnouncementRepo) DeleteByOwner(ctx context.Context, owner dao.Owner) error {
	clause, args := dao.OwnerClause("", owner)
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(`SELECT announcement_id FROM announcements WHERE `+clause), args...); err != nil {
		return err
	}
	for _, id := range ids {
		if err := r.DeleteByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
