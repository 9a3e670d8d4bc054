package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	announcementrepo "github.com/ovaphlow/pitchfork/service-journal-go/internal/announcement/repo"
	commentrepo "github.com/ovaphlow/pitchfork/service-journal-go/internal/comment/repo"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/journal/entity"
	reviewformrepo "github.com/ovaphlow/pitchfork/service-journal-go/internal/reviewform/repo"
)

var settings = dao.SettingsTable{
	Table:    "journal_settings",
	IDColumn: "journal_id",
	Fields:   []string{"name", "description", "enableAnnouncements"},
}

const selectColumns = `SELECT journal_id, path, seq, primary_locale, enabled FROM journals`

type journalRow struct {
	ID            int64   `db:"journal_id"`
	Path          string  `db:"path"`
	Seq           float64 `db:"seq"`
	PrimaryLocale string  `db:"primary_locale"`
	Enabled       bool    `db:"enabled"`
}

// JournalRepo maps journals and their settings.
type JournalRepo struct {
	db dao.Handle
}

func NewJournalRepo(db dao.Handle) *JournalRepo { return &JournalRepo{db: db} }

// WithHandle returns a copy bound to h, typically a transaction.
func (r *JournalRepo) WithHandle(h dao.Handle) *JournalRepo { return &JournalRepo{db: h} }

// New returns an unpersisted, enabled journal.
func (r *JournalRepo) New() *entity.Journal {
	return &entity.Journal{PrimaryLocale: "en_US", Enabled: true}
}

func journalFromRow(row journalRow) *entity.Journal {
	return &entity.Journal{
		ID:            row.ID,
		Path:          row.Path,
		Seq:           row.Seq,
		PrimaryLocale: row.PrimaryLocale,
		Enabled:       row.Enabled,
	}
}

func applyJournalSettings(j *entity.Journal, s dao.Settings) {
	j.Name = s.Text("name")
	j.Description = s.Text("description")
	j.EnableAnnouncements, _ = strconv.ParseBool(s.Value("enableAnnouncements"))
}

func scanJournal(rows *sqlx.Rows) (*entity.Journal, error) {
	var row journalRow
	if err := rows.StructScan(&row); err != nil {
		return nil, err
	}
	return journalFromRow(row), nil
}

func (r *JournalRepo) hydrate(ctx context.Context, journals []*entity.Journal) error {
	ids := make([]int64, len(journals))
	for i, j := range journals {
		ids[i] = j.ID
	}
	all, err := settings.LoadMany(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for _, j := range journals {
		applyJournalSettings(j, all[j.ID])
	}
	return nil
}

func journalSettings(j *entity.Journal) dao.Settings {
	return dao.Settings{
		"name":                j.Name,
		"description":         j.Description,
		"enableAnnouncements": dao.LocalizedText{"": strconv.FormatBool(j.EnableAnnouncements)},
	}
}

func (r *JournalRepo) getOne(ctx context.Context, where string, arg any) (*entity.Journal, error) {
	var row journalRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(selectColumns+where), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dao.ErrNotFound
		}
		return nil, err
	}
	j := journalFromRow(row)
	s, err := settings.Load(ctx, r.db, j.ID)
	if err != nil {
		return nil, err
	}
	applyJournalSettings(j, s)
	return j, nil
}

func (r *JournalRepo) GetByID(ctx context.Context, id int64) (*entity.Journal, error) {
	return r.getOne(ctx, ` WHERE journal_id = ?`, id)
}

// GetByPath fetches a journal by its URL path.
func (r *JournalRepo) GetByPath(ctx context.Context, path string) (*entity.Journal, error) {
	return r.getOne(ctx, ` WHERE path = ?`, path)
}

// GetAll returns journals in sequence order.
func (r *JournalRepo) GetAll(enabledOnly bool, rng *dao.Range) *dao.ResultSet[*entity.Journal] {
	q := selectColumns
	var args []any
	if enabledOnly {
		q += ` WHERE enabled = ?`
		args = append(args, true)
	}
	q += ` ORDER BY seq, journal_id`
	return dao.NewResultSet(r.db, q, args, rng, scanJournal).WithHydrator(r.hydrate)
}

// Insert writes a new journal and its settings, assigning its id.
func (r *JournalRepo) Insert(ctx context.Context, j *entity.Journal) (int64, error) {
	if j.ID != 0 {
		return 0, dao.ErrAlreadyPersisted
	}
	if j.Path == "" {
		return 0, fmt.Errorf("journal path is required")
	}
	if err := dao.ValidateLocale(j.PrimaryLocale); err != nil || j.PrimaryLocale == "" {
		return 0, fmt.Errorf("journal primary locale %q: %w", j.PrimaryLocale, dao.ErrInvalidLocale)
	}
	id, err := dao.InsertReturningID(ctx, r.db,
		`INSERT INTO journals (path, seq, primary_locale, enabled) VALUES (?, ?, ?, ?) RETURNING journal_id`,
		j.Path, j.Seq, j.PrimaryLocale, j.Enabled,
	)
	if err != nil {
		return 0, fmt.Errorf("insert journal: %w", err)
	}
	j.ID = id
	if err := settings.Insert(ctx, r.db, id, journalSettings(j)); err != nil {
		return 0, err
	}
	return id, nil
}

// Update rewrites the journal row and replaces its settings.
func (r *JournalRepo) Update(ctx context.Context, j *entity.Journal) (bool, error) {
	if j.ID == 0 {
		return false, dao.ErrNotPersisted
	}
	n, err := dao.Exec(ctx, r.db,
		`UPDATE journals SET path = ?, seq = ?, primary_locale = ?, enabled = ? WHERE journal_id = ?`,
		j.Path, j.Seq, j.PrimaryLocale, j.Enabled, j.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update journal: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if err := settings.Replace(ctx, r.db, j.ID, journalSettings(j)); err != nil {
		return false, err
	}
	return true, nil
}

func (r *JournalRepo) Delete(ctx context.Context, j *entity.Journal) error {
	return r.DeleteByID(ctx, j.ID)
}

// DeleteByID removes the journal's review forms, announcements and
// submission comments, then its settings, then the row.
func (r *JournalRepo) DeleteByID(ctx context.Context, id int64) error {
	owner := dao.JournalOwner(id)
	if err := reviewformrepo.NewReviewFormRepo(r.db).DeleteByOwner(ctx, owner); err != nil {
		return err
	}
	if err := announcementrepo.NewAnnouncementRepo(r.db).DeleteByOwner(ctx, owner); err != nil {
		return err
	}
	if err := commentrepo.NewCommentRepo(r.db).DeleteByJournal(ctx, id); err != nil {
		return err
	}
	if err := settings.DeleteAll(ctx, r.db, id); err != nil {
		return err
	}
	if _, err := dao.Exec(ctx, r.db, `DELETE FROM journals WHERE journal_id = ?`, id); err != nil {
		return fmt.Errorf("delete journal: %w", err)
	}
	return nil
}

// Resequence renumbers all journals 1..N in their current order.
func (r *JournalRepo) Resequence(ctx context.Context) error {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT journal_id FROM journals ORDER BY seq, journal_id`); err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := dao.Exec(ctx, r.db, `UPDATE journals SET seq = ? WHERE journal_id = ?`, float64(i+1), id); err != nil {
			return fmt.Errorf("resequence journal %d: %w", id, err)
		}
	}
	return nil
}
