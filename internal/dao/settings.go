package dao

import (
	"context"
	"fmt"
	"slices"

	"github.com/jmoiron/sqlx"
)

// Settings is the loaded content of a settings table for one entity:
// field name -> locale -> value. Unlocalized settings use the "" locale.
type Settings map[string]LocalizedText

// Text returns the localized values of field (never nil).
func (s Settings) Text(field string) LocalizedText {
	if t, ok := s[field]; ok && t != nil {
		return t
	}
	return LocalizedText{}
}

// Value returns the unlocalized value of field.
func (s Settings) Value(field string) string {
	return s[field].Get("")
}

// SettingsTable describes an <entity>_settings table keyed by
// (IDColumn, locale, setting_name).
type SettingsTable struct {
	Table    string
	IDColumn string
	// Fields lists the setting names this table may hold.
	Fields []string
}

type settingRow struct {
	Locale string `db:"locale"`
	Name   string `db:"setting_name"`
	Value  string `db:"setting_value"`
}

func (t SettingsTable) declared(name string) bool {
	return slices.Contains(t.Fields, name)
}

func (t SettingsTable) check(values Settings) error {
	for name, text := range values {
		if !t.declared(name) {
			return fmt.Errorf("%w: %s.%s", ErrUndeclaredSetting, t.Table, name)
		}
		for locale := range text {
			if err := ValidateLocale(locale); err != nil {
				return fmt.Errorf("%s.%s: %w", t.Table, name, err)
			}
		}
	}
	return nil
}

// Load reads every setting of entity id.
func (t SettingsTable) Load(ctx context.Context, h Handle, id int64) (Settings, error) {
	q := h.Rebind(fmt.Sprintf("SELECT locale, setting_name, setting_value FROM %s WHERE %s = ?", t.Table, t.IDColumn))
	var rows []settingRow
	if err := h.SelectContext(ctx, &rows, q, id); err != nil {
		return nil, fmt.Errorf("load %s: %w", t.Table, err)
	}
	out := Settings{}
	for _, r := range rows {
		text := out[r.Name]
		text.Set(r.Locale, r.Value)
		out[r.Name] = text
	}
	return out, nil
}

type entitySettingRow struct {
	EntityID int64  `db:"entity_id"`
	Locale   string `db:"locale"`
	Name     string `db:"setting_name"`
	Value    string `db:"setting_value"`
}

// LoadMany reads the settings of every entity in ids with one query. Each id
// gets an entry, empty when it has no settings.
func (t SettingsTable) LoadMany(ctx context.Context, h Handle, ids []int64) (map[int64]Settings, error) {
	out := make(map[int64]Settings, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	for _, id := range ids {
		out[id] = Settings{}
	}
	q, args, err := sqlx.In(fmt.Sprintf("SELECT %s AS entity_id, locale, setting_name, setting_value FROM %s WHERE %s IN (?)",
		t.IDColumn, t.Table, t.IDColumn), ids)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t.Table, err)
	}
	var rows []entitySettingRow
	if err := h.SelectContext(ctx, &rows, h.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("load %s: %w", t.Table, err)
	}
	for _, r := range rows {
		s := out[r.EntityID]
		text := s[r.Name]
		text.Set(r.Locale, r.Value)
		s[r.Name] = text
	}
	return out, nil
}

// Insert writes values for entity id. It does not remove existing rows.
func (t SettingsTable) Insert(ctx context.Context, h Handle, id int64, values Settings) error {
	if err := t.check(values); err != nil {
		return err
	}
	q := h.Rebind(fmt.Sprintf("INSERT INTO %s (%s, locale, setting_name, setting_value) VALUES (?, ?, ?, ?)", t.Table, t.IDColumn))
	for _, name := range t.Fields {
		text, ok := values[name]
		if !ok {
			continue
		}
		for _, locale := range text.Locales() {
			if _, err := h.ExecContext(ctx, q, id, locale, name, text[locale]); err != nil {
				return fmt.Errorf("insert %s.%s[%s]: %w", t.Table, name, locale, err)
			}
		}
	}
	return nil
}

// Replace rewrites every declared field of entity id: each field's rows are
// deleted and the new locale values inserted. Declared fields absent from
// values end up with no rows.
func (t SettingsTable) Replace(ctx context.Context, h Handle, id int64, values Settings) error {
	if err := t.check(values); err != nil {
		return err
	}
	del := h.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND setting_name = ?", t.Table, t.IDColumn))
	for _, name := range t.Fields {
		if _, err := h.ExecContext(ctx, del, id, name); err != nil {
			return fmt.Errorf("clear %s.%s: %w", t.Table, name, err)
		}
	}
	return t.Insert(ctx, h, id, values)
}

// DeleteAll removes every setting of entity id.
func (t SettingsTable) DeleteAll(ctx context.Context, h Handle, id int64) error {
	q := h.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.Table, t.IDColumn))
	if _, err := h.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("delete %s: %w", t.Table, err)
	}
	return nil
}
