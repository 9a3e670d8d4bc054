// Package schema defines the relational schema as an ordered list of migrations.
package schema

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-journal-go/pkg/database"
)

// settingsDDL returns the statements creating an <entity>_settings table.
func settingsDDL(table, idColumn string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE %s (
	%s BIGINT NOT NULL,
	locale VARCHAR(14) NOT NULL DEFAULT '',
	setting_name VARCHAR(255) NOT NULL,
	setting_value TEXT NOT NULL DEFAULT ''
)`, table, idColumn),
		fmt.Sprintf(`CREATE UNIQUE INDEX %s_pkey ON %s (%s, locale, setting_name)`, table, table, idColumn),
	}
}

func ddl(build func(d database.Dialect) []string) database.Step {
	return func(ctx context.Context, tx *sqlx.Tx, d database.Dialect) error {
		return database.Exec(build(d)...)(ctx, tx, d)
	}
}

func createJournals(d database.Dialect) []string {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE journals (
	journal_id %s,
	path VARCHAR(32) NOT NULL,
	seq DOUBLE PRECISION NOT NULL DEFAULT 0,
	primary_locale VARCHAR(14) NOT NULL,
	enabled BOOLEAN NOT NULL DEFAULT TRUE
)`, d.AutoIncrementPK),
		`CREATE UNIQUE INDEX journals_path ON journals (path)`,
	}
	stmts = append(stmts, settingsDDL("journal_settings", "journal_id")...)
	stmts = append(stmts,
		fmt.Sprintf(`CREATE TABLE announcements (
	announcement_id %s,
	assoc_type SMALLINT NOT NULL,
	assoc_id BIGINT,
	type_id BIGINT,
	date_expire DATE,
	date_posted TIMESTAMP NOT NULL
)`, d.AutoIncrementPK),
		`CREATE INDEX announcements_assoc ON announcements (assoc_type, assoc_id)`,
	)
	return append(stmts, settingsDDL("announcement_settings", "announcement_id")...)
}

func createReviewForms(d database.Dialect) []string {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE review_forms (
	review_form_id %s,
	assoc_type SMALLINT NOT NULL,
	assoc_id BIGINT,
	seq DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT FALSE
)`, d.AutoIncrementPK),
		`CREATE INDEX review_forms_assoc ON review_forms (assoc_type, assoc_id)`,
	}
	stmts = append(stmts, settingsDDL("review_form_settings", "review_form_id")...)
	stmts = append(stmts,
		fmt.Sprintf(`CREATE TABLE review_form_elements (
	review_form_element_id %s,
	review_form_id BIGINT NOT NULL,
	seq DOUBLE PRECISION NOT NULL DEFAULT 0,
	element_type BIGINT NOT NULL,
	required BOOLEAN NOT NULL DEFAULT FALSE,
	included BOOLEAN NOT NULL DEFAULT FALSE
)`, d.AutoIncrementPK),
		`CREATE INDEX review_form_elements_review_form_id ON review_form_elements (review_form_id)`,
	)
	stmts = append(stmts, settingsDDL("review_form_element_settings", "review_form_element_id")...)
	return append(stmts,
		`CREATE TABLE review_form_responses (
	review_form_element_id BIGINT NOT NULL,
	review_id BIGINT NOT NULL,
	response_type VARCHAR(6) NOT NULL DEFAULT '',
	response_value TEXT NOT NULL DEFAULT ''
)`,
		`CREATE INDEX review_form_responses_pkey ON review_form_responses (review_form_element_id, review_id)`,
		fmt.Sprintf(`CREATE TABLE review_assignments (
	review_id %s,
	submission_id BIGINT NOT NULL,
	reviewer_id BIGINT NOT NULL,
	review_form_id BIGINT,
	date_assigned TIMESTAMP NOT NULL,
	date_completed TIMESTAMP,
	declined BOOLEAN NOT NULL DEFAULT FALSE
)`, d.AutoIncrementPK),
		`CREATE INDEX review_assignments_review_form_id ON review_assignments (review_form_id)`,
	)
}

func createSubmissionComments(d database.Dialect) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE submission_comments (
	comment_id %s,
	comment_type BIGINT NOT NULL,
	role_id BIGINT NOT NULL,
	submission_id BIGINT NOT NULL,
	assoc_id BIGINT NOT NULL,
	author_id BIGINT NOT NULL,
	comment_title TEXT NOT NULL DEFAULT '',
	comments TEXT NOT NULL DEFAULT '',
	date_posted TIMESTAMP NOT NULL,
	date_modified TIMESTAMP,
	viewable BOOLEAN NOT NULL DEFAULT FALSE
)`, d.AutoIncrementPK),
		`CREATE INDEX submission_comments_submission_id ON submission_comments (submission_id)`,
	}
}

// cleanupOrphans normalizes legacy sentinel parents to the absent-parent marker
// and removes child rows whose parent is gone, so foreign keys can be added.
var cleanupOrphans = []string{
	`UPDATE announcements SET assoc_id = NULL WHERE assoc_type = 2 AND assoc_id = 0`,
	`UPDATE review_forms SET assoc_id = NULL WHERE assoc_type = 2 AND assoc_id = 0`,
	`UPDATE review_assignments SET review_form_id = NULL WHERE review_form_id = 0`,
	`UPDATE review_assignments SET review_form_id = NULL
	WHERE review_form_id IS NOT NULL AND review_form_id NOT IN (SELECT review_form_id FROM review_forms)`,
	`DELETE FROM review_form_elements WHERE review_form_id NOT IN (SELECT review_form_id FROM review_forms)`,
	`DELETE FROM review_form_element_settings
	WHERE review_form_element_id NOT IN (SELECT review_form_element_id FROM review_form_elements)`,
	`DELETE FROM review_form_responses
	WHERE review_form_element_id NOT IN (SELECT review_form_element_id FROM review_form_elements)`,
	`DELETE FROM review_form_settings WHERE review_form_id NOT IN (SELECT review_form_id FROM review_forms)`,
	`DELETE FROM announcement_settings WHERE announcement_id NOT IN (SELECT announcement_id FROM announcements)`,
	`DELETE FROM journal_settings WHERE journal_id NOT IN (SELECT journal_id FROM journals)`,
}

var foreignKeys = []string{
	`ALTER TABLE journal_settings ADD CONSTRAINT journal_settings_journal_id_fk
	FOREIGN KEY (journal_id) REFERENCES journals (journal_id)`,
	`ALTER TABLE announcement_settings ADD CONSTRAINT announcement_settings_announcement_id_fk
	FOREIGN KEY (announcement_id) REFERENCES announcements (announcement_id)`,
	`ALTER TABLE review_form_settings ADD CONSTRAINT review_form_settings_review_form_id_fk
	FOREIGN KEY (review_form_id) REFERENCES review_forms (review_form_id)`,
	`ALTER TABLE review_form_elements ADD CONSTRAINT review_form_elements_review_form_id_fk
	FOREIGN KEY (review_form_id) REFERENCES review_forms (review_form_id)`,
	`ALTER TABLE review_form_element_settings ADD CONSTRAINT review_form_element_settings_element_id_fk
	FOREIGN KEY (review_form_element_id) REFERENCES review_form_elements (review_form_element_id)`,
	`ALTER TABLE review_form_responses ADD CONSTRAINT review_form_responses_element_id_fk
	FOREIGN KEY (review_form_element_id) REFERENCES review_form_elements (review_form_element_id)`,
	`ALTER TABLE review_assignments ADD CONSTRAINT review_assignments_review_form_id_fk
	FOREIGN KEY (review_form_id) REFERENCES review_forms (review_form_id) ON DELETE SET NULL`,
}

func addForeignKeys(ctx context.Context, tx *sqlx.Tx, d database.Dialect) error {
	if err := database.Exec(cleanupOrphans...)(ctx, tx, d); err != nil {
		return fmt.Errorf("cleanup orphans: %w", err)
	}
	// sqlite cannot add constraints to existing tables; the cleanup still runs
	if !d.AddConstraint {
		return nil
	}
	return database.Exec(foreignKeys...)(ctx, tx, d)
}

// scopeComments ties each submission comment to the journal it was posted in.
// Rows written before this migration have no journal and are not served.
func scopeComments(ctx context.Context, tx *sqlx.Tx, d database.Dialect) error {
	stmts := []string{
		`ALTER TABLE submission_comments ADD COLUMN journal_id BIGINT`,
		`CREATE INDEX submission_comments_journal_submission ON submission_comments (journal_id, submission_id)`,
	}
	if d.AddConstraint {
		stmts = append(stmts, `ALTER TABLE submission_comments ADD CONSTRAINT submission_comments_journal_id_fk
	FOREIGN KEY (journal_id) REFERENCES journals (journal_id)`)
	}
	return database.Exec(stmts...)(ctx, tx, d)
}

// Migrations is the ordered schema history.
func Migrations() []database.Migration {
	return []database.Migration{
		{
			Version: 1,
			Name:    "create_journals_and_announcements",
			Up:      ddl(createJournals),
			Down: database.Exec(
				`DROP TABLE announcement_settings`,
				`DROP TABLE announcements`,
				`DROP TABLE journal_settings`,
				`DROP TABLE journals`,
			),
		},
		{
			Version: 2,
			Name:    "create_review_forms",
			Up:      ddl(createReviewForms),
			Down: database.Exec(
				`DROP TABLE review_assignments`,
				`DROP TABLE review_form_responses`,
				`DROP TABLE review_form_element_settings`,
				`DROP TABLE review_form_elements`,
				`DROP TABLE review_form_settings`,
				`DROP TABLE review_forms`,
			),
		},
		{
			Version: 3,
			Name:    "create_submission_comments",
			Up:      ddl(createSubmissionComments),
			Down:    database.Exec(`DROP TABLE submission_comments`),
		},
		{
			Version: 4,
			Name:    "normalize_parents_add_foreign_keys",
			Up:      addForeignKeys,
			// orphaned rows are deleted on the way up
			Down: nil,
		},
		{
			Version: 5,
			Name:    "scope_submission_comments",
			Up:      scopeComments,
			// dropping the column drops its foreign key on postgres
			Down: database.Exec(
				`DROP INDEX submission_comments_journal_submission`,
				`ALTER TABLE submission_comments DROP COLUMN journal_id`,
			),
		},
	}
}

// Latest is the newest schema version.
func Latest() int {
	ms := Migrations()
	return ms[len(ms)-1].Version
}
