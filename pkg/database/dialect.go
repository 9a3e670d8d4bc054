package database

import "fmt"

// Dialect captures the handful of DDL differences between the supported
// engines. DML is written with '?' placeholders and rebound by sqlx.
type Dialect struct {
	Name   string
	Driver string
	// AutoIncrementPK is the column definition of a generated int64 primary key.
	AutoIncrementPK string
	// AddConstraint reports whether ALTER TABLE ... ADD CONSTRAINT is available.
	AddConstraint bool
}

var (
	Postgres = Dialect{
		Name:            "postgres",
		Driver:          "postgres",
		AutoIncrementPK: "BIGSERIAL PRIMARY KEY",
		AddConstraint:   true,
	}
	SQLite = Dialect{
		Name:            "sqlite",
		Driver:          "sqlite",
		AutoIncrementPK: "INTEGER PRIMARY KEY AUTOINCREMENT",
		AddConstraint:   false,
	}
)

// DialectFor resolves a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "", "postgres", "pq":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}
