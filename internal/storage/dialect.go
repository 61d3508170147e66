package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect isolates the SQL differences between SQLite and PostgreSQL.
type dialect struct {
	name       string
	driverName string
	schema     string
	// configure runs once after the pool is opened.
	configure func(db *sql.DB) error
	// placeholder renders the n-th (1-based) bind parameter.
	placeholder       func(n int) string
	isUniqueViolation func(err error) bool
}

func dialectFor(driver string) (*dialect, error) {
	switch driver {
	case DriverSQLite, "":
		return sqliteDialect, nil
	case DriverPostgres:
		return postgresDialect, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// rebind rewrites ? placeholders into the dialect's form.
func (d *dialect) rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var sqliteDialect = &dialect{
	name:       DriverSQLite,
	driverName: "sqlite3",
	schema: `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL,
    client_offset TEXT NOT NULL UNIQUE,
    content TEXT NOT NULL,
    timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);

CREATE TABLE IF NOT EXISTS votes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    day TEXT NOT NULL,
    rover TEXT NOT NULL,
    camera TEXT NOT NULL,
    session INTEGER NOT NULL,
    timestamp INTEGER NOT NULL,
    UNIQUE (user_id, session)
);
`,
	configure: func(db *sql.DB) error {
		// SQLite has a single writer; one connection avoids SQLITE_BUSY under concurrent handlers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		pragmas := []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA busy_timeout = 5000",
		}
		for _, pragma := range pragmas {
			if _, err := db.Exec(pragma); err != nil {
				return fmt.Errorf("failed to execute %q: %w", pragma, err)
			}
		}
		return nil
	},
	placeholder: func(int) string { return "?" },
	isUniqueViolation: func(err error) bool {
		var se sqlite3.Error
		if !errors.As(err, &se) {
			return false
		}
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	},
}

var postgresDialect = &dialect{
	name:       DriverPostgres,
	driverName: "postgres",
	schema: `
CREATE TABLE IF NOT EXISTS messages (
    id BIGSERIAL PRIMARY KEY,
    username TEXT NOT NULL,
    client_offset TEXT NOT NULL UNIQUE,
    content TEXT NOT NULL,
    timestamp BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);

CREATE TABLE IF NOT EXISTS votes (
    id BIGSERIAL PRIMARY KEY,
    user_id TEXT NOT NULL,
    day TEXT NOT NULL,
    rover TEXT NOT NULL,
    camera TEXT NOT NULL,
    session BIGINT NOT NULL,
    timestamp BIGINT NOT NULL,
    UNIQUE (user_id, session)
);
`,
	configure: func(db *sql.DB) error {
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(4)
		return nil
	},
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	isUniqueViolation: func(err error) bool {
		var pe *pq.Error
		return errors.As(err, &pe) && pe.Code == "23505"
	},
}
