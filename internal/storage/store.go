package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"roverchat/internal/structures"
)

// Store is the SQL-backed event log. Conflicting writes are serialised by the database:
// unique indexes on messages.client_offset and votes(user_id, session), plus a single
// connection for SQLite.
type Store struct {
	db      *sql.DB
	dialect *dialect
}

// Open connects to the database and applies the schema. Safe to call repeatedly on the same DSN.
func Open(driver, dsn string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := d.configure(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if _, err := db.Exec(d.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, dialect: d}, nil
}

// NewEventLog opens the configured store. The cleanup closes it.
func NewEventLog(conf *structures.Config) (EventLogInterface, func(), error) {
	s, err := Open(conf.Database.Driver, conf.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) q(query string) string {
	return s.dialect.rebind(query)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
