// Package index provides a SQLite-backed search index over content entries
// with optional FTS5 full-text search. The index is derived data: it can be
// deleted at any time and rebuilt with Sync.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is stored in PRAGMA user_version. A database written with a
// different version is dropped and recreated on Open; the next Sync refills it.
const schemaVersion = 1

const entriesSQL = `
CREATE TABLE IF NOT EXISTS entries (
	path       TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	collection TEXT NOT NULL DEFAULT '',
	lang       TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	draft      INTEGER NOT NULL DEFAULT 0,
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_entries_collection ON entries(collection);
CREATE INDEX IF NOT EXISTS idx_entries_id ON entries(id);
`

// DB is the content search index.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the index database at dsn.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	// A single connection serialises writers; the watcher and API handlers
	// share it.
	conn.SetMaxOpenConns(1)
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func migrate(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("index: read schema version: %w", err)
	}
	if version != 0 && version != schemaVersion {
		if _, err := conn.Exec(`DROP TABLE IF EXISTS entries`); err != nil {
			return fmt.Errorf("index: drop stale schema: %w", err)
		}
		if err := dropFTS(conn); err != nil {
			return fmt.Errorf("index: drop stale fts: %w", err)
		}
	}
	if _, err := conn.Exec(entriesSQL); err != nil {
		return fmt.Errorf("index: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		return fmt.Errorf("index: apply fts schema: %w", err)
	}
	if _, err := conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("index: write schema version: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
