package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const defaultSearchLimit = 20

// Row represents a row in the entries table.
type Row struct {
	Path       string
	ID         string
	Collection string
	Lang       string
	Title      string
	Checksum   string
	Tags       []string
	Draft      bool
	UpdatedAt  time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	Collection string `json:"collection"`
	Lang       string `json:"lang"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
}

// UpsertEntry inserts or replaces an entry and its FTS row within a transaction.
func (db *DB) UpsertEntry(r Row, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO entries (path, id, collection, lang, title, checksum, tags, draft, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			id         = excluded.id,
			collection = excluded.collection,
			lang       = excluded.lang,
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			draft      = excluded.draft,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, r.Path, r.ID, r.Collection, r.Lang, r.Title, r.Checksum, string(tagsJSON), r.Draft, body, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert entry: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.Path, r.Title, body, tags); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteEntry removes an entry and its FTS row.
func (db *DB) DeleteEntry(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM entries WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete entry: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for an entry, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM entries WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed entry.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed entries.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Path, &r.Collection, &r.Lang, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
