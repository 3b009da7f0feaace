//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			path UNINDEXED,
			title,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func dropFTS(conn *sql.DB) error {
	_, err := conn.Exec(`DROP TABLE IF EXISTS entries_fts`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, title, body string, tags []string) error {
	ftsDelete(tx, path)
	if _, err := tx.Exec(`INSERT INTO entries_fts (path, title, body, tags) VALUES (?, ?, ?, ?)`,
		path, title, body, strings.Join(tags, " ")); err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM entries_fts WHERE path = ?`, path)
}

// matchExpr quotes every term so user input is never parsed as FTS5 query
// syntax. Terms are ANDed.
func matchExpr(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// Search runs an FTS5 query ranked by bm25 and returns body snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	expr := matchExpr(query)
	if expr == "" {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	rows, err := db.conn.Query(`
		SELECT e.id, e.path, e.collection, e.lang, e.title,
		       snippet(entries_fts, 2, '<b>', '</b>', '...', 64)
		FROM entries_fts
		JOIN entries e ON e.path = entries_fts.path
		WHERE entries_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, expr, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
