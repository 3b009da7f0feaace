//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the entries table is searched directly.
func initFTS(*sql.DB) error { return nil }

func dropFTS(*sql.DB) error { return nil }

func ftsUpsert(*sql.Tx, string, string, string, []string) error { return nil }

func ftsDelete(*sql.Tx, string) {}

// likeEscaper escapes LIKE wildcards so query terms match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches entries containing every whitespace-separated term in the
// title, body or tags. Title hits on the first term sort first.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	conds := make([]string, 0, len(terms))
	args := make([]any, 0, 3*len(terms)+2)
	for _, term := range terms {
		like := "%" + likeEscaper.Replace(term) + "%"
		conds = append(conds, `(title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	args = append(args, "%"+likeEscaper.Replace(terms[0])+"%", limit)

	rows, err := db.conn.Query(`
		SELECT id, path, collection, lang, title, substr(body, 1, 200)
		FROM entries
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY (title LIKE ? ESCAPE '\') DESC, path
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
