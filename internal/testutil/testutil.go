// Package testutil provides shared test helpers for content trees and index databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/sitedesk/internal/content"
	"github.com/starford/sitedesk/internal/index"
	"github.com/starford/sitedesk/internal/storage"
)

// TestDB creates a temporary SQLite index that is closed when the test ends.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Provider creates dir if needed and returns a file system provider rooted
// at it.
func Provider(t *testing.T, dir string) storage.Provider {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	p, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// TestScanner returns a scanner over store using the default content config.
func TestScanner(t *testing.T, store storage.Provider) *content.Scanner {
	t.Helper()
	return content.NewScanner(store, content.DefaultConfig(), QuietLogger())
}

// WriteFile writes data to root/rel, creating parent directories.
func WriteFile(t *testing.T, root, rel, data string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ReadFile returns the contents of root/rel.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// QuietLogger discards all output.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
