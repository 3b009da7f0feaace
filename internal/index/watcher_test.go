package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/sitedesk/internal/content"
)

// watcherTestEnv sets up a content dir, scanner, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, *content.Scanner, *DB) {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "articles"), 0o755); err != nil {
		t.Fatal(err)
	}
	return root, testScanner(t, root), testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

const doc = "---\ntitle: Watched\n---\nbody\n"

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, scanner, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, scanner, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "articles", "new.md"), []byte(doc), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("articles/new.md")
		return cs != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:articles/new.md" {
				return true
			}
		}
		return false
	}, "expected created:articles/new.md callback")
}

func TestWatcher_IgnoresNonContent(t *testing.T) {
	root, scanner, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, scanner, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "articles", "plain.md"), []byte("no frontmatter"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "articles", "ok.md"), []byte(doc), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("articles/ok.md")
		return cs != ""
	}, "content file not indexed")
	if cs, _ := db.GetChecksum("articles/plain.md"); cs != "" {
		t.Error("file without frontmatter should not be indexed")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, scanner, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, scanner, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(root, "books", "fa")
	_ = os.MkdirAll(subDir, 0o755)

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte(doc), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("books/fa/deep.md")
		return cs != ""
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, scanner, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(root, "articles", "del.md"), []byte(doc), 0o644)
	if _, err := Sync(db, scanner, quietLogger()); err != nil {
		t.Fatal(err)
	}

	cs, _ := db.GetChecksum("articles/del.md")
	if cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, scanner, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(root, "articles", "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("articles/del.md")
		return cs == ""
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, scanner, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(root, "articles", "old.md"), []byte(doc), 0o644)
	if _, err := Sync(db, scanner, quietLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, scanner, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(root, "articles", "old.md"), filepath.Join(root, "articles", "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("articles/old.md")
		newCS, _ := db.GetChecksum("articles/renamed.md")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}
