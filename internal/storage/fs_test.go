package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("---\ntitle: Hello\n---\nWorld\n")
	if err := s.Write("post.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("post.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadMissingIsNotExist(t *testing.T) {
	s := tempRoot(t)
	_, err := s.Read("nope.md")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteKeepsMode(t *testing.T) {
	s := tempRoot(t)
	abs := filepath.Join(s.Root(), "mode.md")
	if err := os.WriteFile(abs, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("mode.md", []byte("y")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	if err := s.Write("fresh.md", []byte("z")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, _ = os.Stat(filepath.Join(s.Root(), "fresh.md"))
	if info.Mode().Perm() != 0o644 {
		t.Errorf("new file mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestWriteWithBackup(t *testing.T) {
	s := tempRoot(t)

	if err := s.WriteWithBackup("doc.md", []byte("v1")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if ok, _ := s.Exists("doc.md" + BackupSuffix); ok {
		t.Fatal("no backup expected for a new file")
	}

	if err := s.WriteWithBackup("doc.md", []byte("v2")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	bak, err := s.Read("doc.md" + BackupSuffix)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(bak) != "v1" {
		t.Errorf("backup = %q, want v1", bak)
	}

	// Backups hold only the most recent prior version.
	if err := s.WriteWithBackup("doc.md", []byte("v3")); err != nil {
		t.Fatalf("third write: %v", err)
	}
	bak, _ = s.Read("doc.md" + BackupSuffix)
	if string(bak) != "v2" {
		t.Errorf("backup = %q, want v2", bak)
	}
	cur, _ := s.Read("doc.md")
	if string(cur) != "v3" {
		t.Errorf("current = %q, want v3", cur)
	}
}

func TestExists(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("dir/file.md", []byte("x"))

	cases := map[string]bool{
		"dir/file.md":  true,
		"dir":          false,
		"dir/other.md": false,
	}
	for p, want := range cases {
		got, err := s.Exists(p)
		if err != nil {
			t.Fatalf("Exists(%q): %v", p, err)
		}
		if got != want {
			t.Errorf("Exists(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("old.md", []byte("data"))
	if err := s.Move("old.md", "sub/new.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/new.md")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.md"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestWalk(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("articles/en/a.md", []byte("a"))
	_ = s.Write("articles/fa/b.mdx", []byte("b"))
	_ = s.Write(".git/config", []byte("x"))
	_ = s.Write("top.txt", []byte("t"))

	var files []string
	err := s.Walk("", func(rel string, d fs.DirEntry) error {
		if d.IsDir() && d.Name() == ".git" {
			return fs.SkipDir
		}
		if !d.IsDir() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []string{"articles/en/a.md", "articles/fa/b.mdx", "top.txt"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestWalkSubdirRelativeToRoot(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("articles/en/a.md", []byte("a"))
	_ = s.Write("books/b.md", []byte("b"))

	var files []string
	if err := s.Walk("articles", func(rel string, d fs.DirEntry) error {
		if !d.IsDir() {
			files = append(files, rel)
		}
		return nil
	}); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(files) != 1 || files[0] != "articles/en/a.md" {
		t.Errorf("files = %v", files)
	}
}

func TestWalkMissingDir(t *testing.T) {
	s := tempRoot(t)
	err := s.Walk("missing", func(string, fs.DirEntry) error { return nil })
	if err == nil {
		t.Fatal("expected error walking a missing dir")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if err := s.WriteWithBackup(p, []byte("x")); err == nil {
			t.Errorf("expected error for backup write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.root, ".sitedesk-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "sitedesk-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
