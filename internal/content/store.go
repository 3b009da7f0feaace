package content

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/frontmatter"
	"github.com/starford/sitedesk/internal/storage"
)

// deletedLayout is the UTC timestamp appended to soft-deleted file names.
const deletedLayout = "20060102T150405Z"

// Record is one decoded content file.
type Record struct {
	Entry       Entry            `json:"entry"`
	Frontmatter *frontmatter.Map `json:"frontmatter"`
	Body        string           `json:"body"`
}

// Store resolves ids to files and reads and writes content documents.
// Every write of an existing file first refreshes its .bak sibling.
type Store struct {
	fs      storage.Provider
	scanner *Scanner
	now     func() time.Time
}

// NewStore creates a store over the scanner's provider.
func NewStore(scanner *Scanner) *Store {
	return &Store{fs: scanner.store, scanner: scanner, now: time.Now}
}

// Resolve maps an id (collection/slug) to the root-relative path of the
// first existing candidate file, trying extensions in configured order.
func (s *Store) Resolve(id string) (string, error) {
	id, err := cleanID(id)
	if err != nil {
		return "", err
	}
	for _, ext := range s.scanner.cfg.Extensions {
		rel := id + ext
		ok, err := s.fs.Exists(rel)
		if err != nil {
			return "", fmt.Errorf("content: resolve %s: %w", id, err)
		}
		if ok {
			return rel, nil
		}
	}
	return "", fmt.Errorf("content: %s: %w", id, apperr.ErrNotFound)
}

// Read resolves id and decodes its file.
func (s *Store) Read(id string) (*Record, error) {
	rel, err := s.Resolve(id)
	if err != nil {
		return nil, err
	}
	return s.ReadFile(rel)
}

// ReadFile decodes a root-relative file. A file without frontmatter yields
// frontmatter.ErrNoFrontmatter and malformed metadata a *frontmatter.ParseError,
// both wrapped.
func (s *Store) ReadFile(rel string) (*Record, error) {
	ext, ok := s.scanner.cfg.contentExt(rel)
	if !ok || !strings.Contains(rel, "/") {
		return nil, fmt.Errorf("content: %s is not a content path: %w", rel, apperr.ErrInvalid)
	}
	data, err := s.fs.Read(rel)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("content: %s: %w", rel, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	doc, err := frontmatter.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("content: %s: %w", rel, err)
	}
	return &Record{
		Entry:       newEntry(s.scanner.cfg, rel, ext, doc.Frontmatter),
		Frontmatter: doc.Frontmatter,
		Body:        doc.Body,
	}, nil
}

// WriteFile encodes fm and body and replaces rel wholesale, backing up the
// previous bytes when the file exists.
func (s *Store) WriteFile(rel string, fm *frontmatter.Map, body string) error {
	data, err := frontmatter.Encode(fm, body)
	if err != nil {
		return fmt.Errorf("content: encode %s: %w", rel, err)
	}
	if err := s.fs.WriteWithBackup(rel, data); err != nil {
		return fmt.Errorf("content: write %s: %w", rel, err)
	}
	return nil
}

// Create writes a new document at <collection>/<slug><ext>. It fails with
// apperr.ErrAlreadyExists when any candidate file for the id exists. An empty
// ext selects the first configured extension.
func (s *Store) Create(collection, slug, ext string, fm *frontmatter.Map, body string) (*Record, error) {
	if collection == "" || strings.ContainsAny(collection, `/\`) || hidden(collection) {
		return nil, fmt.Errorf("content: collection %q: %w", collection, apperr.ErrInvalid)
	}
	if ext == "" {
		ext = s.scanner.cfg.Extensions[0]
	}
	if _, ok := s.scanner.cfg.contentExt("x" + ext); !ok {
		return nil, fmt.Errorf("content: extension %q: %w", ext, apperr.ErrInvalid)
	}
	id, err := cleanID(collection + "/" + strings.TrimSuffix(slug, ext))
	if err != nil {
		return nil, err
	}
	_, err = s.Resolve(id)
	switch {
	case err == nil:
		return nil, fmt.Errorf("content: %s: %w", id, apperr.ErrAlreadyExists)
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}
	rel := id + ext
	if err := s.WriteFile(rel, fm, body); err != nil {
		return nil, err
	}
	return s.ReadFile(rel)
}

// Update reads id, applies patch to its frontmatter and optionally replaces
// the body, then writes the merged document. Top-level keys in patch replace
// existing values; a nil value removes the key.
func (s *Store) Update(id string, patch *frontmatter.Map, body *string) (*Record, error) {
	rec, err := s.Read(id)
	if err != nil {
		return nil, err
	}
	fm := rec.Frontmatter
	if patch != nil {
		for p := patch.Oldest(); p != nil; p = p.Next() {
			if p.Value == nil {
				fm.Delete(p.Key)
				continue
			}
			existing, _ := fm.Get(p.Key)
			fm.Set(p.Key, frontmatter.CoerceLike(existing, p.Value))
		}
	}
	newBody := rec.Body
	if body != nil {
		newBody = *body
	}
	if err := s.WriteFile(rec.Entry.Path, fm, newBody); err != nil {
		return nil, err
	}
	return s.ReadFile(rec.Entry.Path)
}

// Replace overwrites id with a full new frontmatter mapping and body.
func (s *Store) Replace(id string, fm *frontmatter.Map, body string) (*Record, error) {
	rel, err := s.Resolve(id)
	if err != nil {
		return nil, err
	}
	if err := s.WriteFile(rel, fm, body); err != nil {
		return nil, err
	}
	return s.ReadFile(rel)
}

// SoftDelete resolves id and soft-deletes its file. It returns the new
// root-relative path.
func (s *Store) SoftDelete(id string) (string, error) {
	rel, err := s.Resolve(id)
	if err != nil {
		return "", err
	}
	return s.SoftDeleteFile(rel)
}

// SoftDeleteFile renames rel to rel.deleted-<UTC timestamp> so a human can
// recover it. The renamed file no longer has a content extension.
func (s *Store) SoftDeleteFile(rel string) (string, error) {
	ok, err := s.fs.Exists(rel)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("content: %s: %w", rel, apperr.ErrNotFound)
	}
	target := rel + ".deleted-" + s.now().UTC().Format(deletedLayout)
	if err := s.fs.Move(rel, target); err != nil {
		return "", fmt.Errorf("content: soft delete %s: %w", rel, err)
	}
	return target, nil
}

// cleanID normalises an id and rejects ids that escape the root or lack a
// collection segment.
func cleanID(id string) (string, error) {
	id = strings.Trim(strings.ReplaceAll(id, `\`, "/"), "/")
	cleaned := path.Clean(id)
	if cleaned != id || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", fmt.Errorf("content: id %q: %w", id, apperr.ErrInvalid)
	}
	collection, slug, ok := strings.Cut(cleaned, "/")
	if !ok || collection == "" || slug == "" || hidden(collection) {
		return "", fmt.Errorf("content: id %q: %w", id, apperr.ErrInvalid)
	}
	return cleaned, nil
}
