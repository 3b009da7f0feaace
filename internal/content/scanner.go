package content

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/starford/sitedesk/internal/frontmatter"
	"github.com/starford/sitedesk/internal/storage"
)

// Skipped records a content file left out of a scan and why.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result is the outcome of loading one file: exactly one of Entry and
// Skipped is set.
type Result struct {
	Path     string
	Raw      []byte
	Document *frontmatter.Document
	Entry    *Entry
	Skipped  *Skipped
}

// Scanner walks the content root and decodes every content file.
type Scanner struct {
	store  storage.Provider
	cfg    Config
	logger *slog.Logger
}

// NewScanner creates a scanner over store, whose root is the content root.
func NewScanner(store storage.Provider, cfg Config, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{store: store, cfg: cfg, logger: logger}
}

// Config returns the scanner configuration.
func (s *Scanner) Config() Config { return s.cfg }

// Root returns the absolute content root.
func (s *Scanner) Root() string { return s.store.Root() }

// IsContentPath reports whether rel (slash-separated, root-relative) names a
// file the scanner would load.
func (s *Scanner) IsContentPath(rel string) bool {
	if _, ok := s.cfg.contentExt(rel); !ok {
		return false
	}
	for _, seg := range strings.Split(rel, "/") {
		if hidden(seg) {
			return false
		}
	}
	return !s.cfg.ignored(rel)
}

// Walk loads every content file under the root in lexical order and passes
// each result to fn. Individual file failures are reported as Skipped
// results; only a failure to walk the root itself is returned.
func (s *Scanner) Walk(fn func(Result)) error {
	return s.store.Walk("", func(rel string, d fs.DirEntry) error {
		if d.IsDir() {
			if hidden(d.Name()) || s.cfg.ignored(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !s.IsContentPath(rel) {
			return nil
		}
		fn(s.Load(rel))
		return nil
	})
}

// Load reads and decodes a single root-relative file.
func (s *Scanner) Load(rel string) Result {
	res := Result{Path: rel}
	skip := func(reason string) Result {
		res.Skipped = &Skipped{Path: rel, Reason: reason}
		return res
	}

	ext, ok := s.cfg.contentExt(rel)
	if !ok {
		return skip("not a content file")
	}
	if !strings.Contains(rel, "/") {
		return skip("outside any collection")
	}

	data, err := s.store.Read(rel)
	if err != nil {
		return skip(err.Error())
	}
	res.Raw = data

	doc, err := frontmatter.Decode(data)
	switch {
	case errors.Is(err, frontmatter.ErrNoFrontmatter):
		return skip("no frontmatter")
	case err != nil:
		return skip(err.Error())
	}
	res.Document = doc
	e := newEntry(s.cfg, rel, ext, doc.Frontmatter)
	res.Entry = &e
	return res
}

// Scan returns an entry for every decodable content file and the list of
// files that were skipped. It never fails because of a single bad file.
func (s *Scanner) Scan() ([]Entry, []Skipped, error) {
	entries := []Entry{}
	var skipped []Skipped
	err := s.Walk(func(r Result) {
		if r.Skipped != nil {
			s.logger.Debug("scan: skipped", slog.String("path", r.Path), slog.String("reason", r.Skipped.Reason))
			skipped = append(skipped, *r.Skipped)
			return
		}
		entries = append(entries, *r.Entry)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("content: scan: %w", err)
	}
	return entries, skipped, nil
}

// ScanDir scans root with the default configuration and returns its entries.
func ScanDir(root string) ([]Entry, error) {
	store, err := storage.NewFS(root)
	if err != nil {
		return nil, err
	}
	entries, _, err := NewScanner(store, DefaultConfig(), nil).Scan()
	return entries, err
}

