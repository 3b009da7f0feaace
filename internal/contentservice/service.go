// Package contentservice coordinates the content store, the taxonomy files,
// the site config and the optional search index for the API and MCP layers.
package contentservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/bulk"
	"github.com/starford/sitedesk/internal/content"
	"github.com/starford/sitedesk/internal/frontmatter"
	"github.com/starford/sitedesk/internal/index"
	"github.com/starford/sitedesk/internal/siteconfig"
	"github.com/starford/sitedesk/internal/taxonomy"
)

// Publisher receives a notification after every content write.
type Publisher interface {
	PublishContentEvent(kind, path string)
}

// Filter narrows a catalog listing. Zero fields match everything.
type Filter struct {
	Collection string
	Lang       string
	Tag        string
	Draft      *bool
}

func (f Filter) match(e content.Entry) bool {
	if f.Collection != "" && e.Collection != f.Collection {
		return false
	}
	if f.Lang != "" && e.Lang != f.Lang {
		return false
	}
	if f.Draft != nil && e.Draft != *f.Draft {
		return false
	}
	if f.Tag != "" {
		want := taxonomy.NormalizeTag(f.Tag)
		for _, t := range e.Tags {
			if taxonomy.NormalizeTag(t) == want {
				return true
			}
		}
		return false
	}
	return true
}

// Catalog is the result of a full content scan.
type Catalog struct {
	Entries []content.Entry   `json:"entries"`
	Skipped []content.Skipped `json:"skipped"`
	Total   int               `json:"total"`
}

// Service is the single entry point used by the transports.
type Service struct {
	scanner      *content.Scanner
	store        *content.Store
	updater      *bulk.Updater
	translations *taxonomy.Translations
	categories   *taxonomy.Categories
	site         *siteconfig.Site

	db     index.EntryIndex
	events Publisher
	logger *slog.Logger
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

// WithIndex keeps db in sync after writes and enables Search.
func WithIndex(db index.EntryIndex) Option {
	return func(s *Service) { s.db = db }
}

// WithPublisher announces content writes to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a service over the given scanner and auxiliary files.
func New(scanner *content.Scanner, translations *taxonomy.Translations, categories *taxonomy.Categories, site *siteconfig.Site, opts ...Option) *Service {
	s := &Service{
		scanner:      scanner,
		store:        content.NewStore(scanner),
		translations: translations,
		categories:   categories,
		site:         site,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.updater = bulk.NewUpdater(s.store, s.logger)
	return s
}

// Config returns the content layout configuration.
func (s *Service) Config() content.Config { return s.scanner.Config() }

// Catalog scans the content root and returns the entries matching f.
// Skipped files are always reported in full.
func (s *Service) Catalog(_ context.Context, f Filter) (*Catalog, error) {
	entries, skipped, err := s.scanner.Scan()
	if err != nil {
		return nil, err
	}
	out := &Catalog{Entries: []content.Entry{}, Skipped: skipped}
	if out.Skipped == nil {
		out.Skipped = []content.Skipped{}
	}
	for _, e := range entries {
		if f.match(e) {
			out.Entries = append(out.Entries, e)
		}
	}
	out.Total = len(out.Entries)
	return out, nil
}

// Get reads a single record by id.
func (s *Service) Get(_ context.Context, id string) (*content.Record, error) {
	return s.store.Read(id)
}

// Create writes a new record and announces it.
func (s *Service) Create(_ context.Context, collection, slug, ext string, fm *frontmatter.Map, body string) (*content.Record, error) {
	rec, err := s.store.Create(collection, slug, ext, fm, body)
	if err != nil {
		return nil, err
	}
	s.changed(index.EventCreated, rec.Entry.Path)
	return rec, nil
}

// Update merges patch into the record's frontmatter and optionally replaces
// its body.
func (s *Service) Update(_ context.Context, id string, patch *frontmatter.Map, body *string) (*content.Record, error) {
	rec, err := s.store.Update(id, patch, body)
	if err != nil {
		return nil, err
	}
	s.changed(index.EventUpdated, rec.Entry.Path)
	return rec, nil
}

// Replace overwrites the record's frontmatter and body wholesale.
func (s *Service) Replace(_ context.Context, id string, fm *frontmatter.Map, body string) (*content.Record, error) {
	rec, err := s.store.Replace(id, fm, body)
	if err != nil {
		return nil, err
	}
	s.changed(index.EventUpdated, rec.Entry.Path)
	return rec, nil
}

// Delete soft-deletes the record and returns the path it was moved to.
func (s *Service) Delete(_ context.Context, id string) (string, error) {
	rel, err := s.store.Resolve(id)
	if err != nil {
		return "", err
	}
	moved, err := s.store.SoftDeleteFile(rel)
	if err != nil {
		return "", err
	}
	s.changed(index.EventDeleted, rel)
	return moved, nil
}

// Bulk applies a field update to many records. Per-slug failures are part of
// the report, not the error.
func (s *Service) Bulk(_ context.Context, req bulk.Request) (*bulk.Report, error) {
	rep, err := s.updater.Apply(req)
	if err != nil {
		return nil, err
	}
	for _, out := range rep.Results {
		if !out.OK {
			continue
		}
		if rel, err := s.store.Resolve(out.Slug); err == nil {
			s.changed(index.EventUpdated, rel)
		}
	}
	return rep, nil
}

// Search queries the index. It is unavailable when the service runs
// without one.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("contentservice: search: empty query: %w", apperr.ErrInvalid)
	}
	if s.db == nil {
		return nil, fmt.Errorf("contentservice: search index disabled: %w", apperr.ErrNotImplemented)
	}
	return s.db.Search(query, limit)
}

// Tags aggregates tag usage over the current catalog.
func (s *Service) Tags(_ context.Context) ([]taxonomy.TagStat, error) {
	entries, _, err := s.scanner.Scan()
	if err != nil {
		return nil, err
	}
	return taxonomy.Tags(entries), nil
}

// RenameTag is not implemented.
func (s *Service) RenameTag(_ context.Context, from, to string) error {
	return fmt.Errorf("contentservice: rename tag %q to %q: %w", from, to, apperr.ErrNotImplemented)
}

// MergeTags is not implemented.
func (s *Service) MergeTags(_ context.Context, from []string, into string) error {
	return fmt.Errorf("contentservice: merge %d tags into %q: %w", len(from), into, apperr.ErrNotImplemented)
}

// DeleteTag is not implemented.
func (s *Service) DeleteTag(_ context.Context, tag string) error {
	return fmt.Errorf("contentservice: delete tag %q: %w", tag, apperr.ErrNotImplemented)
}

// Languages lists the configured translation languages.
func (s *Service) Languages() []string { return s.translations.Languages() }

// Translation returns one translation document.
func (s *Service) Translation(_ context.Context, lang string) (*frontmatter.Map, error) {
	return s.translations.Load(lang)
}

// Parity compares the leaf keys of every translation document.
func (s *Service) Parity(_ context.Context) (taxonomy.Parity, error) {
	return s.translations.Parity()
}

// SetTranslation writes key in each language given in values.
func (s *Service) SetTranslation(_ context.Context, key string, values map[string]string) error {
	if err := s.translations.SetKey(key, values); err != nil {
		return err
	}
	s.logger.Info("i18n: key set", slog.String("key", key), slog.Int("languages", len(values)))
	return nil
}

// DeleteTranslation removes key from every language.
func (s *Service) DeleteTranslation(_ context.Context, key string) error {
	if err := s.translations.DeleteKey(key); err != nil {
		return err
	}
	s.logger.Info("i18n: key deleted", slog.String("key", key))
	return nil
}

// Categories lists the category registry.
func (s *Service) Categories(_ context.Context) ([]taxonomy.Category, error) {
	return s.categories.List()
}

// AddCategory appends a category to the registry.
func (s *Service) AddCategory(_ context.Context, cat taxonomy.Category) error {
	return s.categories.Add(cat)
}

// UpdateCategory is not implemented.
func (s *Service) UpdateCategory(_ context.Context, slug string, cat taxonomy.Category) error {
	return s.categories.Update(slug, cat)
}

// RemoveCategory deletes a category from the registry.
func (s *Service) RemoveCategory(_ context.Context, slug string) error {
	return s.categories.Remove(slug)
}

// Site returns the site configuration mapping.
func (s *Service) Site(_ context.Context) (*frontmatter.Map, error) {
	return s.site.Get()
}

// PatchSite replaces or adds top-level site configuration keys.
func (s *Service) PatchSite(_ context.Context, fields *frontmatter.Map) (*frontmatter.Map, error) {
	return s.site.Patch(fields)
}

// changed refreshes the index row for rel and publishes the event. Index
// failures are logged; the file write has already succeeded.
func (s *Service) changed(kind, rel string) {
	if s.db != nil {
		var err error
		if kind == index.EventDeleted {
			err = s.db.DeleteEntry(rel)
		} else if r := s.scanner.Load(rel); r.Skipped == nil {
			err = index.IndexResult(s.db, r)
		} else {
			err = s.db.DeleteEntry(rel)
		}
		if err != nil {
			s.logger.Warn("index: refresh failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
	}
	if s.events != nil {
		s.events.PublishContentEvent(kind, rel)
	}
}
