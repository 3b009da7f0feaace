// Package bulk applies one set of frontmatter field changes to many content
// records, reporting success or failure per record.
package bulk

import (
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/content"
	"github.com/starford/sitedesk/internal/frontmatter"
)

// Mode selects how array values combine with existing arrays.
type Mode string

// Array modes.
const (
	ModeMerge   Mode = "merge"
	ModeRemove  Mode = "remove"
	ModeReplace Mode = "replace"
)

// Request is a bulk field update. An empty Mode means ModeMerge.
type Request struct {
	Slugs  []string
	Fields *frontmatter.Map
	Mode   Mode
}

// Validate validates the request.
func (r Request) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Slugs, validation.Required, validation.Each(validation.Required)),
		validation.Field(&r.Mode, validation.In(ModeMerge, ModeRemove, ModeReplace)),
	)
	if r.Fields != nil && r.Fields.Len() > 0 {
		return err
	}
	errs, ok := err.(validation.Errors)
	if !ok {
		if err != nil {
			return err
		}
		errs = validation.Errors{}
	}
	errs["fields"] = validation.ErrRequired
	return errs
}

// Outcome is the result for one slug.
type Outcome struct {
	Slug  string `json:"slug"`
	OK    bool   `json:"success"`
	Error string `json:"error,omitempty"`
}

// Report summarises a bulk update. Results follow the request's slug order.
type Report struct {
	Succeeded int       `json:"succeeded"`
	Total     int       `json:"total"`
	Results   []Outcome `json:"results"`
}

// Updater applies bulk requests through a content store.
type Updater struct {
	store  *content.Store
	logger *slog.Logger
}

// NewUpdater creates an updater.
func NewUpdater(store *content.Store, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{store: store, logger: logger}
}

// Apply updates every slug in turn. A failing slug is recorded and never
// stops the rest of the batch; only an invalid request returns an error.
func (u *Updater) Apply(req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("bulk: %w: %w", apperr.ErrInvalid, err)
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeMerge
	}

	rep := &Report{Total: len(req.Slugs), Results: make([]Outcome, 0, len(req.Slugs))}
	for _, slug := range req.Slugs {
		out := Outcome{Slug: slug}
		if err := u.applyOne(slug, req.Fields, mode); err != nil {
			out.Error = reason(err)
			u.logger.Warn("bulk: update failed", slog.String("slug", slug), slog.String("error", err.Error()))
		} else {
			out.OK = true
			rep.Succeeded++
		}
		rep.Results = append(rep.Results, out)
	}
	return rep, nil
}

func (u *Updater) applyOne(slug string, fields *frontmatter.Map, mode Mode) error {
	rec, err := u.store.Read(slug)
	if err != nil {
		return err
	}
	fm := rec.Frontmatter
	for p := fields.Oldest(); p != nil; p = p.Next() {
		existing, _ := fm.Get(p.Key)
		fm.Set(p.Key, MergeField(existing, frontmatter.FromJSON(p.Value), mode))
	}
	return u.store.WriteFile(rec.Entry.Path, fm, rec.Body)
}

func reason(err error) string {
	if errors.Is(err, apperr.ErrNotFound) {
		return "not found"
	}
	return err.Error()
}

// MergeField combines an incoming value with the existing one. Scalars and
// mappings always replace. Arrays follow mode: replace swaps, merge appends
// the incoming elements not already present (existing order first, then
// first occurrences of new ones), remove drops every existing element equal
// to one in incoming.
func MergeField(existing, incoming any, mode Mode) any {
	in, ok := incoming.([]any)
	if !ok || mode == ModeReplace {
		return incoming
	}
	cur := asList(existing)
	switch mode {
	case ModeRemove:
		out := make([]any, 0, len(cur))
		for _, v := range cur {
			if !contains(in, v) {
				out = append(out, v)
			}
		}
		return out
	default:
		out := make([]any, 0, len(cur)+len(in))
		for _, v := range cur {
			if !contains(out, v) {
				out = append(out, v)
			}
		}
		for _, v := range in {
			if !contains(out, v) {
				out = append(out, v)
			}
		}
		return out
	}
}

func asList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return nil
}

func contains(list []any, v any) bool {
	for _, item := range list {
		if frontmatter.Equal(item, v) {
			return true
		}
	}
	return false
}
