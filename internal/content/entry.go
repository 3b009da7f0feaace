package content

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/sitedesk/internal/frontmatter"
)

// Entry is the listing projection of one content file. It is rebuilt on
// every scan and never persisted.
type Entry struct {
	ID         string
	Collection string
	Slug       string
	Path       string // slash-separated, relative to the content root
	Lang       string
	Draft      bool
	Tags       []string
	// Frontmatter is the full decoded mapping the derived fields came from.
	Frontmatter *frontmatter.Map
}

// derived are the keys an Entry computes itself; frontmatter values under
// these names are not passed through.
var derived = []string{"id", "collection", "slug", "path", "lang", "draft", "tags"}

// MarshalJSON writes the derived fields followed by every other frontmatter
// key in document order.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := frontmatter.NewMap()
	out.Set("id", e.ID)
	out.Set("collection", e.Collection)
	out.Set("slug", e.Slug)
	out.Set("path", e.Path)
	out.Set("lang", e.Lang)
	out.Set("draft", e.Draft)
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	out.Set("tags", tags)
	if e.Frontmatter != nil {
		for p := e.Frontmatter.Oldest(); p != nil; p = p.Next() {
			if _, taken := out.Get(p.Key); taken {
				continue
			}
			out.Set(p.Key, p.Value)
		}
	}
	return json.Marshal(out)
}

// Title returns the frontmatter title, if it is a string.
func (e Entry) Title() string {
	if e.Frontmatter == nil {
		return ""
	}
	v, _ := e.Frontmatter.Get("title")
	s, _ := v.(string)
	return s
}

// newEntry derives an Entry from a root-relative path and its frontmatter.
// rel must contain a collection segment and a configured extension.
func newEntry(cfg Config, rel, ext string, fm *frontmatter.Map) Entry {
	collection, rest, _ := strings.Cut(rel, "/")
	slug := strings.TrimSuffix(rest, ext)
	if fm == nil {
		fm = frontmatter.NewMap()
	}
	e := Entry{
		ID:          collection + "/" + slug,
		Collection:  collection,
		Slug:        slug,
		Path:        rel,
		Frontmatter: fm,
		Tags:        []string{},
	}

	v, _ := fm.Get("lang")
	e.Lang, _ = v.(string)
	if e.Lang == "" {
		e.Lang = cfg.DefaultLang
		if first, _, found := strings.Cut(slug, "/"); found && cfg.isLanguage(first) {
			e.Lang = first
		}
	}

	if v, ok := fm.Get("draft"); ok {
		e.Draft, _ = v.(bool)
	}

	if v, ok := fm.Get("tags"); ok {
		e.Tags = tagList(v)
	}
	return e
}

func tagList(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return []string{}
		}
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			switch s := item.(type) {
			case nil:
			case string:
				out = append(out, s)
			default:
				out = append(out, fmt.Sprint(s))
			}
		}
		return out
	}
	return []string{}
}
