package taxonomy

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sort"
	"strings"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/frontmatter"
	"github.com/starford/sitedesk/internal/storage"
)

const jsonIndent = "  "

// Translations reads and edits the per-language UI string files
// <root>/<lang>.json, each a nested string-valued JSON object.
type Translations struct {
	store storage.Provider
	langs []string
}

// NewTranslations creates a translations editor for langs over store.
func NewTranslations(store storage.Provider, langs []string) *Translations {
	return &Translations{store: store, langs: slices.Clone(langs)}
}

// Languages returns the configured languages in order.
func (t *Translations) Languages() []string { return slices.Clone(t.langs) }

func (t *Translations) file(lang string) string { return lang + ".json" }

// Load returns the translation document for lang. A missing file reads as
// an empty document.
func (t *Translations) Load(lang string) (*frontmatter.Map, error) {
	if !slices.Contains(t.langs, lang) {
		return nil, fmt.Errorf("i18n: language %q: %w", lang, apperr.ErrNotFound)
	}
	data, err := t.store.Read(t.file(lang))
	if errors.Is(err, fs.ErrNotExist) {
		return frontmatter.NewMap(), nil
	}
	if err != nil {
		return nil, err
	}
	doc, err := frontmatter.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("i18n: %s: %w", t.file(lang), err)
	}
	return doc, nil
}

func (t *Translations) loadAll() (map[string]*frontmatter.Map, error) {
	docs := make(map[string]*frontmatter.Map, len(t.langs))
	for _, lang := range t.langs {
		doc, err := t.Load(lang)
		if err != nil {
			return nil, err
		}
		docs[lang] = doc
	}
	return docs, nil
}

// Parity lists, per language, the leaf keys other languages define but
// this one lacks.
type Parity struct {
	Missing map[string][]string `json:"missing"`
	Counts  map[string]int      `json:"counts"`
}

// MissingIn returns the keys lang lacks.
func (p Parity) MissingIn(lang string) []string { return p.Missing[lang] }

// InSync reports whether every language defines the same keys.
func (p Parity) InSync() bool {
	for _, keys := range p.Missing {
		if len(keys) > 0 {
			return false
		}
	}
	return true
}

// Parity loads every translation document and compares their key sets.
func (t *Translations) Parity() (Parity, error) {
	docs, err := t.loadAll()
	if err != nil {
		return Parity{}, err
	}
	return ComputeParity(docs), nil
}

// ComputeParity compares the flattened key sets of docs. Missing key lists
// are sorted.
func ComputeParity(docs map[string]*frontmatter.Map) Parity {
	keys := make(map[string]map[string]bool, len(docs))
	union := map[string]bool{}
	for lang, doc := range docs {
		set := map[string]bool{}
		for _, k := range Flatten(doc) {
			set[k] = true
			union[k] = true
		}
		keys[lang] = set
	}
	p := Parity{Missing: map[string][]string{}, Counts: map[string]int{}}
	for lang, set := range keys {
		missing := []string{}
		for k := range union {
			if !set[k] {
				missing = append(missing, k)
			}
		}
		sort.Strings(missing)
		p.Missing[lang] = missing
		p.Counts[lang] = len(set)
	}
	return p
}

// Flatten returns the dot-joined path of every non-object value in doc, in
// document order.
func Flatten(doc *frontmatter.Map) []string {
	var out []string
	var walk func(prefix string, m *frontmatter.Map)
	walk = func(prefix string, m *frontmatter.Map) {
		for p := m.Oldest(); p != nil; p = p.Next() {
			key := p.Key
			if prefix != "" {
				key = prefix + "." + p.Key
			}
			if child, ok := p.Value.(*frontmatter.Map); ok {
				walk(key, child)
				continue
			}
			out = append(out, key)
		}
	}
	if doc != nil {
		walk("", doc)
	}
	return out
}

// SetKey sets the dot-separated key to values[lang] in every language listed
// in values. All documents are updated in memory first, then written one at
// a time; a failed write does not roll back earlier ones.
func (t *Translations) SetKey(key string, values map[string]string) error {
	segs, err := splitKey(key)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("i18n: no values for %q: %w", key, apperr.ErrInvalid)
	}
	for lang := range values {
		if !slices.Contains(t.langs, lang) {
			return fmt.Errorf("i18n: language %q: %w", lang, apperr.ErrInvalid)
		}
	}

	var changed []string
	docs := map[string]*frontmatter.Map{}
	for _, lang := range t.langs {
		value, ok := values[lang]
		if !ok {
			continue
		}
		doc, err := t.Load(lang)
		if err != nil {
			return err
		}
		if err := setPath(doc, segs, value); err != nil {
			return fmt.Errorf("i18n: %s %q: %w", lang, key, err)
		}
		docs[lang] = doc
		changed = append(changed, lang)
	}
	return t.write(changed, docs)
}

// DeleteKey removes key from every language that has it, pruning parents
// left empty. It fails with apperr.ErrNotFound when no language has the key.
func (t *Translations) DeleteKey(key string) error {
	segs, err := splitKey(key)
	if err != nil {
		return err
	}
	var changed []string
	docs := map[string]*frontmatter.Map{}
	for _, lang := range t.langs {
		doc, err := t.Load(lang)
		if err != nil {
			return err
		}
		if deletePath(doc, segs) {
			docs[lang] = doc
			changed = append(changed, lang)
		}
	}
	if len(changed) == 0 {
		return fmt.Errorf("i18n: key %q: %w", key, apperr.ErrNotFound)
	}
	return t.write(changed, docs)
}

func (t *Translations) write(langs []string, docs map[string]*frontmatter.Map) error {
	for _, lang := range langs {
		data, err := frontmatter.FormatJSON(docs[lang], jsonIndent)
		if err != nil {
			return fmt.Errorf("i18n: encode %s: %w", lang, err)
		}
		if err := t.store.WriteWithBackup(t.file(lang), data); err != nil {
			return fmt.Errorf("i18n: write %s: %w", lang, err)
		}
	}
	return nil
}

func splitKey(key string) ([]string, error) {
	segs := strings.Split(key, ".")
	for _, s := range segs {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("i18n: key %q: %w", key, apperr.ErrInvalid)
		}
	}
	return segs, nil
}

func setPath(doc *frontmatter.Map, segs []string, value string) error {
	m := doc
	for _, seg := range segs[:len(segs)-1] {
		v, ok := m.Get(seg)
		if !ok {
			child := frontmatter.NewMap()
			m.Set(seg, child)
			m = child
			continue
		}
		child, ok := v.(*frontmatter.Map)
		if !ok {
			return fmt.Errorf("%q holds a string: %w", seg, apperr.ErrConflict)
		}
		m = child
	}
	last := segs[len(segs)-1]
	if v, ok := m.Get(last); ok {
		if _, isMap := v.(*frontmatter.Map); isMap {
			return fmt.Errorf("%q holds nested keys: %w", last, apperr.ErrConflict)
		}
	}
	m.Set(last, value)
	return nil
}

func deletePath(m *frontmatter.Map, segs []string) bool {
	if len(segs) == 1 {
		_, ok := m.Delete(segs[0])
		return ok
	}
	v, ok := m.Get(segs[0])
	if !ok {
		return false
	}
	child, ok := v.(*frontmatter.Map)
	if !ok || !deletePath(child, segs[1:]) {
		return false
	}
	if child.Len() == 0 {
		m.Delete(segs[0])
	}
	return true
}
