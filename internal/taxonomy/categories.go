package taxonomy

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/storage"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Category is one entry of the category registry.
type Category struct {
	Slug  string            `yaml:"slug" json:"slug"`
	Names map[string]string `yaml:"names" json:"names"`
	Types []string          `yaml:"types,omitempty" json:"types"`
}

// Validate validates the category.
func (c Category) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Slug, validation.Required, validation.Match(slugPattern)),
		validation.Field(&c.Names, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.Types, validation.Each(validation.Required)),
	)
}

// Categories edits the YAML category registry: a top-level sequence of
// mappings keyed by a unique slug. Edits go through the YAML node tree so
// comments and untouched entries survive.
type Categories struct {
	store storage.Provider
	path  string
}

// NewCategories creates a registry editor for the file at path in store.
func NewCategories(store storage.Provider, path string) *Categories {
	return &Categories{store: store, path: path}
}

// List returns every category in file order.
func (c *Categories) List() ([]Category, error) {
	_, seq, err := c.load()
	if err != nil {
		return nil, err
	}
	out := make([]Category, 0, len(seq.Content))
	for _, item := range seq.Content {
		var cat Category
		if err := item.Decode(&cat); err != nil {
			return nil, fmt.Errorf("categories: line %d: %w", item.Line, err)
		}
		if cat.Types == nil {
			cat.Types = []string{}
		}
		out = append(out, cat)
	}
	return out, nil
}

// Add appends cat. It fails with apperr.ErrConflict when the slug is taken.
func (c *Categories) Add(cat Category) error {
	if err := cat.Validate(); err != nil {
		return fmt.Errorf("categories: %w: %w", apperr.ErrInvalid, err)
	}
	doc, seq, err := c.load()
	if err != nil {
		return err
	}
	if indexOfSlug(seq, cat.Slug) >= 0 {
		return fmt.Errorf("categories: slug %q: %w", cat.Slug, apperr.ErrConflict)
	}
	var item yaml.Node
	if err := item.Encode(cat); err != nil {
		return fmt.Errorf("categories: encode: %w", err)
	}
	seq.Content = append(seq.Content, &item)
	return c.save(doc)
}

// Remove deletes the category with slug.
func (c *Categories) Remove(slug string) error {
	doc, seq, err := c.load()
	if err != nil {
		return err
	}
	i := indexOfSlug(seq, slug)
	if i < 0 {
		return fmt.Errorf("categories: slug %q: %w", slug, apperr.ErrNotFound)
	}
	seq.Content = append(seq.Content[:i], seq.Content[i+1:]...)
	return c.save(doc)
}

// Update is not supported by the registry editor.
func (c *Categories) Update(string, Category) error {
	return fmt.Errorf("categories: update: %w", apperr.ErrNotImplemented)
}

// load returns the document node and its top-level sequence. A missing or
// empty file yields a fresh empty sequence.
func (c *Categories) load() (*yaml.Node, *yaml.Node, error) {
	data, err := c.store.Read(c.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, err
	}
	var doc yaml.Node
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, nil, fmt.Errorf("categories: parse %s: %w", c.path, err)
		}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{seq}}
	}
	seq := doc.Content[0]
	if seq.Kind == yaml.ScalarNode && seq.ShortTag() == "!!null" {
		*seq = yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", HeadComment: seq.HeadComment}
	}
	if seq.Kind != yaml.SequenceNode {
		return nil, nil, fmt.Errorf("categories: %s must contain a list", c.path)
	}
	return &doc, seq, nil
}

func (c *Categories) save(doc *yaml.Node) error {
	seq := doc.Content[0]
	if len(seq.Content) == 0 {
		seq.Style = yaml.FlowStyle
	} else {
		seq.Style &^= yaml.FlowStyle
	}
	data, err := encodeYAML(doc)
	if err != nil {
		return fmt.Errorf("categories: encode: %w", err)
	}
	if err := c.store.WriteWithBackup(c.path, data); err != nil {
		return fmt.Errorf("categories: write: %w", err)
	}
	return nil
}

func indexOfSlug(seq *yaml.Node, slug string) int {
	for i, item := range seq.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			if item.Content[j].Value == "slug" && item.Content[j+1].Value == slug {
				return i
			}
		}
	}
	return -1
}

func encodeYAML(n *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
