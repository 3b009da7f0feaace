// Package siteconfig reads and patches the site's YAML configuration file
// (title, author, social links, navigation) without disturbing comments or
// keys the patch does not name.
package siteconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/frontmatter"
	"github.com/starford/sitedesk/internal/storage"
)

// Site edits one YAML mapping file.
type Site struct {
	store storage.Provider
	path  string
}

// New creates a Site for the file at path in store.
func New(store storage.Provider, path string) *Site {
	return &Site{store: store, path: path}
}

// Get returns the configuration as an ordered mapping. A missing file is
// reported as apperr.ErrNotFound.
func (s *Site) Get() (*frontmatter.Map, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	v, err := frontmatter.DecodeNode(doc.Content[0])
	if err != nil {
		return nil, fmt.Errorf("siteconfig: %s: %w", s.path, err)
	}
	return v.(*frontmatter.Map), nil
}

// Patch replaces or adds every top-level key in fields; a nil value removes
// the key. Comments attached to replaced keys are kept.
func (s *Site) Patch(fields *frontmatter.Map) (*frontmatter.Map, error) {
	if fields == nil || fields.Len() == 0 {
		return nil, fmt.Errorf("siteconfig: empty patch: %w", apperr.ErrInvalid)
	}
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	root := doc.Content[0]
	for p := fields.Oldest(); p != nil; p = p.Next() {
		i := keyIndex(root, p.Key)
		if p.Value == nil {
			if i >= 0 {
				root.Content = append(root.Content[:i], root.Content[i+2:]...)
			}
			continue
		}
		existing := any(nil)
		if i >= 0 {
			existing, _ = frontmatter.DecodeNode(root.Content[i+1])
		}
		vn, err := frontmatter.EncodeNode(frontmatter.CoerceLike(existing, p.Value))
		if err != nil {
			return nil, fmt.Errorf("siteconfig: encode %q: %w", p.Key, err)
		}
		if i >= 0 {
			old := root.Content[i+1]
			vn.LineComment = old.LineComment
			root.Content[i+1] = vn
			continue
		}
		kn, err := frontmatter.EncodeKey(p.Key)
		if err != nil {
			return nil, fmt.Errorf("siteconfig: encode key %q: %w", p.Key, err)
		}
		root.Content = append(root.Content, kn, vn)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("siteconfig: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("siteconfig: encode: %w", err)
	}
	if err := s.store.WriteWithBackup(s.path, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("siteconfig: write: %w", err)
	}
	return s.Get()
}

func (s *Site) load() (*yaml.Node, error) {
	data, err := s.store.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("siteconfig: %s: %w", s.path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("siteconfig: parse %s: %w", s.path, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("siteconfig: %s must contain a mapping", s.path)
	}
	return &doc, nil
}

func keyIndex(m *yaml.Node, key string) int {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i
		}
	}
	return -1
}
