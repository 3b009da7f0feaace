// Package frontmatter reads and writes content files made of a YAML metadata
// block between two "---" lines followed by a free-text body.
//
// Decode and Encode are inverse operations: for any document d,
// Decode(Encode(d.Frontmatter, d.Body)) yields a frontmatter mapping equal to
// d.Frontmatter (see Equal) and a byte-identical body.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

const delimiter = "---"

var bom = []byte("\ufeff")

// ErrNoFrontmatter is returned by Decode when the text does not open with a
// metadata block. Callers treat such files as "not content".
var ErrNoFrontmatter = errors.New("frontmatter: no metadata block")

// ParseError reports a metadata block that is present but malformed.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("frontmatter: malformed metadata: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Map is an insertion-ordered mapping from keys to YAML-compatible values.
type Map = orderedmap.OrderedMap[string, any]

// NewMap returns an empty Map.
func NewMap() *Map {
	return orderedmap.New[string, any]()
}

// Document is a decoded content file.
type Document struct {
	Frontmatter *Map
	Body        string
}

// Decode splits data into its metadata block and body and parses the block.
// It returns ErrNoFrontmatter when the first line is not a delimiter and a
// *ParseError when the block is unterminated or is not a valid YAML mapping.
func Decode(data []byte) (*Document, error) {
	block, body, err := split(bytes.TrimPrefix(data, bom))
	if err != nil {
		return nil, err
	}
	fm, err := parseBlock(block)
	if err != nil {
		return nil, err
	}
	return &Document{Frontmatter: fm, Body: string(body)}, nil
}

// Encode renders fm as a YAML block between delimiters, followed by body.
// An empty or nil mapping produces an empty block.
func Encode(fm *Map, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	if fm != nil && fm.Len() > 0 {
		node, err := EncodeNode(fm)
		if err != nil {
			return nil, fmt.Errorf("frontmatter: encode: %w", err)
		}
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(node); err != nil {
			return nil, fmt.Errorf("frontmatter: encode: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("frontmatter: encode: %w", err)
		}
	}
	buf.WriteString(delimiter + "\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// split returns the bytes between the opening and closing delimiter lines and
// everything after the newline that ends the closing line.
func split(data []byte) (block, body []byte, err error) {
	line, rest := cutLine(data)
	if string(line) != delimiter {
		return nil, nil, ErrNoFrontmatter
	}
	start := len(data) - len(rest)
	for len(rest) > 0 {
		line, next := cutLine(rest)
		if string(line) == delimiter {
			return data[start : len(data)-len(rest)], next, nil
		}
		rest = next
	}
	return nil, nil, &ParseError{Err: errors.New("unterminated metadata block")}
}

// cutLine returns the first line of b without its line ending, and the rest.
func cutLine(b []byte) (line, rest []byte) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return bytes.TrimSuffix(b, []byte("\r")), nil
	}
	return bytes.TrimSuffix(b[:i], []byte("\r")), b[i+1:]
}

func parseBlock(block []byte) (*Map, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(block, &root); err != nil {
		return nil, &ParseError{Err: err}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return NewMap(), nil
	}
	doc := root.Content[0]
	switch {
	case doc.Kind == yaml.ScalarNode && doc.ShortTag() == "!!null":
		return NewMap(), nil
	case doc.Kind != yaml.MappingNode:
		return nil, &ParseError{Err: fmt.Errorf("line %d: metadata must be a mapping", doc.Line)}
	}
	v, err := DecodeNode(doc)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return v.(*Map), nil
}
