package frontmatter

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DecodeNode converts a YAML node into Go values: mappings become *Map (in
// document order), sequences []any, timestamps time.Time and other scalars
// whatever yaml.v3 resolves them to.
func DecodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return DecodeNode(n.Content[0])
	case yaml.AliasNode:
		return DecodeNode(n.Alias)
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			if _, dup := m.Get(k.Value); dup {
				return nil, fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
			}
			val, err := DecodeNode(v)
			if err != nil {
				return nil, err
			}
			m.Set(k.Value, val)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			val, err := DecodeNode(item)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case yaml.ScalarNode:
		return decodeScalar(n)
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node", n.Line)
}

func decodeScalar(n *yaml.Node) (any, error) {
	if n.ShortTag() == "!!timestamp" {
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, err
		}
		return t, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeNode converts a Go value into a YAML node. *Map keeps its order,
// plain maps are emitted with sorted keys.
func EncodeNode(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case nil:
		return nullNode(), nil
	case *Map:
		if val == nil {
			return nullNode(), nil
		}
		n := &yaml.Node{Kind: yaml.MappingNode}
		for p := val.Oldest(); p != nil; p = p.Next() {
			if err := appendPair(n, p.Key, p.Value); err != nil {
				return nil, err
			}
		}
		return n, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range keys {
			if err := appendPair(n, k, val[k]); err != nil {
				return nil, err
			}
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range val {
			child, err := EncodeNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case []string:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range val {
			child, err := EncodeNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case string:
		return stringNode(val)
	case time.Time:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: formatTime(val)}, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(val)}, nil
	case float32:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(float64(val))}, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

func appendPair(n *yaml.Node, key string, value any) error {
	kn, err := EncodeKey(key)
	if err != nil {
		return err
	}
	vn, err := EncodeNode(value)
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	n.Content = append(n.Content, kn, vn)
	return nil
}

// stringNode forces double quotes when a block scalar would not read back
// verbatim: multi-line strings whose first line is empty or indented, and
// strings holding line breaks other than LF. Escapes keep those exact.
func stringNode(s string) (*yaml.Node, error) {
	multiline := strings.Contains(s, "\n") && (s[0] == '\n' || s[0] == ' ' || s[0] == '\t')
	if multiline || strings.ContainsAny(s, "\r\u0085\u2028\u2029") {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s, Style: yaml.DoubleQuotedStyle}, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(s); err != nil {
		return nil, err
	}
	return n, nil
}

// EncodeKey returns the node for a mapping key. Keys holding a line break
// are double-quoted since block scalars as keys do not read back reliably.
func EncodeKey(key string) (*yaml.Node, error) {
	if strings.ContainsAny(key, "\n\r\u0085\u2028\u2029") {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key, Style: yaml.DoubleQuotedStyle}, nil
	}
	return stringNode(key)
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// formatTime writes midnight UTC as a bare date so date-only fields stay dates.
func formatTime(t time.Time) string {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}

// formatFloat always keeps a fractional part or exponent, otherwise the value
// would read back as an integer.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
