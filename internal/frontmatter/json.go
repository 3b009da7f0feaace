package frontmatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseJSON decodes a JSON object keeping the key order of every nested
// object. Blank input yields an empty Map.
func ParseJSON(data []byte) (*Map, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewMap(), nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("json: trailing data after object")
	}
	m, ok := v.(*Map)
	if !ok {
		return nil, errors.New("json: top-level value must be an object")
	}
	return m, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("json: %w", err)
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("json: unexpected object key %v", kt)
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("json: %w", err)
			}
			return m, nil
		case '[':
			out := []any{}
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				out = append(out, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("json: %w", err)
			}
			return out, nil
		}
		return nil, fmt.Errorf("json: unexpected delimiter %v", t)
	case json.Number:
		return FromJSON(t), nil
	}
	return tok, nil
}

// FormatJSON renders v as indented JSON with a trailing newline. HTML
// characters are written as-is and *Map keeps its order.
func FormatJSON(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v, indent, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any, indent string, depth int) error {
	pad := func(d int) {
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat(indent, d))
	}
	switch val := v.(type) {
	case *Map:
		if val == nil {
			buf.WriteString("null")
			return nil
		}
		if val.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteByte('{')
		for p := val.Oldest(); p != nil; p = p.Next() {
			pad(depth + 1)
			if err := writeJSONScalar(buf, p.Key); err != nil {
				return err
			}
			buf.WriteString(": ")
			if err := writeJSON(buf, p.Value, indent, depth+1); err != nil {
				return err
			}
			if p.Next() != nil {
				buf.WriteByte(',')
			}
		}
		pad(depth)
		buf.WriteByte('}')
		return nil
	case []any:
		if len(val) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteByte('[')
		for i, item := range val {
			pad(depth + 1)
			if err := writeJSON(buf, item, indent, depth+1); err != nil {
				return err
			}
			if i < len(val)-1 {
				buf.WriteByte(',')
			}
		}
		pad(depth)
		buf.WriteByte(']')
		return nil
	}
	return writeJSONScalar(buf, v)
}

func writeJSONScalar(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json: %w", err)
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
