package frontmatter

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"time"
)

// Keys returns the keys of m in order.
func Keys(m *Map) []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, m.Len())
	for p := m.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// FromJSON normalises a value produced by encoding/json: objects become *Map
// with sorted keys, json.Number and integral float64 become int.
func FromJSON(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			m.Set(k, FromJSON(val[k]))
		}
		return m
	case *Map:
		if val == nil {
			return nil
		}
		for p := val.Oldest(); p != nil; p = p.Next() {
			p.Value = FromJSON(p.Value)
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = FromJSON(item)
		}
		return out
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int(val)
		}
		return val
	}
	return v
}

// Equal reports whether a and b hold the same frontmatter value. Numbers are
// compared by value regardless of Go type, mappings by key set, times with
// time.Time.Equal.
func Equal(a, b any) bool {
	a, b = canonical(a), canonical(b)
	if an, ok := number(a); ok {
		bn, ok := number(b)
		return ok && an == bn
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for p := av.Oldest(); p != nil; p = p.Next() {
			other, ok := bv.Get(p.Key)
			if !ok || !Equal(p.Value, other) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}
	return reflect.DeepEqual(a, b)
}

func canonical(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return FromJSON(val)
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case *Map:
		if val == nil {
			return nil
		}
	}
	return v
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// CoerceLike adapts incoming to the type of existing where JSON loses it:
// a timestamp string replacing a date stays a date.
func CoerceLike(existing, incoming any) any {
	if _, ok := existing.(time.Time); !ok {
		return incoming
	}
	s, ok := incoming.(string)
	if !ok {
		return incoming
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return incoming
}
