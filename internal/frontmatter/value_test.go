package frontmatter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSON_Normalises(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"b":2,"a":{"y":1.5,"x":[1,"two"]}}`), &raw))

	m, ok := FromJSON(raw).(*Map)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, Keys(m))

	b, _ := m.Get("b")
	assert.Equal(t, 2, b)

	a, _ := m.Get("a")
	nested := a.(*Map)
	y, _ := nested.Get("y")
	assert.Equal(t, 1.5, y)
	x, _ := nested.Get("x")
	assert.Equal(t, []any{1, "two"}, x)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(1, 1.0))
	assert.True(t, Equal(int64(3), 3))
	assert.False(t, Equal(1, "1"))
	assert.True(t, Equal([]string{"a"}, []any{"a"}))
	assert.True(t, Equal(mapOf("a", 1, "b", 2), mapOf("b", 2, "a", 1)))
	assert.True(t, Equal(map[string]any{"a": 1}, mapOf("a", 1)))
	assert.False(t, Equal(mapOf("a", 1), mapOf("a", 1, "b", 2)))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, ""))

	t1 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, Equal(t1, t1.In(time.FixedZone("", 3600))))
}

func TestCoerceLike(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, date, CoerceLike(date, "2024-01-15"))
	assert.Equal(t, date, CoerceLike(date, "2024-01-15T00:00:00Z"))
	assert.Equal(t, "soon", CoerceLike(date, "soon"))
	assert.Equal(t, "2024-01-15", CoerceLike("old", "2024-01-15"))
}

func TestParseJSON_KeepsOrder(t *testing.T) {
	m, err := ParseJSON([]byte(`{"z":1,"a":{"k2":"v","k1":true},"m":[1,2.5,null]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, Keys(m))

	a, _ := m.Get("a")
	assert.Equal(t, []string{"k2", "k1"}, Keys(a.(*Map)))

	list, _ := m.Get("m")
	assert.Equal(t, []any{1, 2.5, nil}, list)
}

func TestParseJSON_Errors(t *testing.T) {
	_, err := ParseJSON([]byte(`[1,2]`))
	assert.Error(t, err)

	_, err = ParseJSON([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)

	m, err := ParseJSON([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestFormatJSON(t *testing.T) {
	m := mapOf("nav", mapOf("home", "Home & more"), "n", 1, "list", []any{}, "obj", NewMap())
	out, err := FormatJSON(m, "  ")
	require.NoError(t, err)

	want := "{\n" +
		"  \"nav\": {\n" +
		"    \"home\": \"Home & more\"\n" +
		"  },\n" +
		"  \"n\": 1,\n" +
		"  \"list\": [],\n" +
		"  \"obj\": {}\n" +
		"}\n"
	assert.Equal(t, want, string(out))
}
