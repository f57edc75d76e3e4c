package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnwrapValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"plain string passes through", "hello", "hello"},
		{"stringValue", map[string]any{"stringValue": "hi"}, "hi"},
		{"booleanValue", map[string]any{"booleanValue": true}, true},
		{"doubleValue", map[string]any{"doubleValue": 2.5}, 2.5},
		{"integerValue decimal string", map[string]any{"integerValue": "42"}, int64(42)},
		{
			"arrayValue of strings",
			map[string]any{"arrayValue": map[string]any{"values": []any{
				map[string]any{"stringValue": "a"},
				map[string]any{"stringValue": "b"},
			}}},
			[]any{"a", "b"},
		},
		{
			"mapValue",
			map[string]any{"mapValue": map[string]any{"fields": map[string]any{
				"k": map[string]any{"stringValue": "v"},
			}}},
			map[string]any{"k": "v"},
		},
		{"unknown wrapper passes through", map[string]any{"odd": 1}, map[string]any{"odd": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, unwrapValue(tt.in))
		})
	}
}

func TestUnwrapStringList(t *testing.T) {
	t.Run("plain list", func(t *testing.T) {
		got, ok := unwrapStringList([]any{"u1", "u2"})
		assert.True(t, ok)
		assert.Equal(t, []string{"u1", "u2"}, got)
	})

	t.Run("wrapped list drops non-strings", func(t *testing.T) {
		got, ok := unwrapStringList(map[string]any{"arrayValue": map[string]any{"values": []any{
			map[string]any{"stringValue": "u1"},
			map[string]any{"integerValue": "7"},
		}}})
		assert.True(t, ok)
		assert.Equal(t, []string{"u1"}, got)
	})

	t.Run("not a list", func(t *testing.T) {
		_, ok := unwrapStringList("u1")
		assert.False(t, ok)
	})
}

func TestLastPathSegment(t *testing.T) {
	assert.Equal(t, "xyz123", lastPathSegment("sessions/xyz123"))
	assert.Equal(t, "abc", lastPathSegment("projects/p/databases/d/documents/sessions/abc"))
	assert.Equal(t, "bare", lastPathSegment("bare"))
	assert.Equal(t, "", lastPathSegment(""))
}
