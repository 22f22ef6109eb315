package helpers

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetObjectValue(t *testing.T) {
	obj := map[string]any{
		"data": map[string]any{
			"result": []any{1, 2},
			"type":   "matrix",
		},
	}

	assert.Equal(t, "matrix", GetObjectValue(obj, "data", "type"))
	assert.Equal(t, []any{1, 2}, GetObjectValue(obj, "data", "result"))
	assert.Nil(t, GetObjectValue(obj, "data", "missing", "deeper"))
	assert.Nil(t, GetObjectValue(obj, "data", "type", "deeper"))
	assert.Nil(t, GetObjectValue(nil, "data"))
}

func TestAverage(t *testing.T) {
	assert.InDelta(t, 2.5, Average([]float64{1, 2, 3, 4}), 1e-9)
	assert.True(t, math.IsNaN(Average(nil)))
}

func TestMultiSort(t *testing.T) {
	type server struct {
		health string
		name   string
	}
	items := []server{
		{"OK", "b"},
		{"Error", "z"},
		{"OK", "a"},
		{"Error", "c"},
	}
	MultiSort(items,
		func(a, b server) int {
			// Errors first.
			if a.health == b.health {
				return 0
			}
			if a.health == "Error" {
				return -1
			}
			return 1
		},
		func(a, b server) int { return strings.Compare(a.name, b.name) },
	)

	assert.Equal(t, []server{{"Error", "c"}, {"Error", "z"}, {"OK", "a"}, {"OK", "b"}}, items)
}

func TestDeterministicString(t *testing.T) {
	a := map[string]any{"b": 2, "a": "x", "list": []any{3, 1}, "nested": map[string]any{"z": 1, "y": true}}
	b := map[string]any{"nested": map[string]any{"y": true, "z": 1}, "a": "x", "b": 2, "list": []any{1}}

	assert.Equal(t, DeterministicString(a), DeterministicString(b))
	assert.Equal(t, "a:xb:2nested:y:truez:1", DeterministicString(a))
}

func TestValueOrFunc(t *testing.T) {
	v := Value[string, string]("fixed")
	assert.False(t, v.IsFunc())
	assert.Equal(t, "fixed", v.Evaluate("ignored"))

	f := Func(func(name string) string { return "Projects on " + name })
	assert.True(t, f.IsFunc())
	assert.Equal(t, "Projects on origin-1", f.Evaluate("origin-1"))
}
