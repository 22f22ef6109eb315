// Package helpers holds small data utilities shared by the connectors and
// handlers.
package helpers

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// GetObjectValue walks obj through nested maps following keys. It returns
// nil when any step is missing or not a map.
func GetObjectValue(obj any, keys ...string) any {
	current := obj
	for _, k := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[k]
	}
	return current
}

// Average is the arithmetic mean of values. It is NaN for an empty slice.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// MultiSort sorts items in place, using each comparison in turn until one
// returns non-zero.
func MultiSort[T any](items []T, cmps ...func(a, b T) int) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, cmp := range cmps {
			if r := cmp(items[i], items[j]); r != 0 {
				return r < 0
			}
		}
		return false
	})
}

// DeterministicString renders m with sorted keys so equal maps produce equal
// strings. Slice values are skipped; nested maps are rendered recursively.
func DeterministicString(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		switch v := m[k].(type) {
		case []any, []string, []int, []float64:
			continue
		case map[string]any:
			b.WriteString(k + ":" + DeterministicString(v))
		default:
			fmt.Fprintf(&b, "%s:%v", k, v)
		}
	}
	return b.String()
}

// ValueOrFunc holds either a plain value or a function computing it.
type ValueOrFunc[T, F any] struct {
	value T
	fn    func(F) T
}

// Value wraps a fixed value.
func Value[T, F any](v T) ValueOrFunc[T, F] {
	return ValueOrFunc[T, F]{value: v}
}

// Func wraps a function evaluated on demand.
func Func[T, F any](fn func(F) T) ValueOrFunc[T, F] {
	return ValueOrFunc[T, F]{fn: fn}
}

// IsFunc reports whether the holder wraps a function.
func (v ValueOrFunc[T, F]) IsFunc() bool {
	return v.fn != nil
}

// Evaluate returns the wrapped value, calling the function with props when
// one is held.
func (v ValueOrFunc[T, F]) Evaluate(props F) T {
	if v.fn != nil {
		return v.fn(props)
	}
	return v.value
}
