// Package metricpage composes the dashboard's metric pages: fixed lists of
// query templates, each bound to a display widget, parameterised by an
// optional server name.
package metricpage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ServerNameLabel is the label that carries the optional server filter.
const ServerNameLabel = "server_name"

// BuildMetric renders a PromQL instant-vector selector for name. Labels with
// empty values are dropped so an unset server filter matches every server.
func BuildMetric(name string, labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k, v := range labels {
		if v != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return name
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.Quote(labels[k]))
	}
	return fmt.Sprintf("%s{%s}", name, strings.Join(parts, ","))
}

// wrap applies fn over a range selector, e.g. rate(sel[5m]).
func wrap(selector, fn, rng string) string {
	if fn == "" {
		return selector
	}
	if rng == "" {
		return fmt.Sprintf("%s(%s)", fn, selector)
	}
	return fmt.Sprintf("%s(%s[%s])", fn, selector, rng)
}
