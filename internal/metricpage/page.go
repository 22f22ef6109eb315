package metricpage

import (
	"sort"

	"go-fed-dashboard/internal/helpers"
)

// Kind is the display widget a query feeds.
type Kind string

const (
	KindBigMetric         Kind = "big_metric"
	KindBigBytesMetric    Kind = "big_bytes_metric"
	KindTransferRateGraph Kind = "transfer_rate_graph"
	KindCPUGraph          Kind = "cpu_graph"
	KindMemoryGraph       Kind = "memory_graph"
	KindStorageGraph      Kind = "storage_graph"
	KindProjectTable      Kind = "project_table"
)

// IsGraph reports whether the widget plots series rather than one number.
func (k Kind) IsGraph() bool {
	switch k {
	case KindTransferRateGraph, KindCPUGraph, KindMemoryGraph, KindStorageGraph, KindProjectTable:
		return true
	}
	return false
}

// FinalType selects how a big-number widget reduces its series.
type FinalType string

const (
	FinalLast FinalType = "last"
	FinalSum  FinalType = "sum"
	FinalAvg  FinalType = "avg"
)

// Layout sections of a page.
const (
	SectionSidebar = "sidebar"
	SectionGraphs  = "graphs"
	SectionSummary = "summary"
)

// Template is one (query template, widget, options) entry of a page.
type Template struct {
	Key       string
	Title     helpers.ValueOrFunc[string, string]
	Kind      Kind
	Metric    string
	Labels    map[string]string
	Function  string
	Range     string
	FinalType FinalType
	Color     string
	Section   string
	// Global templates ignore the server filter.
	Global bool
}

// Widget is a Template resolved for a concrete server filter.
type Widget struct {
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Kind      Kind      `json:"kind"`
	Query     string    `json:"query"`
	FinalType FinalType `json:"final_type,omitempty"`
	Color     string    `json:"color,omitempty"`
	Section   string    `json:"section"`
}

// Page is a composed metric page.
type Page struct {
	Name       string   `json:"name"`
	ServerName string   `json:"server_name,omitempty"`
	Widgets    []Widget `json:"widgets"`
}

// Definition is a named, static list of templates.
type Definition struct {
	Name      string
	Templates []Template
}

// Resolve substitutes serverName into the template's labels and renders the
// query.
func (t Template) Resolve(serverName string) Widget {
	labels := make(map[string]string, len(t.Labels)+1)
	for k, v := range t.Labels {
		labels[k] = v
	}
	if !t.Global {
		labels[ServerNameLabel] = serverName
	}

	finalType := t.FinalType
	if finalType == "" && !t.Kind.IsGraph() {
		finalType = FinalLast
	}

	return Widget{
		Key:       t.Key,
		Title:     t.Title.Evaluate(serverName),
		Kind:      t.Kind,
		Query:     wrap(BuildMetric(t.Metric, labels), t.Function, t.Range),
		FinalType: finalType,
		Color:     t.Color,
		Section:   t.Section,
	}
}

// Compose resolves every template for serverName, which may be empty.
func (d Definition) Compose(serverName string) Page {
	widgets := make([]Widget, 0, len(d.Templates))
	for _, t := range d.Templates {
		widgets = append(widgets, t.Resolve(serverName))
	}
	return Page{Name: d.Name, ServerName: serverName, Widgets: widgets}
}

// Registry holds the known page definitions by name.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry returns a registry with the built-in origin and cache pages.
func NewRegistry() *Registry {
	r := &Registry{defs: map[string]Definition{}}
	r.Add(OriginDefinition())
	r.Add(CacheDefinition())
	return r
}

// Add registers d, replacing a definition with the same name.
func (r *Registry) Add(d Definition) {
	r.defs[d.Name] = d
}

// Get returns the definition called name.
func (r *Registry) Get(name string) (Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Names returns the registered page names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.defs))
	for n := range r.defs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
