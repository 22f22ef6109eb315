package http

import (
	nethttp "net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	promstore "go-fed-dashboard/internal/connectors/prometheus"
	"go-fed-dashboard/internal/metricpage"
)

var errAllWidgetsFailed = errors.New("every widget query failed")

func metricPagesHandler(reg *metricpage.Registry) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		names := reg.Names()
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"count": len(names)},
			"data": names,
		})
	}
}

// metricPageRouter serves /api/v1/metrics/pages/{name} (the composed
// widgets) and /api/v1/metrics/pages/{name}/values (evaluated against the
// time-series backend). Both take an optional server_name filter.
func metricPageRouter(reg *metricpage.Registry, query *promstore.QueryClient, window, step time.Duration) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			methodNotAllowed(w, nethttp.MethodGet)
			return
		}

		trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/metrics/pages/"), "/")
		parts := strings.Split(trimmed, "/")
		if parts[0] == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "values") {
			writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "not found"})
			return
		}

		def, ok := reg.Get(parts[0])
		if !ok {
			writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "unknown metric page: " + parts[0]})
			return
		}
		serverName := strings.TrimSpace(r.URL.Query().Get("server_name"))
		page := def.Compose(serverName)

		if len(parts) == 1 {
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"page": page.Name, "server_name": serverName, "count": len(page.Widgets)},
				"data": page,
			})
			return
		}

		if !query.Enabled() {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{"error": "time-series backend disabled (set FEDBOARD_PROM_QUERY_URL)"})
			return
		}

		start := time.Now()
		values := metricpage.NewEvaluator(query, window, step).Evaluate(r.Context(), page)
		failed := 0
		for _, v := range values {
			if v.Error != "" {
				failed++
			}
		}
		var probeErr error
		if failed > 0 && failed == len(values) {
			probeErr = errAllWidgetsFailed
		}
		recordExternalProbe("timeseries", "QueryRange", time.Since(start).Seconds(), probeErr)

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"page":        page.Name,
				"server_name": serverName,
				"window":      window.String(),
				"step":        step.String(),
				"failed":      failed,
			},
			"data": values,
		})
	}
}
