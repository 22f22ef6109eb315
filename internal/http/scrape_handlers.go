package http

import (
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	promstore "go-fed-dashboard/internal/connectors/prometheus"
)

const scrapeDisabled = "server scraping disabled (set FEDBOARD_SCRAPE_ENABLED=true)"

func scrapeLiveHandler(scraper *promstore.Scraper, defaultPrefix string) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !scraper.Enabled() {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{"error": scrapeDisabled})
			return
		}

		prefix := strings.TrimSpace(r.URL.Query().Get("match"))
		if prefix == "" {
			prefix = defaultPrefix
		}

		start := time.Now()
		snaps, err := scraper.Scrape(r.Context(), prefix)
		recordExternalProbe("scrape_target", "Scrape", time.Since(start).Seconds(), err)
		if err != nil && len(snaps) == 0 {
			writeJSON(w, nethttp.StatusBadGateway, map[string]any{"error": "failed to scrape federation servers"})
			return
		}

		meta := map[string]any{"match": prefix, "targets": len(snaps)}
		if err != nil {
			meta["partial"] = true
			meta["warning"] = err.Error()
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"meta": meta, "data": snaps})
	}
}

// scrapeChartHandler returns recorded history for one server/metric. Without
// a metric it lists the targets and the metric names seen for server.
func scrapeChartHandler(scraper *promstore.Scraper, defaultPrefix string) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !scraper.Enabled() {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{"error": scrapeDisabled})
			return
		}

		targets := scraper.Targets()
		server := strings.TrimSpace(r.URL.Query().Get("server"))
		if server == "" {
			server = targets[0].Server
		}

		metric := strings.TrimSpace(r.URL.Query().Get("metric"))
		minutes := 60
		if raw := strings.TrimSpace(r.URL.Query().Get("minutes")); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 24*60*7 {
				minutes = v
			}
		}

		start := time.Now()
		_, scrapeErr := scraper.Scrape(r.Context(), defaultPrefix)
		recordExternalProbe("scrape_target", "Scrape", time.Since(start).Seconds(), scrapeErr)

		if metric == "" {
			names := make([]string, 0, len(targets))
			for _, t := range targets {
				names = append(names, t.Server)
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"server": server, "minutes": minutes},
				"data": map[string]any{
					"servers":       names,
					"known_metrics": scraper.KnownMetrics(server),
				},
			})
			return
		}

		since := time.Now().UTC().Add(-time.Duration(minutes) * time.Minute)
		points := scraper.Series(server, metric, since)
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"server":  server,
				"metric":  metric,
				"minutes": minutes,
				"count":   len(points),
			},
			"data": points,
		})
	}
}
