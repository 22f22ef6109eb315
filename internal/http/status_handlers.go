package http

import (
	"context"
	nethttp "net/http"
	"time"

	"go-fed-dashboard/internal/connectors/director"
	"go-fed-dashboard/internal/connectors/downtime"
	promstore "go-fed-dashboard/internal/connectors/prometheus"
)

func servicesStatusHandler(dir *director.Client, query *promstore.QueryClient, scraper *promstore.Scraper, downtimes *downtime.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
		defer cancel()

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"generated_at": time.Now().UTC(),
			"services": map[string]any{
				"director":       directorStatus(ctx, dir),
				"timeseries":     queryStatus(ctx, query),
				"scrape_targets": scrapeStatus(ctx, scraper),
				"downtime_store": downtimeStatus(ctx, downtimes),
			},
		})
	}
}

func directorStatus(ctx context.Context, dir *director.Client) map[string]any {
	if !dir.Enabled() {
		return map[string]any{"enabled": false, "ok": false, "error": "director integration disabled"}
	}

	elapsed, err := dir.Ping(ctx)
	recordExternalProbe("director", "Ping", elapsed.Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}

	out := map[string]any{"enabled": true, "ok": true, "ping_ms": elapsed.Milliseconds()}
	if kinds, err := dir.EnabledServers(ctx); err == nil {
		out["enabled_servers"] = kinds
	}
	return out
}

func queryStatus(ctx context.Context, query *promstore.QueryClient) map[string]any {
	if !query.Enabled() {
		return map[string]any{"enabled": false, "ok": false, "error": "time-series backend disabled"}
	}

	elapsed, err := query.Ping(ctx)
	recordExternalProbe("timeseries", "Ping", elapsed.Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "ping_ms": elapsed.Milliseconds()}
}

func scrapeStatus(ctx context.Context, scraper *promstore.Scraper) map[string]any {
	if !scraper.Enabled() {
		return map[string]any{"enabled": false, "ok": false, "error": "server scraping disabled"}
	}

	start := time.Now()
	probes := scraper.Health(ctx)
	recordExternalProbe("scrape_target", "Health", time.Since(start).Seconds(), nil)

	up := 0
	for _, p := range probes {
		if p.OK {
			up++
		}
	}

	return map[string]any{
		"enabled":       true,
		"ok":            up == len(probes) && len(probes) > 0,
		"targets_total": len(probes),
		"targets_up":    up,
		"targets":       probes,
	}
}

func downtimeStatus(ctx context.Context, store *downtime.Store) map[string]any {
	if store == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "downtime store disabled"}
	}

	start := time.Now()
	stats, err := store.ServiceStats(ctx)
	recordDBQuery("downtime", "ServiceStats", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "stats": stats}
}
