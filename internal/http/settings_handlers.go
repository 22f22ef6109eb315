package http

import (
	nethttp "net/http"

	"go-fed-dashboard/internal/config"
	"go-fed-dashboard/internal/metricpage"
)

// settingsHandler exposes the non-secret runtime settings.
func settingsHandler(cfg config.Config, pages *metricpage.Registry) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": map[string]any{
				"timezone":            cfg.Location().String(),
				"director_url":        cfg.DirectorURL,
				"director_auth":       cfg.DirectorToken != "",
				"director_cache_ttl":  cfg.DirectorCacheTTL.String(),
				"prom_query_url":      cfg.PromQueryURL,
				"prom_query_range":    cfg.PromQueryRange.String(),
				"prom_query_step":     cfg.PromQueryStep.String(),
				"metric_pages":        pages.Names(),
				"scrape_enabled":      cfg.ScrapeEnabled,
				"scrape_targets":      len(cfg.ScrapeTargets),
				"scrape_match_prefix": cfg.ScrapeMatchPrefix,
				"scrape_interval":     cfg.ScrapeInterval.String(),
				"downtime_enabled":    cfg.DowntimeEnabled,
				"downtime_driver":     cfg.DowntimeDriver,
				"alert_history_size":  cfg.AlertHistorySize,
			},
		})
	}
}
