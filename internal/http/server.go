package http

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"go-fed-dashboard/internal/alert"
	"go-fed-dashboard/internal/config"
	"go-fed-dashboard/internal/connectors/director"
	"go-fed-dashboard/internal/connectors/downtime"
	promstore "go-fed-dashboard/internal/connectors/prometheus"
	"go-fed-dashboard/internal/daterange"
	"go-fed-dashboard/internal/metricpage"
)

// components are the collaborators the routes are wired to. Nil members
// disable the routes that need them.
type components struct {
	cfg       config.Config
	director  *director.Client
	scraper   *promstore.Scraper
	query     *promstore.QueryClient
	downtimes *downtime.Store
	alerts    *alert.Store
	selector  *daterange.Selector
	pages     *metricpage.Registry
}

// Server wraps an HTTP server and route handlers.
type Server struct {
	httpServer *nethttp.Server
	c          components

	pollCancel context.CancelFunc
	pollGroup  *errgroup.Group
}

// NewServer creates a configured HTTP server.
func NewServer(cfg config.Config) (*Server, error) {
	c := components{
		cfg:      cfg,
		alerts:   alert.NewStore(cfg.AlertHistorySize),
		selector: daterange.NewSelector(cfg.Location()),
		pages:    metricpage.NewRegistry(),
	}

	if strings.TrimSpace(cfg.DirectorURL) != "" {
		c.director = director.NewClient(cfg.DirectorURL, director.Options{
			Timeout:   cfg.DirectorTimeout,
			Token:     cfg.DirectorToken,
			CacheSize: cfg.DirectorCacheSize,
			CacheTTL:  cfg.DirectorCacheTTL,
		})
	}
	if strings.TrimSpace(cfg.PromQueryURL) != "" {
		c.query = promstore.NewQueryClient(cfg.PromQueryURL, cfg.PromQueryTimeout)
	}
	if cfg.ScrapeEnabled {
		c.scraper = promstore.NewScraper(promstore.ParseTargets(cfg.ScrapeTargets), cfg.ScrapeTimeout, cfg.ScrapeHistoryMaxPoints)
	}
	if cfg.DowntimeEnabled {
		store, err := downtime.Open(downtime.Options{
			Driver:       cfg.DowntimeDriver,
			SQLitePath:   cfg.DowntimeSQLitePath,
			MySQLDSN:     cfg.MySQLDSN(),
			ConnTimeout:  cfg.DBConnTimeout,
			QueryTimeout: cfg.DBQueryTimeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to open downtime store")
		}
		c.downtimes = store
	}
	if path := strings.TrimSpace(cfg.MetricPagesFile); path != "" {
		defs, err := metricpage.LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, d := range defs {
			c.pages.Add(d)
		}
		log.WithField("file", path).Infof("Loaded %d metric page definitions", len(defs))
	}

	c.alerts.Subscribe(func(a alert.Action, state *alert.Alert) {
		entry := log.WithField("action", a.Type)
		if state != nil {
			entry = entry.WithField("alert_id", state.ID).WithField("title", state.Title)
		}
		entry.Debug("Alert state changed")
	})

	httpServer := &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      loggingMiddleware(observabilityMiddleware(newMux(c))),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{httpServer: httpServer, c: c}, nil
}

func newMux(c components) *nethttp.ServeMux {
	d := instrumentedDispatcher{next: c.alerts}
	loc := c.selector.Location()

	mux := nethttp.NewServeMux()
	mux.HandleFunc("/", dashboardHandler)
	mux.HandleFunc("/favicon.ico", faviconHandler)
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(c))

	mux.HandleFunc("/api/v1/cards", cardsHandler(c.director, c.scraper, c.downtimes, d))
	mux.HandleFunc("/api/v1/cards/", cardRouter(c.director, d))

	mux.HandleFunc("/api/v1/alerts/current", alertCurrentHandler(c.alerts))
	mux.HandleFunc("/api/v1/alerts/recent", alertRecentHandler(c.alerts))
	mux.HandleFunc("/api/v1/alerts/close", alertCloseHandler(c.alerts))

	mux.HandleFunc("/api/v1/calendar/range", calendarRangeHandler(c.selector))
	mux.HandleFunc("/api/v1/calendar/navigate", calendarNavigateHandler(c.selector))
	mux.HandleFunc("/api/v1/calendar/select", calendarSelectHandler(c.selector))
	mux.HandleFunc("/api/v1/calendar/tiles", calendarTilesHandler(c.selector, c.downtimes, c.director, d))

	mux.HandleFunc("/api/v1.0/downtime", downtimeCollectionHandler(c.downtimes, c.selector, loc))
	mux.HandleFunc("/api/v1.0/downtime/", downtimeItemHandler(c.downtimes))

	mux.HandleFunc("/api/v1/metrics/pages", metricPagesHandler(c.pages))
	mux.HandleFunc("/api/v1/metrics/pages/", metricPageRouter(c.pages, c.query, c.cfg.PromQueryRange, c.cfg.PromQueryStep))
	mux.HandleFunc("/api/v1/metrics/scrape/live", scrapeLiveHandler(c.scraper, c.cfg.ScrapeMatchPrefix))
	mux.HandleFunc("/api/v1/metrics/scrape/chart", scrapeChartHandler(c.scraper, c.cfg.ScrapeMatchPrefix))

	mux.HandleFunc("/api/v1/status/services", servicesStatusHandler(c.director, c.query, c.scraper, c.downtimes))
	mux.HandleFunc("/api/v1/settings", settingsHandler(c.cfg, c.pages))
	return mux
}

// ListenAndServe starts background pollers and the HTTP server.
func (s *Server) ListenAndServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.pollCancel = cancel
	s.pollGroup, ctx = errgroup.WithContext(ctx)

	if s.c.scraper.Enabled() {
		s.pollGroup.Go(func() error {
			s.startScrapePoller(ctx)
			return nil
		})
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and pollers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.pollCancel != nil {
		s.pollCancel()
		_ = s.pollGroup.Wait()
	}
	err := s.httpServer.Shutdown(ctx)
	if s.c.downtimes != nil {
		_ = s.c.downtimes.Close()
	}
	return err
}

func (s *Server) startScrapePoller(ctx context.Context) {
	interval := s.c.cfg.ScrapeInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	scrape := func() {
		start := time.Now()
		_, err := s.c.scraper.Scrape(ctx, s.c.cfg.ScrapeMatchPrefix)
		recordExternalProbe("scrape_target", "Scrape", time.Since(start).Seconds(), err)
		if err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("Scrape of federation servers failed")
		}
	}

	scrape()
	for {
		select {
		case <-ctx.Done():
			log.Info("Scrape poller has been terminated")
			return
		case <-ticker.C:
			scrape()
		}
	}
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func readyHandler(c components) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"status": "ready",
			"integrations": map[string]bool{
				"director":  c.director.Enabled(),
				"query":     c.query.Enabled(),
				"scrape":    c.scraper.Enabled(),
				"downtimes": c.downtimes != nil,
			},
		})
	}
}

func loggingMiddleware(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *nethttp.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "invalid JSON body")
	}
	return nil
}

func methodNotAllowed(w nethttp.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}
