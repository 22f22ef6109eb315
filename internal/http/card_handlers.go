package http

import (
	"cmp"
	"context"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go-fed-dashboard/internal/alert"
	"go-fed-dashboard/internal/connectors/director"
	"go-fed-dashboard/internal/connectors/downtime"
	promstore "go-fed-dashboard/internal/connectors/prometheus"
	"go-fed-dashboard/internal/errchain"
	"go-fed-dashboard/internal/guard"
	"go-fed-dashboard/internal/helpers"
)

// card is one server tile: the director's record plus what this service
// knows about it.
type card struct {
	director.ServerGeneral
	Health      *promstore.ServerHealth `json:"health,omitempty"`
	Downtimes   []downtime.Record       `json:"downtimes,omitempty"`
	MetricsPage string                  `json:"metricsPage,omitempty"`
}

func metricsPageLink(s director.ServerGeneral) string {
	kind := s.Kind()
	if kind != string(director.TypeOrigin) && kind != string(director.TypeCache) {
		return ""
	}
	return "/api/v1/metrics/pages/" + kind + "?server_name=" + url.QueryEscape(s.Name)
}

func cardsHandler(dir *director.Client, scraper *promstore.Scraper, downtimes *downtime.Store, d alert.Dispatcher) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !dir.Enabled() {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{"error": "director integration disabled (set FEDBOARD_DIRECTOR_URL)"})
			return
		}
		kind := strings.TrimSpace(r.URL.Query().Get("type"))

		var (
			servers []director.ServerGeneral
			health  []promstore.ServerHealth
			active  []downtime.Record
		)
		g, gctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			start := time.Now()
			out, err := guard.Run(gctx, d, func(ctx context.Context) ([]director.ServerGeneral, error) {
				return dir.Servers(ctx, kind)
			}, guard.WithTitle("Failed to fetch servers"), guard.WithPassError())
			recordExternalProbe("director", "Servers", time.Since(start).Seconds(), err)
			servers = out
			return err
		})
		if scraper.Enabled() {
			g.Go(func() error {
				health = scraper.Health(gctx)
				return nil
			})
		}
		if downtimes != nil {
			g.Go(func() error {
				now := time.Now()
				start := time.Now()
				items, err := downtimes.List(gctx, downtime.Filter{From: now, To: now.Add(time.Millisecond)})
				recordDBQuery("downtime", "List", time.Since(start).Seconds(), err)
				if err == nil {
					active = items
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			writeJSON(w, statusFor(err), map[string]any{"error": errchain.Format(err)})
			return
		}

		healthByName := make(map[string]promstore.ServerHealth, len(health))
		for _, h := range health {
			healthByName[h.Server] = h
		}
		downByName := map[string][]downtime.Record{}
		for _, rec := range active {
			downByName[rec.ServerName] = append(downByName[rec.ServerName], rec)
		}

		cards := make([]card, 0, len(servers))
		for _, s := range servers {
			c := card{ServerGeneral: s, Downtimes: downByName[s.Name], MetricsPage: metricsPageLink(s)}
			if h, ok := healthByName[s.Name]; ok {
				c.Health = &h
			}
			cards = append(cards, c)
		}
		helpers.MultiSort(cards,
			func(a, b card) int { return boolRank(b.Unhealthy()) - boolRank(a.Unhealthy()) },
			func(a, b card) int { return boolRank(a.Filtered) - boolRank(b.Filtered) },
			func(a, b card) int { return cmp.Compare(a.Kind(), b.Kind()) },
			func(a, b card) int { return cmp.Compare(a.Name, b.Name) },
		)

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"type": kind, "count": len(cards), "scraped": len(health)},
			"data": cards,
		})
	}
}

// cardRouter serves /api/v1/cards/{name} and /api/v1/cards/{name}/{allow|filter}.
func cardRouter(dir *director.Client, d alert.Dispatcher) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !dir.Enabled() {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{"error": "director integration disabled (set FEDBOARD_DIRECTOR_URL)"})
			return
		}

		trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/cards/"), "/")
		parts := strings.Split(trimmed, "/")
		if parts[0] == "" || len(parts) > 2 {
			writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "not found"})
			return
		}
		name := parts[0]

		if len(parts) == 1 {
			if r.Method != nethttp.MethodGet {
				methodNotAllowed(w, nethttp.MethodGet)
				return
			}
			cardDetail(w, r, dir, d, name)
			return
		}

		if r.Method != nethttp.MethodPost {
			methodNotAllowed(w, nethttp.MethodPost)
			return
		}
		var (
			op    func(context.Context, string) error
			title string
		)
		switch parts[1] {
		case "allow":
			op, title = dir.AllowServer, "Failed to allow server"
		case "filter":
			op, title = dir.FilterServer, "Failed to filter server"
		default:
			writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "not found"})
			return
		}

		start := time.Now()
		err := guard.Do(r.Context(), d, func(ctx context.Context) error {
			return op(ctx, name)
		}, guard.WithTitle(title), guard.WithPassError())
		recordExternalProbe("director", parts[1], time.Since(start).Seconds(), err)
		if err != nil {
			writeJSON(w, statusFor(err), map[string]any{"error": errchain.Format(err)})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"data": map[string]any{"server": name, "action": parts[1]}})
	}
}

// cardDetail fetches the detailed record. A failure raises an alert and the
// card falls back to the general record.
func cardDetail(w nethttp.ResponseWriter, r *nethttp.Request, dir *director.Client, d alert.Dispatcher, name string) {
	detail, _ := guard.Run(r.Context(), d, func(ctx context.Context) (director.ServerDetailed, error) {
		start := time.Now()
		out, err := dir.Server(ctx, name)
		recordExternalProbe("director", "Server", time.Since(start).Seconds(), err)
		return out, err
	}, guard.WithTitle("Failed to fetch server details"))

	if detail.Name != "" {
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"server": name, "detailed": true},
			"data": detail,
		})
		return
	}

	servers, err := dir.Servers(r.Context(), "")
	if err != nil {
		writeJSON(w, statusFor(err), map[string]any{"error": errchain.Format(err)})
		return
	}
	for _, s := range servers {
		if s.Name == name {
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"server": name, "detailed": false},
				"data": s,
			})
			return
		}
	}
	writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "server not found: " + name})
}

// statusFor maps a director failure onto the response code.
func statusFor(err error) int {
	var se *director.StatusError
	if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
		return se.StatusCode
	}
	return nethttp.StatusBadGateway
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
