package http

import (
	"context"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"go-fed-dashboard/internal/alert"
	"go-fed-dashboard/internal/connectors/director"
	"go-fed-dashboard/internal/connectors/downtime"
	"go-fed-dashboard/internal/daterange"
	"go-fed-dashboard/internal/guard"
)

type navigateRequest struct {
	ActiveStart string `json:"active_start"`
}

type selectRequest struct {
	Dates []string `json:"dates"`
}

// parseDay reads YYYY-MM-DD in loc. An empty value is the zero time.
func parseDay(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

func rangePayload(sel *daterange.Selector) map[string]any {
	rng, ok := sel.Range()
	meta := map[string]any{"set": ok, "timezone": sel.Location().String()}
	if !ok {
		return map[string]any{"meta": meta, "data": nil}
	}
	loc := sel.Location()
	meta["start"] = rng.Start(loc).Format(time.DateOnly)
	meta["end"] = rng.End(loc).Format(time.DateOnly)
	return map[string]any{"meta": meta, "data": rng}
}

func calendarRangeHandler(sel *daterange.Selector) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, rangePayload(sel))
	}
}

func calendarNavigateHandler(sel *daterange.Selector) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			methodNotAllowed(w, nethttp.MethodPost)
			return
		}
		var req navigateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		active, err := parseDay(req.ActiveStart, sel.Location())
		if err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		sel.NavigateMonth(active)
		writeJSON(w, nethttp.StatusOK, rangePayload(sel))
	}
}

func calendarSelectHandler(sel *daterange.Selector) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			methodNotAllowed(w, nethttp.MethodPost)
			return
		}
		var req selectRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		if len(req.Dates) != 2 {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "dates must hold exactly two values"})
			return
		}
		first, err := parseDay(req.Dates[0], sel.Location())
		if err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		second, err := parseDay(req.Dates[1], sel.Location())
		if err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}

		changed := sel.Select(first, second)
		payload := rangePayload(sel)
		payload["meta"].(map[string]any)["changed"] = changed
		writeJSON(w, nethttp.StatusOK, payload)
	}
}

// calendarTilesHandler lays out the selected range (the current month when
// nothing is selected) with local and director-published downtimes.
func calendarTilesHandler(sel *daterange.Selector, store *downtime.Store, dir *director.Client, d alert.Dispatcher) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		loc := sel.Location()
		rng, ok := sel.Range()
		if !ok {
			now := time.Now().In(loc)
			rng = daterange.MonthRange(now.Year(), now.Month(), loc)
		}

		records := make([]downtime.Record, 0)
		seen := map[string]struct{}{}
		add := func(items []downtime.Record) {
			for _, rec := range items {
				if _, dup := seen[rec.ID]; dup && rec.ID != "" {
					continue
				}
				seen[rec.ID] = struct{}{}
				records = append(records, rec)
			}
		}

		sources := []string{}
		if store != nil {
			start := time.Now()
			items, err := store.List(r.Context(), downtime.WindowFilter(rng, loc))
			recordDBQuery("downtime", "List", time.Since(start).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to list downtimes"})
				return
			}
			add(items)
			sources = append(sources, "local")
		}
		if dir.Enabled() {
			published, _ := guard.Run(r.Context(), d, func(ctx context.Context) ([]downtime.Record, error) {
				start := time.Now()
				out, err := dir.Downtimes(ctx)
				recordExternalProbe("director", "Downtimes", time.Since(start).Seconds(), err)
				return out, err
			}, guard.WithTitle("Failed to fetch federation downtime"))
			_, to := rng.Window(loc)
			inWindow := make([]downtime.Record, 0, len(published))
			for _, rec := range published {
				start, end := rec.Interval(to)
				if rng.Overlaps(start, end, loc) {
					inWindow = append(inWindow, rec)
				}
			}
			add(inWindow)
			sources = append(sources, "director")
		}

		tiles := downtime.Tiles(records, rng, loc)
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"start":     rng.Start(loc).Format(time.DateOnly),
				"end":       rng.End(loc).Format(time.DateOnly),
				"selected":  ok,
				"sources":   sources,
				"downtimes": len(records),
			},
			"data": tiles,
		})
	}
}
