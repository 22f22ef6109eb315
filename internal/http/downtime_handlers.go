package http

import (
	nethttp "net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"go-fed-dashboard/internal/connectors/downtime"
	"go-fed-dashboard/internal/daterange"
)

const downtimeDisabled = "downtime store disabled (set FEDBOARD_DOWNTIME_ENABLED=true)"

func requestUser(r *nethttp.Request) string {
	if u := strings.TrimSpace(r.Header.Get("X-Remote-User")); u != "" {
		return u
	}
	return "anonymous"
}

func writeDowntimeError(w nethttp.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, downtime.ErrInvalid):
		writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, downtime.ErrNotFound):
		writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": fallback})
	}
}

// downtimeFilter reads server_name plus either range=selected or
// date_from/date_to (YYYY-MM-DD, date_to inclusive).
func downtimeFilter(r *nethttp.Request, sel *daterange.Selector, loc *time.Location) (downtime.Filter, error) {
	q := r.URL.Query()
	f := downtime.Filter{ServerName: strings.TrimSpace(q.Get("server_name"))}

	if q.Get("range") == "selected" {
		rng, ok := sel.Range()
		if !ok {
			return f, errors.New("no date range selected")
		}
		win := downtime.WindowFilter(rng, loc)
		f.From, f.To = win.From, win.To
		return f, nil
	}

	from, err := parseDay(q.Get("date_from"), loc)
	if err != nil {
		return f, err
	}
	to, err := parseDay(q.Get("date_to"), loc)
	if err != nil {
		return f, err
	}
	f.From = from
	if !to.IsZero() {
		f.To = to.AddDate(0, 0, 1)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, errors.New("date_to must not be before date_from")
	}
	return f, nil
}

func downtimeCollectionHandler(store *downtime.Store, sel *daterange.Selector, loc *time.Location) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{"error": downtimeDisabled})
			return
		}

		switch r.Method {
		case nethttp.MethodGet:
			f, err := downtimeFilter(r, sel, loc)
			if err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			start := time.Now()
			items, err := store.List(r.Context(), f)
			recordDBQuery("downtime", "List", time.Since(start).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to list downtimes"})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": map[string]any{"server_name": f.ServerName, "count": len(items)},
				"data": items,
			})
		case nethttp.MethodPost:
			var in downtime.Input
			if err := decodeJSON(r, &in); err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			start := time.Now()
			rec, err := store.Create(r.Context(), in, requestUser(r))
			recordDBQuery("downtime", "Create", time.Since(start).Seconds(), err)
			if err != nil {
				writeDowntimeError(w, err, "failed to create downtime")
				return
			}
			writeJSON(w, nethttp.StatusCreated, map[string]any{"data": rec})
		default:
			methodNotAllowed(w, nethttp.MethodGet, nethttp.MethodPost)
		}
	}
}

func downtimeItemHandler(store *downtime.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{"error": downtimeDisabled})
			return
		}

		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1.0/downtime/"), "/")
		if id == "" || strings.Contains(id, "/") {
			writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "not found"})
			return
		}

		start := time.Now()
		switch r.Method {
		case nethttp.MethodGet:
			rec, err := store.Get(r.Context(), id)
			recordDBQuery("downtime", "Get", time.Since(start).Seconds(), err)
			if err != nil {
				writeDowntimeError(w, err, "failed to fetch downtime")
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": rec})
		case nethttp.MethodPut:
			var in downtime.Input
			if err := decodeJSON(r, &in); err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			rec, err := store.Update(r.Context(), id, in, requestUser(r))
			recordDBQuery("downtime", "Update", time.Since(start).Seconds(), err)
			if err != nil {
				writeDowntimeError(w, err, "failed to update downtime")
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": rec})
		case nethttp.MethodDelete:
			err := store.Delete(r.Context(), id)
			recordDBQuery("downtime", "Delete", time.Since(start).Seconds(), err)
			if err != nil {
				writeDowntimeError(w, err, "failed to delete downtime")
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
		default:
			methodNotAllowed(w, nethttp.MethodGet, nethttp.MethodPut, nethttp.MethodDelete)
		}
	}
}
