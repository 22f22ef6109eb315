package http

import (
	nethttp "net/http"
	"strconv"

	"go-fed-dashboard/internal/alert"
)

// instrumentedDispatcher counts alert actions before handing them on.
type instrumentedDispatcher struct {
	next alert.Dispatcher
}

func (d instrumentedDispatcher) Dispatch(a alert.Action) {
	recordAlert(string(a.Type))
	if d.next != nil {
		d.next.Dispatch(a)
	}
}

func alertCurrentHandler(store *alert.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		current, ok := store.Current()
		if !ok {
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": nil})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"data": current})
	}
}

func alertRecentHandler(store *alert.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		limit := parseLimit(r, 20)
		items := store.Recent(limit)
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"limit": limit, "count": len(items)},
			"data": items,
		})
	}
}

func alertCloseHandler(store *alert.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			methodNotAllowed(w, nethttp.MethodPost)
			return
		}
		closed := store.Close()
		writeJSON(w, nethttp.StatusOK, map[string]any{"data": map[string]any{"closed": closed}})
	}
}

func parseLimit(r *nethttp.Request, defaultLimit int) int {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	return limit
}
