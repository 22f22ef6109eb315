package prometheus

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go-fed-dashboard/internal/helpers"
)

// Series is one labelled time series returned by a range query.
type Series struct {
	Metric map[string]string `json:"metric"`
	Points []Point           `json:"points"`
}

// QueryClient talks to the HTTP query API of a Prometheus-compatible backend.
type QueryClient struct {
	endpoint string
	http     *http.Client
}

func NewQueryClient(endpoint string, timeout time.Duration) *QueryClient {
	return &QueryClient{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *QueryClient) Enabled() bool {
	return c != nil && c.endpoint != ""
}

// QueryRange evaluates query over [start, end] at step resolution.
func (c *QueryClient) QueryRange(ctx context.Context, query string, start, end time.Time, step time.Duration) ([]Series, error) {
	if !c.Enabled() {
		return nil, errors.New("time-series backend not configured")
	}
	if step <= 0 {
		step = time.Minute
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("start", strconv.FormatInt(start.Unix(), 10))
	params.Set("end", strconv.FormatInt(end.Unix(), 10))
	params.Set("step", strconv.FormatInt(int64(step.Seconds()), 10))

	body, err := c.get(ctx, "/api/v1/query_range", params)
	if err != nil {
		return nil, err
	}
	return parseMatrix(body)
}

// Ping checks the backend answers a trivial instant query.
func (c *QueryClient) Ping(ctx context.Context) (time.Duration, error) {
	if !c.Enabled() {
		return 0, errors.New("time-series backend not configured")
	}
	start := time.Now()
	params := url.Values{}
	params.Set("query", "1")
	_, err := c.get(ctx, "/api/v1/query", params)
	return time.Since(start), err
}

func (c *QueryClient) get(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build query request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query time-series backend")
	}
	defer resp.Body.Close()

	blob, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read query response")
	}

	var decoded map[string]any
	if err := json.Unmarshal(blob, &decoded); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, errors.Errorf("time-series backend status=%d", resp.StatusCode)
		}
		return nil, errors.Wrap(err, "failed to decode query response")
	}

	if status, _ := decoded["status"].(string); status != "success" {
		msg, _ := decoded["error"].(string)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, errors.Errorf("query failed with status %d: %s", resp.StatusCode, msg)
	}
	return decoded, nil
}

// parseMatrix extracts data.result from a range query response. Entries that
// do not look like series are logged and skipped.
func parseMatrix(body map[string]any) ([]Series, error) {
	if rt, _ := helpers.GetObjectValue(body, "data", "resultType").(string); rt != "" && rt != "matrix" {
		return nil, errors.Errorf("unexpected result type %q", rt)
	}

	raw, ok := helpers.GetObjectValue(body, "data", "result").([]any)
	if !ok {
		log.Warn("Query response has no data.result; treating as empty")
		return []Series{}, nil
	}

	out := make([]Series, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			log.WithField("entry", item).Warn("Skipping malformed series entry")
			continue
		}
		s := Series{Metric: map[string]string{}}
		if labels, ok := entry["metric"].(map[string]any); ok {
			for k, v := range labels {
				if sv, ok := v.(string); ok {
					s.Metric[k] = sv
				}
			}
		}
		values, _ := entry["values"].([]any)
		for _, v := range values {
			p, ok := parseSample(v)
			if !ok {
				continue
			}
			s.Points = append(s.Points, p)
		}
		out = append(out, s)
	}
	return out, nil
}

// parseSample reads a [<unix seconds>, "<value>"] pair.
func parseSample(v any) (Point, bool) {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return Point{}, false
	}
	ts, ok := pair[0].(float64)
	if !ok {
		return Point{}, false
	}
	raw, ok := pair[1].(string)
	if !ok {
		return Point{}, false
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Point{}, false
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return Point{Timestamp: time.Unix(sec, nsec).UTC(), Value: val}, true
}
