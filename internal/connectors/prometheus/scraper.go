package prometheus

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Point is a chart-ready value at a specific timestamp.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Target is a federation server whose /metrics endpoint is scraped directly.
type Target struct {
	Server string `json:"server"`
	URL    string `json:"url"`
}

// LiveSnapshot is a one-shot scrape summary for a server.
type LiveSnapshot struct {
	Server      string             `json:"server"`
	ScrapedAt   time.Time          `json:"scraped_at"`
	SampleCount int                `json:"sample_count"`
	Metrics     map[string]float64 `json:"metrics"`
}

// ServerHealth is the card-level health of one scraped server.
type ServerHealth struct {
	Server        string    `json:"server"`
	OK            bool      `json:"ok"`
	Error         string    `json:"error,omitempty"`
	PingMS        int64     `json:"ping_ms"`
	ScrapedAt     time.Time `json:"scraped_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryMB      float64   `json:"memory_mb"`
	Goroutines    int64     `json:"goroutines"`
	Threads       int64     `json:"threads"`
}

type historyKey struct {
	server string
	metric string
}

// Scraper reads Prometheus text exposition from federation servers and keeps
// a bounded in-memory history per metric.
type Scraper struct {
	client    *http.Client
	targets   []Target
	maxPoints int

	mu      sync.RWMutex
	history map[historyKey][]Point
}

// ParseTargets reads "server=url" pairs. A bare URL uses its host as the
// server name.
func ParseTargets(raw []string) []Target {
	out := make([]Target, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		name, u, ok := strings.Cut(r, "=")
		if !ok {
			u = r
			name = strings.TrimPrefix(strings.TrimPrefix(r, "https://"), "http://")
			if i := strings.IndexByte(name, '/'); i >= 0 {
				name = name[:i]
			}
		}
		out = append(out, Target{Server: strings.TrimSpace(name), URL: strings.TrimSpace(u)})
	}
	return out
}

func NewScraper(targets []Target, timeout time.Duration, maxPoints int) *Scraper {
	if maxPoints <= 0 {
		maxPoints = 720
	}
	return &Scraper{
		client:    &http.Client{Timeout: timeout},
		targets:   append([]Target(nil), targets...),
		maxPoints: maxPoints,
		history:   make(map[historyKey][]Point),
	}
}

func (s *Scraper) Enabled() bool {
	return s != nil && len(s.targets) > 0
}

func (s *Scraper) Targets() []Target {
	if s == nil {
		return nil
	}
	return append([]Target(nil), s.targets...)
}

// Scrape pulls every target once and records metrics whose name starts with
// matchPrefix. A failing target does not stop the others; the first failure is
// returned alongside the successful snapshots.
func (s *Scraper) Scrape(ctx context.Context, matchPrefix string) ([]LiveSnapshot, error) {
	if !s.Enabled() {
		return nil, nil
	}

	now := time.Now().UTC()
	prefix := strings.TrimSpace(matchPrefix)
	items := make([]LiveSnapshot, 0, len(s.targets))
	var firstErr error

	for _, target := range s.targets {
		samples, count, err := s.fetch(ctx, target)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		matched := make(map[string]float64, len(samples))
		for name, v := range samples {
			if prefix == "" || strings.HasPrefix(name, prefix) {
				matched[name] = v
			}
		}

		s.record(target.Server, now, matched)
		items = append(items, LiveSnapshot{
			Server:      target.Server,
			ScrapedAt:   now,
			SampleCount: count,
			Metrics:     matched,
		})
	}

	return items, firstErr
}

// Series returns in-memory history for one server/metric since cutoff.
func (s *Scraper) Series(server, metric string, since time.Time) []Point {
	if s == nil {
		return nil
	}
	k := historyKey{server: server, metric: metric}

	s.mu.RLock()
	points := append([]Point(nil), s.history[k]...)
	s.mu.RUnlock()

	if since.IsZero() {
		return points
	}

	out := make([]Point, 0, len(points))
	for _, p := range points {
		if !p.Timestamp.Before(since) {
			out = append(out, p)
		}
	}
	return out
}

// KnownMetrics returns sorted metric names seen for a server.
func (s *Scraper) KnownMetrics(server string) []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	uniq := map[string]struct{}{}
	for k := range s.history {
		if k.server == server {
			uniq[k.metric] = struct{}{}
		}
	}
	out := make([]string, 0, len(uniq))
	for m := range uniq {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Health probes every target and derives card health figures.
func (s *Scraper) Health(ctx context.Context) []ServerHealth {
	if !s.Enabled() {
		return nil
	}

	now := time.Now().UTC()
	out := make([]ServerHealth, 0, len(s.targets))
	for _, target := range s.targets {
		item := ServerHealth{Server: target.Server, ScrapedAt: now}

		start := time.Now()
		samples, _, err := s.fetch(ctx, target)
		item.PingMS = time.Since(start).Milliseconds()
		if err != nil {
			item.Error = err.Error()
			out = append(out, item)
			continue
		}

		item.OK = true
		if startSec, ok := samples["process_start_time_seconds"]; ok && startSec > 0 {
			item.UptimeSeconds = int64(now.Sub(time.Unix(int64(startSec), 0)).Seconds())
		}
		if cpuSec, ok := samples["process_cpu_seconds_total"]; ok && item.UptimeSeconds > 0 {
			// Average utilisation of one core over the process lifetime.
			item.CPUPercent = (cpuSec / float64(item.UptimeSeconds)) * 100.0
		}
		if rss, ok := samples["process_resident_memory_bytes"]; ok && rss > 0 {
			item.MemoryMB = rss / 1024.0 / 1024.0
		}
		if gs, ok := samples["go_goroutines"]; ok && gs >= 0 {
			item.Goroutines = int64(gs)
		}
		if th, ok := samples["go_threads"]; ok && th >= 0 {
			item.Threads = int64(th)
		}

		out = append(out, item)
	}
	return out
}

func (s *Scraper) fetch(ctx context.Context, target Target) (map[string]float64, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "invalid scrape url for %s", target.Server)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "scrape %s", target.Server)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, 0, errors.Errorf("scrape %s: status %d", target.Server, resp.StatusCode)
	}

	samples, count, err := parseSamples(resp.Body)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "parse %s", target.Server)
	}
	return samples, count, nil
}

func (s *Scraper) record(server string, ts time.Time, metrics map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for metric, v := range metrics {
		k := historyKey{server: server, metric: metric}
		pts := append(s.history[k], Point{Timestamp: ts, Value: v})
		if len(pts) > s.maxPoints {
			pts = pts[len(pts)-s.maxPoints:]
		}
		s.history[k] = pts
	}
}

// parseSamples sums samples per metric name across label sets.
func parseSamples(r io.Reader) (map[string]float64, int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	agg := map[string]float64{}
	count := 0

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, value, ok := parseLine(line)
		if !ok {
			continue
		}
		agg[name] += value
		count++
	}
	if err := sc.Err(); err != nil {
		return nil, 0, err
	}
	return agg, count, nil
}

func parseLine(line string) (string, float64, bool) {
	name := line
	rest := ""
	if i := strings.IndexByte(line, '{'); i >= 0 {
		j := strings.LastIndexByte(line, '}')
		if j < i {
			return "", 0, false
		}
		name = line[:i]
		rest = line[j+1:]
	} else if i := strings.IndexAny(line, " \t"); i >= 0 {
		name = line[:i]
		rest = line[i:]
	}

	fields := strings.Fields(rest)
	if name == "" || len(fields) == 0 {
		return "", 0, false
	}

	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return "", 0, false
	}
	return name, v, true
}
