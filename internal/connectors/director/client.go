package director

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go-fed-dashboard/internal/connectors/downtime"
	"go-fed-dashboard/internal/helpers"
)

const (
	defaultCacheSize = 128
	defaultCacheTTL  = 15 * time.Second
	maxBodyBytes     = 8 << 20
)

// StatusError is returned for non-2xx answers from the director.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return e.Message
}

// ErrorMessage renders a failed response as "<status>: <msg>". Bodies that are
// not JSON, or carry no msg field, fall back to the HTTP status text.
func ErrorMessage(statusCode int, body []byte) string {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err == nil {
		if msg, ok := decoded["msg"].(string); ok && msg != "" {
			return strconv.Itoa(statusCode) + ": " + msg
		}
	}
	return strconv.Itoa(statusCode) + ": " + http.StatusText(statusCode)
}

// Options configure a Client.
type Options struct {
	Timeout   time.Duration
	Token     string
	CacheSize int
	CacheTTL  time.Duration
}

// Client reads federation state from the director web API. Successful GET
// bodies are cached briefly; any write purges the cache.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	cache   *expirable.LRU[string, []byte]
}

func NewClient(baseURL string, opts Options) *Client {
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(opts.Token),
		http:    &http.Client{Timeout: opts.Timeout},
		cache:   expirable.NewLRU[string, []byte](opts.CacheSize, nil, opts.CacheTTL),
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// EnabledServers lists the server kinds this federation runs. A body without
// a servers field is logged and treated as empty.
func (c *Client) EnabledServers(ctx context.Context) ([]ServerType, error) {
	body, err := c.getJSON(ctx, "/api/v1.0/servers", nil)
	if err != nil {
		return nil, err
	}
	raw, ok := helpers.GetObjectValue(body, "servers").([]any)
	if !ok {
		log.WithField("path", "/api/v1.0/servers").Error("No servers found")
		return []ServerType{}, nil
	}
	return stringsOf[ServerType](raw), nil
}

// OAuthEnabledServers lists the server kinds that have OIDC login enabled.
func (c *Client) OAuthEnabledServers(ctx context.Context) ([]ServerType, error) {
	body, err := c.getJSON(ctx, "/api/v1.0/auth/oauth", nil)
	if err != nil {
		return nil, err
	}
	raw, ok := helpers.GetObjectValue(body, "oidc_enabled_servers").([]any)
	if !ok {
		log.WithField("path", "/api/v1.0/auth/oauth").Error("No servers found")
		return []ServerType{}, nil
	}
	return stringsOf[ServerType](raw), nil
}

// Servers lists every origin and cache registered with the director. kind
// may be empty to list both.
func (c *Client) Servers(ctx context.Context, kind string) ([]ServerGeneral, error) {
	var q url.Values
	if kind = strings.TrimSpace(kind); kind != "" {
		q = url.Values{"server_type": []string{kind}}
	}
	var out []ServerGeneral
	if err := c.get(ctx, "/api/v1.0/director_ui/servers", q, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []ServerGeneral{}
	}
	return out, nil
}

// Server fetches the detailed record of one server.
func (c *Client) Server(ctx context.Context, name string) (ServerDetailed, error) {
	var out ServerDetailed
	if strings.TrimSpace(name) == "" {
		return out, errors.New("server name is required")
	}
	err := c.get(ctx, "/api/v1.0/director_ui/servers/"+url.PathEscape(name), nil, &out)
	return out, err
}

// AllowServer lifts an admin filter on a server.
func (c *Client) AllowServer(ctx context.Context, name string) error {
	return c.patch(ctx, "/api/v1.0/director_ui/servers/allow/"+url.PathEscape(name))
}

// FilterServer hides a server from redirects.
func (c *Client) FilterServer(ctx context.Context, name string) error {
	return c.patch(ctx, "/api/v1.0/director_ui/servers/filter/"+url.PathEscape(name))
}

// Downtimes lists downtime declared anywhere in the federation.
func (c *Client) Downtimes(ctx context.Context) ([]downtime.Record, error) {
	var out []downtime.Record
	if err := c.get(ctx, "/api/v1.0/director_ui/downtime", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []downtime.Record{}
	}
	return out, nil
}

// Ping reports how long the director takes to answer the servers endpoint.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	_, err := c.do(ctx, http.MethodGet, "/api/v1.0/servers", nil)
	return time.Since(start), err
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values) (map[string]any, error) {
	var out map[string]any
	if err := c.get(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dst any) error {
	key := helpers.DeterministicString(map[string]any{"path": path, "query": q.Encode()})
	blob, ok := c.cache.Get(key)
	if !ok {
		var err error
		blob, err = c.do(ctx, http.MethodGet, path, q)
		if err != nil {
			return err
		}
		c.cache.Add(key, blob)
	}
	if err := json.Unmarshal(blob, dst); err != nil {
		c.cache.Remove(key)
		return errors.Wrapf(err, "failed to decode director response for %s", path)
	}
	return nil
}

func (c *Client) patch(ctx context.Context, path string) error {
	if _, err := c.do(ctx, http.MethodPatch, path, nil); err != nil {
		return err
	}
	c.cache.Purge()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values) ([]byte, error) {
	if !c.Enabled() {
		return nil, errors.New("director endpoint is not configured")
	}

	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s request for %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to reach director at %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read the director response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: ErrorMessage(resp.StatusCode, body)}
	}
	return body, nil
}

func stringsOf[T ~string](raw []any) []T {
	out := make([]T, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, T(s))
		}
	}
	return out
}
