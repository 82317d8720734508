// Package mosque fetches mosque donation QR listings from the external
// directory API.
//
// Results are cached per query in an explicit TTL cache owned by the client,
// and concurrent misses for the same query share a single upstream request.
package mosque

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/getdoa/getdoa/internal/cache"
	"github.com/getdoa/getdoa/internal/metrics"
)

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 1 << 20

// Mosque is one donation listing.
type Mosque struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	City      string `json:"city"`
	State     string `json:"state"`
	QRContent string `json:"qrContent"`
	QRImage   string `json:"qrImage"`
}

// Config configures a Client.
type Config struct {
	BaseURL       string
	CacheTTL      time.Duration
	CacheCapacity int
	Timeout       time.Duration
	Clock         cache.Clock
}

// Client queries the directory API.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	cache   *cache.TTL[string, []Mosque]
	group   singleflight.Group
	logger  *slog.Logger
}

// NewClient creates a Client. A nil httpClient gets a default with the
// configured timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    httpClient,
		timeout: timeout,
		cache: cache.New[string, []Mosque](cache.Config{
			TTL:      cfg.CacheTTL,
			Capacity: cfg.CacheCapacity,
			Clock:    cfg.Clock,
		}),
		logger: logger,
	}
}

// Search returns listings matching query. An empty query returns the
// directory's default listing.
//
// The shared upstream request is detached from any one caller's context and
// bounded by the client timeout instead. Each caller still stops waiting when
// its own ctx is done.
func (c *Client) Search(ctx context.Context, query string) ([]Mosque, error) {
	key := strings.ToLower(strings.TrimSpace(query))

	if cached, ok := c.cache.Get(key); ok {
		metrics.CacheLookups.WithLabelValues("mosque", "hit").Inc()
		return cached, nil
	}
	metrics.CacheLookups.WithLabelValues("mosque", "miss").Inc()

	ch := c.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		result, err := c.fetch(fetchCtx, key)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, result)
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("mosque lookup shared in-flight request", "query", key)
		}
		return res.Val.([]Mosque), nil
	}
}

type searchResponse struct {
	Data []Mosque `json:"data"`
}

func (c *Client) fetch(ctx context.Context, query string) ([]Mosque, error) {
	endpoint := c.baseURL + "/mosques"
	if query != "" {
		endpoint += "?" + url.Values{"search": {query}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("mosque: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues("mosque", "error").Inc()
		return nil, fmt.Errorf("mosque: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamCalls.WithLabelValues("mosque", "error").Inc()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("mosque: unexpected status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		metrics.UpstreamCalls.WithLabelValues("mosque", "error").Inc()
		return nil, fmt.Errorf("mosque: decode response: %w", err)
	}
	metrics.UpstreamCalls.WithLabelValues("mosque", "ok").Inc()

	c.logger.Debug("mosque directory fetched",
		"query", query,
		"count", len(body.Data),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if body.Data == nil {
		body.Data = []Mosque{}
	}
	return body.Data, nil
}
