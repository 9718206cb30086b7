// Package trendsource fetches keyword interest series from the trend-signal API.
package trendsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/atim-dev/atim/internal/logger"
)

// ErrNoData is returned when the source has no timeline for a keyword.
var ErrNoData = errors.New("no interest data")

// ClientConfig tunes retries, throttling and caching.
type ClientConfig struct {
	Timeframe         string
	Geo               string
	MaxRetries        int
	RetryDelayBase    time.Duration
	RequestsPerSecond float64
	Burst             int
	CacheSize         int
	CacheTTL          time.Duration
	BreakerFailures   uint32
	BreakerCooldown   time.Duration
}

// Client provides access to the interest-over-time endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	config     ClientConfig
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]float64]
	cache      *expirable.LRU[string, []float64]
}

type interestResponse struct {
	Keyword  string          `json:"keyword"`
	Timeline []interestPoint `json:"timeline"`
}

type interestPoint struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// NewClient creates a new trend source client.
func NewClient(baseURL string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		config:  cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]float64](gobreaker.Settings{
		Name:    "trendsource",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			// A keyword without data is a healthy answer, and a caller
			// hanging up says nothing about the upstream.
			return err == nil || errors.Is(err, ErrNoData) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	if cfg.CacheSize > 0 {
		c.cache = expirable.NewLRU[string, []float64](cfg.CacheSize, nil, cfg.CacheTTL)
	}

	return c
}

// FetchInterest returns the interest series for keyword, oldest first.
func (c *Client) FetchInterest(ctx context.Context, keyword string) ([]float64, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(keyword); ok {
			return cached, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch interest for %q: %w", keyword, err)
	}

	values, err := c.breaker.Execute(func() ([]float64, error) {
		return c.fetch(ctx, keyword)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch interest for %q: %w", keyword, err)
	}

	if c.cache != nil {
		c.cache.Add(keyword, values)
	}
	return values, nil
}

func (c *Client) fetch(ctx context.Context, keyword string) ([]float64, error) {
	u, err := url.Parse(c.baseURL + "/api/interest")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Set("keyword", keyword)
	if c.config.Timeframe != "" {
		q.Set("timeframe", c.config.Timeframe)
	}
	if c.config.Geo != "" {
		q.Set("geo", c.config.Geo)
	}
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var body interestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode interest: %w", err)
	}
	if len(body.Timeline) == 0 {
		return nil, ErrNoData
	}

	values := make([]float64, len(body.Timeline))
	for i, p := range body.Timeline {
		values[i] = p.Value
	}
	return values, nil
}

// doRequest performs an HTTP GET with linear-backoff retry on transport
// errors, 429 and 5xx responses.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.config.MaxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		default:
			return resp, nil
		}

		if i == c.config.MaxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.config.RetryDelayBase * time.Duration(i+1)):
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
