// Package apicache fronts a metadata API with a response cache, a client-side
// rate limiter and a failure circuit breaker. Release lookups hit the same
// handful of endpoints over and over; caching them keeps batch runs from
// burning through unauthenticated quota.
package apicache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned while the breaker is cooling down after repeated
// upstream failures.
var ErrCircuitOpen = errors.New("api circuit open")

// Doer is the request surface the cache needs from an HTTP client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	TTL              time.Duration // cache lifetime of successful responses
	RPS              rate.Limit    // sustained request rate, 0 means unlimited
	Burst            int
	FailureThreshold int           // consecutive failures before the breaker opens
	Cooldown         time.Duration // how long the breaker stays open
}

func DefaultConfig() Config {
	return Config{
		TTL:              5 * time.Minute,
		RPS:              rate.Limit(8),
		Burst:            4,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

type cacheEntry struct {
	body    []byte
	status  int
	expires time.Time
}

type Client struct {
	doer    Doer
	ttl     time.Duration
	limiter *rate.Limiter
	now     func() time.Time

	threshold int
	cooldown  time.Duration

	mu        sync.Mutex
	entries   map[string]cacheEntry
	failures  int
	openUntil time.Time
}

func New(doer Doer, cfg Config) *Client {
	def := DefaultConfig()
	if cfg.TTL == 0 {
		cfg.TTL = def.TTL
	}
	if cfg.RPS == 0 {
		cfg.RPS = rate.Inf
	}
	if cfg.Burst == 0 {
		cfg.Burst = def.Burst
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Client{
		doer:      doer,
		ttl:       cfg.TTL,
		limiter:   rate.NewLimiter(cfg.RPS, cfg.Burst),
		now:       time.Now,
		threshold: cfg.FailureThreshold,
		cooldown:  cfg.Cooldown,
		entries:   make(map[string]cacheEntry),
	}
}

// Get fetches the URL, serving from cache when a fresh copy exists. Only
// 200 responses are cached; other statuses pass through to the caller as a
// definitive answer. Transport errors and 5xx responses count toward the
// breaker threshold.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, int, error) {
	c.mu.Lock()
	if e, ok := c.entries[url]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		log.Debug().Str("op", "apicache").Msgf("cache hit for %s", url)
		return append([]byte(nil), e.body...), e.status, nil
	}
	if until := c.openUntil; c.now().Before(until) {
		c.mu.Unlock()
		return nil, 0, fmt.Errorf("%w for another %s", ErrCircuitOpen, until.Sub(c.now()).Round(time.Second))
	}
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		c.recordFailure(url)
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure(url)
		return nil, 0, err
	}
	if resp.StatusCode >= 500 {
		c.recordFailure(url)
		return body, resp.StatusCode, nil
	}

	c.mu.Lock()
	c.failures = 0
	if resp.StatusCode == http.StatusOK {
		c.entries[url] = cacheEntry{
			body:    append([]byte(nil), body...),
			status:  resp.StatusCode,
			expires: c.now().Add(c.ttl),
		}
	}
	c.mu.Unlock()
	return body, resp.StatusCode, nil
}

func (c *Client) recordFailure(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures >= c.threshold {
		c.openUntil = c.now().Add(c.cooldown)
		c.failures = 0
		log.Warn().Str("op", "apicache").Msgf("circuit opened for %s after repeated failures on %s", c.cooldown, url)
	}
}
