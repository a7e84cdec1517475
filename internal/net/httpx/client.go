// Package httpx is the shared HTTP client used by all provider ports:
// bounded concurrency, retry with jittered backoff, per-host rate
// limiting and a circuit breaker per provider.
package httpx

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"squeezerun/internal/net/ratelimit"
	"squeezerun/internal/telemetry/metrics"
)

// ClientConfig tunes one provider's HTTP behavior.
type ClientConfig struct {
	Provider       string
	MaxConcurrency int
	RequestTimeout time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	UserAgent      string
}

// Client wraps http.Client with the provider discipline. One Client per
// provider; safe for concurrent use.
type Client struct {
	config    ClientConfig
	semaphore chan struct{}
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
	limiter   *ratelimit.Manager
}

// NewClient creates a provider HTTP client. limiter may be shared across
// providers; pass nil to disable rate limiting.
func NewClient(config ClientConfig, limiter *ratelimit.Manager) *Client {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 1
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = time.Second
	}
	if config.BackoffMax <= 0 {
		config.BackoffMax = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:     config.Provider,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.5
		},
	}

	return &Client{
		config:    config,
		semaphore: make(chan struct{}, config.MaxConcurrency),
		client:    &http.Client{Timeout: config.RequestTimeout},
		breaker:   gobreaker.NewCircuitBreaker(settings),
		limiter:   limiter,
	}
}

// Do executes the request under the provider discipline. Errors cover
// network failures, non-2xx statuses after retries, open circuit, and
// context cancellation; callers treat any error as absent data.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.config.Provider, req.URL.Host); err != nil {
			return nil, err
		}
	}

	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doWithRetry(ctx, req)
	})
	metrics.ProviderLatency.WithLabelValues(c.config.Provider).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProviderRequests.WithLabelValues(c.config.Provider, "error").Inc()
		return nil, err
	}
	metrics.ProviderRequests.WithLabelValues(c.config.Provider, "ok").Inc()
	return resp.(*http.Response), nil
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			log.Debug().
				Str("provider", c.config.Provider).
				Dur("backoff", backoff).
				Int("attempt", attempt).
				Msg("retrying provider request")

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.client.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			if isRetryableError(err) && ctx.Err() == nil {
				continue
			}
			return nil, lastErr
		}

		if isRetryableStatus(resp.StatusCode) && attempt < c.config.MaxRetries {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		}

		return resp, nil
	}

	return nil, lastErr
}

func (c *Client) backoff(attempt int) time.Duration {
	backoff := c.config.BackoffBase * time.Duration(1<<uint(attempt-1))
	if backoff > c.config.BackoffMax {
		backoff = c.config.BackoffMax
	}
	// Up to 10% jitter to avoid thundering herds on shared vendors.
	jitter := time.Duration(rand.Float64() * 0.1 * float64(backoff))
	return backoff + jitter
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, retryable := range []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"network is unreachable",
		"no such host",
	} {
		if strings.Contains(msg, retryable) {
			return true
		}
	}
	return false
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
