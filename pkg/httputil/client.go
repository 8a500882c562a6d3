package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/wonny/valuescan/pkg/config"
	"github.com/wonny/valuescan/pkg/logger"
	"github.com/wonny/valuescan/pkg/redis"
)

// ErrCircuitOpen is returned while the provider breaker refuses calls
var ErrCircuitOpen = errors.New("circuit breaker open")

// StatusError is a non-2xx response
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Retryable reports whether the status is worth another attempt
func (e *StatusError) Retryable() bool {
	return IsRetryableError(e.StatusCode)
}

// Client is an HTTP client wrapper with retry, throttling, circuit breaking and logging
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient   *http.Client
	logger       *logger.Logger
	retryConfig  RetryConfig
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker
	rateLimiter  *redis.RateLimiter
	rateLimitCfg *redis.RateLimitConfig
	headers      map[string]string
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// New creates a new HTTP client from config
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	p := cfg.Provider

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	initialDelay := p.RetryDelay
	if initialDelay <= 0 {
		initialDelay = time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.WithModule("httputil"),
		retryConfig: RetryConfig{
			MaxRetries:   p.MaxRetries,
			InitialDelay: initialDelay,
			MaxDelay:     10 * time.Second,
			Enabled:      p.MaxRetries > 0,
		},
		headers: map[string]string{},
	}
}

// NewWithTimeout creates a client with custom timeout
func NewWithTimeout(cfg *config.Config, log *logger.Logger, timeout time.Duration) *Client {
	client := New(cfg, log)
	client.httpClient.Timeout = timeout
	return client
}

// WithRetry configures retry behavior
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.InitialDelay = initialDelay
	c.retryConfig.Enabled = true
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// WithThrottle sets an in-process token bucket (requests per second, burst = rps)
func (c *Client) WithThrottle(rps int) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	return c
}

// WithBreaker wraps every request in a circuit breaker.
// Opens after `trips` consecutive failures, or >5% failures over at least 20 requests.
func (c *Client) WithBreaker(name string, trips int, openFor time.Duration) *Client {
	if trips <= 0 {
		trips = 5
	}
	if openFor <= 0 {
		openFor = 60 * time.Second
	}

	settings := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= uint32(trips) {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker(settings)
	return c
}

// WithRateLimiter sets the distributed (Redis) rate limiter for this client
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter, cfg redis.RateLimitConfig) *Client {
	c.rateLimiter = limiter
	c.rateLimitCfg = &cfg
	return c
}

// WithHeader adds a header sent on every request
func (c *Client) WithHeader(key, value string) *Client {
	c.headers[key] = value
	return c
}

// BreakerState returns the breaker state name ("closed" when no breaker is set)
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return gobreaker.StateClosed.String()
	}
	return c.breaker.State().String()
}

// Get performs a GET request. The caller owns the response body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}

	return c.do(req)
}

// GetBytes performs a GET through the breaker and returns the body of a 2xx response.
// Non-2xx responses return *StatusError; only retryable ones count against the breaker.
// Failures caused by the caller's own ctx (cancel, deadline) never count.
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	type outcome struct {
		body []byte
		err  error
	}

	call := func() (interface{}, error) {
		resp, err := c.Get(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return outcome{err: err}, nil
			}
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr := &StatusError{StatusCode: resp.StatusCode, URL: url}
			if statusErr.Retryable() {
				return nil, statusErr
			}
			// 4xx는 브레이커 실패로 세지 않음
			return outcome{err: statusErr}, nil
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			err = fmt.Errorf("failed to read response body: %w", err)
			if ctx.Err() != nil {
				return outcome{err: err}, nil
			}
			return nil, err
		}
		return outcome{body: body}, nil
	}

	var (
		result interface{}
		err    error
	)
	if c.breaker != nil {
		result, err = c.breaker.Execute(call)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, c.breaker.Name())
		}
	} else {
		result, err = call()
	}
	if err != nil {
		return nil, err
	}

	out := result.(outcome)
	return out.body, out.err
}

// do executes the request with throttling, retry logic and logging
func (c *Client) do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	startTime := time.Now()
	url := req.URL.String()
	method := req.Method

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	// Check rate limits (local bucket, then shared window)
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("throttle wait failed: %w", err)
		}
	}
	if c.rateLimiter != nil && c.rateLimitCfg != nil {
		if err := c.rateLimiter.Wait(req.Context(), *c.rateLimitCfg); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"method": method,
		"url":    url,
	}).Debug("HTTP request started")

	// Execute with retry
	if c.retryConfig.Enabled {
		resp, err = c.doWithRetry(req)
	} else {
		resp, err = c.httpClient.Do(req)
	}

	duration := time.Since(startTime)

	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"method":   method,
			"url":      url,
			"duration": duration,
			"error":    err.Error(),
		}).Warn("HTTP request failed")
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": resp.StatusCode,
		"duration":    duration,
	}).Debug("HTTP request completed")

	return resp, nil
}

// doWithRetry executes the request with exponential backoff retry
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	delay := c.retryConfig.InitialDelay

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		resp, err = c.httpClient.Do(req)

		// Success (or a non-retryable status the caller should see)
		if err == nil && !IsRetryableError(resp.StatusCode) {
			return resp, nil
		}

		// Last attempt - return what we have
		if attempt == c.retryConfig.MaxRetries {
			break
		}

		if resp != nil {
			resp.Body.Close()
		}

		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   delay,
			"url":     req.URL.String(),
		}).Debug("Retrying HTTP request")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}

		// Exponential backoff
		delay *= 2
		if delay > c.retryConfig.MaxDelay {
			delay = c.retryConfig.MaxDelay
		}
	}

	return resp, err
}

// IsRetryableError checks if a status code should be retried
func IsRetryableError(statusCode int) bool {
	// Retry on 5xx server errors and 429 Too Many Requests
	return statusCode >= 500 || statusCode == 429
}
