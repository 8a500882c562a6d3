package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/pkg/config"
	"github.com/wonny/valuescan/pkg/httputil"
	"github.com/wonny/valuescan/pkg/logger"
	"github.com/wonny/valuescan/pkg/redis"
)

// Client implements contracts.MarketDataProvider over the Yahoo Finance JSON endpoints
// ⭐ SSOT: 시세/재무/옵션 데이터 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	baseURL    string
	cache      *redis.Cache
	logger     *logger.Logger
	now        func() time.Time
}

var _ contracts.MarketDataProvider = (*Client)(nil)

// NewClient creates a provider client with throttling, retry and a circuit breaker.
// The shared Redis window is added when Redis is enabled.
func NewClient(cfg *config.Config, rdb *redis.Client, log *logger.Logger) *Client {
	p := cfg.Provider

	hc := httputil.New(cfg, log).
		WithHeader("User-Agent", p.ListingsUA).
		WithHeader("Accept", "application/json").
		WithThrottle(p.RatePerSecond).
		WithBreaker("yahoo", p.BreakerTrips, p.BreakerTimeout)

	if rdb.Enabled() {
		hc = hc.WithRateLimiter(redis.NewRateLimiter(rdb, "valuescan"), redis.QuoteRateLimit)
	}

	return NewWithHTTP(hc, p.QuoteBaseURL, redis.NewCache(rdb, "valuescan"), log)
}

// NewWithHTTP wires an existing httputil client (tests point baseURL at httptest)
func NewWithHTTP(hc *httputil.Client, baseURL string, cache *redis.Cache, log *logger.Logger) *Client {
	return &Client{
		httpClient: hc,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cache:      cache,
		logger:     log.WithModule("yahoo"),
		now:        time.Now,
	}
}

// getJSON fetches path (relative to baseURL) and decodes into dest
func (c *Client) getJSON(ctx context.Context, id contracts.SecurityID, path string, params url.Values, dest interface{}) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	body, err := c.httpClient.GetBytes(ctx, fullURL)
	if err != nil {
		return classify(id, err)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return contracts.NewFailure(contracts.KindUpstreamUnavailable, id, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// classify maps transport errors onto failure kinds
func classify(id contracts.SecurityID, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, httputil.ErrCircuitOpen) {
		return contracts.NewFailure(contracts.KindUpstreamUnavailable, id, err)
	}

	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return contracts.NewFailure(contracts.KindInsufficientData, id, fmt.Errorf("%w: %v", contracts.ErrNotFound, err))
	}

	return contracts.NewFailure(contracts.KindUpstreamUnavailable, id, err)
}

// apiError is the error object every Yahoo envelope carries
type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) toFailure(id contracts.SecurityID) error {
	if e == nil {
		return nil
	}
	if strings.EqualFold(e.Code, "Not Found") {
		return contracts.NewFailure(contracts.KindInsufficientData, id, fmt.Errorf("%w: %s", contracts.ErrNotFound, e.Description))
	}
	return contracts.NewFailure(contracts.KindUpstreamUnavailable, id, fmt.Errorf("%s: %s", e.Code, e.Description))
}

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} wrapper
type rawValue struct {
	Raw float64 `json:"raw"`
}

func unixTime(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}
