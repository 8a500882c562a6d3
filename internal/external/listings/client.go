package listings

import (
	"context"
	"fmt"

	"github.com/wonny/valuescan/pkg/config"
	"github.com/wonny/valuescan/pkg/httputil"
	"github.com/wonny/valuescan/pkg/logger"
	"github.com/wonny/valuescan/pkg/redis"
)

// Client fetches index-constituent pages (slickcharts, Wikipedia, Nikkei)
// ⭐ SSOT: 구성종목 페이지 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewClient creates a listings client over a shared httputil client.
// Listings pages reject Go's default User-Agent, so a browser one is always sent.
func NewClient(cfg *config.Config, rdb *redis.Client, log *logger.Logger) *Client {
	hc := httputil.New(cfg, log).
		WithHeader("User-Agent", cfg.Provider.ListingsUA).
		WithHeader("Accept", "text/html,application/xhtml+xml").
		WithBreaker("listings", cfg.Provider.BreakerTrips, cfg.Provider.BreakerTimeout)

	if rdb.Enabled() {
		hc = hc.WithRateLimiter(redis.NewRateLimiter(rdb, "valuescan"), redis.ListingsRateLimit)
	}

	return &Client{
		httpClient: hc,
		logger:     log.WithModule("listings"),
	}
}

// NewWithHTTP wraps an already configured httputil client
func NewWithHTTP(hc *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: hc,
		logger:     log.WithModule("listings"),
	}
}

// FetchPage returns the raw body of a listings page
func (c *Client) FetchPage(ctx context.Context, url string) ([]byte, error) {
	body, err := c.httpClient.GetBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch listings page: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"url":   url,
		"bytes": len(body),
	}).Debug("Fetched listings page")

	return body, nil
}
