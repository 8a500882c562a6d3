package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuescan/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(context.Background(), QuoteRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, QuoteRateLimit.Limit, remaining)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")

	var result []string
	found, err := cache.Get(context.Background(), "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(context.Background(), "key", []string{"AAPL"}, TTLDaily))
}

func TestCache_GetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(Wrap(db), "valuescan")

	mock.ExpectGet("valuescan:cache:universe:sp500").SetVal(`["AAPL","MSFT"]`)

	var ids []string
	found, err := cache.Get(context.Background(), UniverseKey("SP500"), &ids)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"AAPL", "MSFT"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetMissAndError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(Wrap(db), "valuescan")

	mock.ExpectGet("valuescan:cache:universe:nikkei225").RedisNil()
	mock.ExpectGet("valuescan:cache:universe:hangseng").SetErr(errors.New("connection reset"))

	var ids []string
	found, err := cache.Get(context.Background(), UniverseKey("nikkei225"), &ids)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = cache.Get(context.Background(), UniverseKey("hangseng"), &ids)
	assert.Error(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(Wrap(db), "valuescan")

	mock.ExpectSet("valuescan:cache:universe:sp500", []byte(`["AAPL"]`), 24*time.Hour).SetVal("OK")

	err := cache.Set(context.Background(), UniverseKey("sp500"), []string{"AAPL"}, TTLDaily)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{"UniverseKey", func() string { return UniverseKey("NASDAQ100") }, "universe:nasdaq100"},
		{"FundamentalsKey", func() string { return FundamentalsKey("brk-b") }, "fundamentals:BRK-B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.fn())
		})
	}
}
