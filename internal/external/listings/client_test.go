package listings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuescan/pkg/config"
	"github.com/wonny/valuescan/pkg/httputil"
	"github.com/wonny/valuescan/pkg/logger"
	"github.com/wonny/valuescan/pkg/redis"
)

func testConfig() *config.Config {
	return &config.Config{
		Provider: config.ProviderConfig{
			ListingsUA:     "valuescan-test/1.0",
			Timeout:        2 * time.Second,
			MaxRetries:     0,
			BreakerTrips:   3,
			BreakerTimeout: time.Minute,
		},
	}
}

func TestFetchPage_SendsUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "valuescan-test/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte("<html><table class=\"table\"></table></html>"))
	}))
	defer server.Close()

	client := NewClient(testConfig(), redis.Disabled(), logger.NewNop())

	body, err := client.FetchPage(context.Background(), server.URL+"/sp500")
	require.NoError(t, err)
	assert.Contains(t, string(body), "table")
}

func TestFetchPage_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(testConfig(), redis.Disabled(), logger.NewNop())

	_, err := client.FetchPage(context.Background(), server.URL)
	var statusErr *httputil.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}
