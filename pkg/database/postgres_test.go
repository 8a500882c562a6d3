package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuescan/pkg/config"
)

func TestNew_NotConfigured(t *testing.T) {
	db, err := New(&config.Config{})
	assert.Nil(t, db)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(&config.Config{Database: config.DatabaseConfig{URL: "::not a url::"}})
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	// Skip if DATABASE_URL is not set
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := New(cfg)
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Greater(t, status.Stats.MaxConns, int32(0))
}
