package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuescan/pkg/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.Config
		wantLevel zerolog.Level
	}{
		{"debug level", &config.Config{Env: "development", LogLevel: "debug", LogFormat: "json"}, zerolog.DebugLevel},
		{"info level", &config.Config{Env: "production", LogLevel: "info", LogFormat: "json"}, zerolog.InfoLevel},
		{"warn level", &config.Config{Env: "staging", LogLevel: "warn", LogFormat: "console"}, zerolog.WarnLevel},
		{"error level", &config.Config{Env: "production", LogLevel: "error", LogFormat: "pretty"}, zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(tt.cfg)
			require.NotNil(t, log)
			assert.Equal(t, tt.wantLevel, zerolog.GlobalLevel())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"invalid", zerolog.InfoLevel}, // Default
		{"", zerolog.InfoLevel},        // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "test")

	tests := []struct {
		name      string
		logFunc   func()
		wantMsg   string
		wantLevel string
	}{
		{"debug", func() { log.Debug("debug message") }, "debug message", "debug"},
		{"info", func() { log.Info("info message") }, "info message", "info"},
		{"warn", func() { log.Warn("warn message") }, "warn message", "warn"},
		{"error", func() { log.Error("error message") }, "error message", "error"},
		{"infof", func() { log.Infof("count: %d", 42) }, "count: 42", "info"},
		{"warnf", func() { log.Warnf("retry attempt: %d", 3) }, "retry attempt: 3", "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			entry := decode(t, &buf)
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.wantMsg, entry["message"])
			assert.Equal(t, "test", entry["env"])
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "test")

	log.WithModule("orchestrator").WithFields(map[string]interface{}{
		"security_id": "AAPL",
		"attempted":   100,
	}).Info("scan finished")

	entry := decode(t, &buf)
	assert.Equal(t, "orchestrator", entry["module"])
	assert.Equal(t, "AAPL", entry["security_id"])
	assert.Equal(t, float64(100), entry["attempted"])
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "test")

	log.WithError(errors.New("upstream unavailable")).Warn("fetch failed")

	entry := decode(t, &buf)
	assert.Equal(t, "upstream unavailable", entry["error"])
	assert.Equal(t, "fetch failed", entry["message"])
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() {
		log.WithField("k", "v").Info("discarded")
	})
}
