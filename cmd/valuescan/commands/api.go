package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/valuescan/internal/api"
	"github.com/wonny/valuescan/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the REST/WebSocket API.

Endpoints:
  GET  /health
  GET  /metrics                  - Prometheus (METRICS_ENABLED)
  GET  /api/universe/{name}
  GET  /api/valuation/{id}
  POST /api/scan                 - {"universe":"sp500"} or {"ids":[...]}
  GET  /api/scan/stream          - WebSocket progress stream
  GET  /api/options/{id}
  POST /api/options/scan
  GET  /api/earnings?universe=sp500&days=30
  GET  /api/runs

Example:
  go run ./cmd/valuescan api
  go run ./cmd/valuescan api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API port (default PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "also run the cron jobs in this process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	var metricsHandler http.Handler
	if a.cfg.MetricsEnabled {
		metricsHandler = a.metrics.Handler()
	}

	scanHandler := handlers.NewScanHandler(a.svc, a.history, a.log)
	server := api.New(a.cfg, a.log, api.NewRouter(scanHandler, metricsHandler, a.log))

	if apiWithScheduler {
		sched, err := a.newScheduler()
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	ctx, stop := signalContext()
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
