package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/valuescan/internal/api/handlers"
	"github.com/wonny/valuescan/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
// metricsHandler may be nil (metrics disabled).
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(scanHandler *handlers.ScanHandler, metricsHandler http.Handler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Universe / valuation
	api.HandleFunc("/universe/{name}", scanHandler.GetUniverse).Methods("GET")
	api.HandleFunc("/valuation/{id}", scanHandler.GetValuation).Methods("GET")
	api.HandleFunc("/scan", scanHandler.PostScan).Methods("POST")
	api.HandleFunc("/scan/stream", scanHandler.StreamScan).Methods("GET")

	// Options
	api.HandleFunc("/options/scan", scanHandler.PostOptionsScan).Methods("POST")
	api.HandleFunc("/options/{id}", scanHandler.GetOptions).Methods("GET")

	// Earnings / history
	api.HandleFunc("/earnings", scanHandler.GetEarnings).Methods("GET")
	api.HandleFunc("/runs", scanHandler.GetRuns).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "valuescan-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
