package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonny/valuescan/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func respondData(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// respondFailure maps a classified per-item error onto an HTTP status
func respondFailure(w http.ResponseWriter, err error) {
	kind := contracts.KindOf(err)
	respondJSON(w, statusFor(kind), map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}

func statusFor(kind contracts.FailureKind) int {
	switch kind {
	case contracts.KindInsufficientData:
		return http.StatusNotFound
	case contracts.KindUpstreamUnavailable:
		return http.StatusBadGateway
	case contracts.KindTimeout:
		return http.StatusGatewayTimeout
	case contracts.KindCancelled:
		return 499 // client closed request
	case contracts.KindDegenerateMath:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
