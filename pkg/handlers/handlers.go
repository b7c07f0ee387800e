// Package handlers provides JSON response helpers and probe endpoints shared by HTTP handlers.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/JaimeStill/mention-analyzer/pkg/lifecycle"
)

// RespondJSON writes data as a JSON body with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError logs err and writes it as {"error": "..."} with the given status code.
// Server errors are logged at error level, client errors at warn.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("handler error", "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}
	RespondJSON(w, status, map[string]string{"error": err.Error()})
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports 200 once lc is ready and 503 before, with the readiness
// of each tracked subsystem.
func Readyz(lc *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{"subsystems": lc.Readiness()}
		if !lc.Ready() {
			body["status"] = "not ready"
			RespondJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		RespondJSON(w, http.StatusOK, body)
	}
}
