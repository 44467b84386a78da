package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"greencharge/backend/services/api-gateway/internal/clients"
)

// NewHealthHandler reports gateway health together with the upstream status.
func NewHealthHandler(client *clients.ReservationsClient, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := client.Health(r.Context())
		if err != nil {
			logger.Warn("upstream health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "reservations": "unreachable"})
			return
		}
		if resp.Status != http.StatusOK {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "reservations": http.StatusText(resp.Status)})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "reservations": "ok"})
	}
}
