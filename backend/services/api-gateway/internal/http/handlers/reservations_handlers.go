package handlers

import (
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"greencharge/backend/services/api-gateway/internal/clients"
	"greencharge/backend/services/api-gateway/internal/http/middleware"
)

const (
	apiPrefix    = "/api"
	maxBodyBytes = 1 << 20
)

// passthroughHeaders are copied from the upstream response.
var passthroughHeaders = []string{"Idempotent-Replayed", "Allow"}

// ReservationsHandlers proxies reservations-service endpoints.
type ReservationsHandlers struct {
	client *clients.ReservationsClient
	logger *zap.Logger
}

// NewReservationsHandlers returns handler.
func NewReservationsHandlers(client *clients.ReservationsClient, logger *zap.Logger) *ReservationsHandlers {
	return &ReservationsHandlers{client: client, logger: logger}
}

// Forward relays /api/<path> to <path> upstream with the caller's identity. Upstream
// status codes and error bodies are returned unchanged.
func (h *ReservationsHandlers) Forward(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
	}

	path := strings.TrimPrefix(r.URL.Path, apiPrefix)
	resp, err := h.client.Forward(r.Context(), caller, r.Method, path, r.URL.RawQuery, body, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.logger.Error("reservations proxy failed", zap.String("path", path), zap.Error(err))
		writeError(w, http.StatusBadGateway, "reservations service unavailable")
		return
	}

	for _, name := range passthroughHeaders {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}
	if resp.Status == http.StatusNoContent {
		w.WriteHeader(resp.Status)
		return
	}
	writeRaw(w, resp.Status, resp.Header.Get("Content-Type"), resp.Body)
}
