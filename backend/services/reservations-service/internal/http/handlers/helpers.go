package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"greencharge/backend/services/reservations-service/internal/apperror"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_, _ = w.Write(body)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps an error kind onto the HTTP status the gateway passes through.
func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.ErrValidation:
		return http.StatusBadRequest
	case apperror.ErrNotFound:
		return http.StatusNotFound
	case apperror.ErrForbidden:
		return http.StatusForbidden
	case apperror.ErrInvalidState, apperror.ErrNoCapacity:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError renders engine failures. Unclassified errors are logged and hidden.
func writeAppError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	kind := apperror.KindOf(err)
	if kind == "" {
		logger.Error(op+" failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	body := map[string]interface{}{
		"error": err.Error(),
		"kind":  string(kind),
	}
	if apperror.Retryable(err) {
		body["retryable"] = true
		if m, ok := w.(retryMarker); ok {
			m.markRetryable()
		}
	}
	writeJSON(w, statusFor(kind), body)
}

// decodeJSON reads a single JSON object and rejects fields the target does not declare.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.Validation("request body is empty")
		}
		return apperror.Validation("invalid json: %v", err)
	}
	if dec.More() {
		return apperror.Validation("request body must contain a single json object")
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid %s", name)
	}
	return id, nil
}

// limitParam reads ?limit=; zero lets the store apply its default.
func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, apperror.Validation("invalid limit %q", raw)
	}
	return limit, nil
}
