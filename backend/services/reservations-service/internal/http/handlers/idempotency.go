package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	redisstore "greencharge/backend/services/reservations-service/internal/redis"
)

const idempotencyHeader = "Idempotency-Key"

// IdempotencyStore remembers the response of a keyed request.
type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key, fingerprint string) (*redisstore.IdempotencyRecord, bool, error)
	Complete(ctx context.Context, scope, key, fingerprint string, status int, body []byte) error
	Release(ctx context.Context, scope, key string) error
}

// Idempotency replays the stored response for a repeated Idempotency-Key. Keys are scoped
// per caller and path. Requests without the header, or a nil store, pass straight through.
func Idempotency(store IdempotencyStore, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if store == nil || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > 255 {
				writeError(w, http.StatusBadRequest, "idempotency key too long")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				writeError(w, http.StatusBadRequest, "failed to read body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			scope := callerID(r).String() + ":" + r.URL.Path
			fingerprint := redisstore.Fingerprint([]byte(r.Method), []byte(r.URL.Path), body)

			record, claimed, err := store.Begin(r.Context(), scope, key, fingerprint)
			if err != nil {
				logger.Error("idempotency lookup failed", zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
				return
			}
			if !claimed {
				switch {
				case record.Fingerprint != fingerprint:
					writeError(w, http.StatusUnprocessableEntity, "idempotency key reused with a different request")
				case !record.Done:
					writeError(w, http.StatusConflict, "request with this idempotency key is in progress")
				default:
					w.Header().Set("Idempotent-Replayed", "true")
					writeRaw(w, record.Status, record.Body)
				}
				return
			}

			// The stored outcome must outlive a cancelled client request.
			ctx := context.WithoutCancel(r.Context())
			release := func() {
				if err := store.Release(ctx, scope, key); err != nil {
					logger.Warn("idempotency release failed", zap.Error(err))
				}
			}

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				if p := recover(); p != nil {
					release()
					panic(p)
				}
			}()
			next.ServeHTTP(rec, r)

			// Server failures and retryable refusals are not outcomes worth replaying.
			if rec.status >= http.StatusInternalServerError || rec.retryable {
				release()
				return
			}
			if err := store.Complete(ctx, scope, key, fingerprint, rec.status, rec.body.Bytes()); err != nil {
				logger.Warn("idempotency complete failed", zap.Error(err))
			}
		})
	}
}

// retryMarker is implemented by writers that track whether a refusal may succeed later.
type retryMarker interface {
	markRetryable()
}

type responseRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	retryable   bool
	body        bytes.Buffer
}

func (r *responseRecorder) markRetryable() {
	r.retryable = true
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
