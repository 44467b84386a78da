package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisstore "greencharge/backend/services/reservations-service/internal/redis"
)

// ActiveSessionLister reads the cache of running charging sessions.
type ActiveSessionLister interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]redisstore.ActiveSession, error)
}

// NewActiveSessionsHandler returns GET /owner/sessions/active handler.
func NewActiveSessionsHandler(sessions ActiveSessionLister, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := sessions.ListByOwner(r.Context(), callerID(r))
		if err != nil {
			logger.Error("list active sessions failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to fetch active sessions")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sessions": list,
		})
	}
}
