package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"greencharge/backend/services/reservations-service/internal/models"
)

const (
	userIDHeader   = "X-User-ID"
	userRoleHeader = "X-User-Role"
)

type identityKey struct{}

// Identity is the caller as asserted by the gateway.
type Identity struct {
	UserID uuid.UUID
	Role   models.Role
}

// RequireIdentity rejects requests without a valid X-User-ID header. The role header is
// optional here; role enforcement happens in the gateway.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(userIDHeader)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing user id header")
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			writeError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		id := Identity{UserID: userID, Role: models.Role(r.Header.Get(userRoleHeader))}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

// IdentityFrom returns the identity stored by RequireIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

func callerID(r *http.Request) uuid.UUID {
	id, _ := IdentityFrom(r.Context())
	return id.UserID
}
