package clients

import (
	"context"
	"net/http"

	"greencharge/backend/services/api-gateway/internal/auth"
)

// Headers set by the gateway on every forwarded call.
const (
	userIDHeader      = "X-User-ID"
	userRoleHeader    = "X-User-Role"
	idempotencyHeader = "Idempotency-Key"
)

// ReservationsClient forwards calls to reservations-service on behalf of a caller.
type ReservationsClient struct {
	base *BaseClient
}

// NewReservationsClient returns client.
func NewReservationsClient(baseURL string, httpClient HTTPDoer) *ReservationsClient {
	return &ReservationsClient{base: NewBaseClient(baseURL, httpClient)}
}

// Forward sends the call with the verified identity. Only the idempotency key is copied
// from the client's headers.
func (c *ReservationsClient) Forward(ctx context.Context, caller auth.Identity, method, path, rawQuery string, body []byte, idempotencyKey string) (*Response, error) {
	header := http.Header{}
	header.Set(userIDHeader, caller.UserID.String())
	header.Set(userRoleHeader, caller.Role)
	if idempotencyKey != "" {
		header.Set(idempotencyHeader, idempotencyKey)
	}
	return c.base.Do(ctx, Request{
		Method:   method,
		Path:     path,
		RawQuery: rawQuery,
		Body:     body,
		Header:   header,
	})
}

// Health checks the upstream /health endpoint.
func (c *ReservationsClient) Health(ctx context.Context) (*Response, error) {
	return c.base.Do(ctx, Request{Method: http.MethodGet, Path: "/health"})
}
