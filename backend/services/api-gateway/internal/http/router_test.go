package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"greencharge/backend/services/api-gateway/internal/auth"
	"greencharge/backend/services/api-gateway/internal/clients"
	"greencharge/backend/services/api-gateway/internal/http/handlers"
	"greencharge/backend/services/api-gateway/internal/http/middleware"
)

type upstreamCall struct {
	Method         string
	Path           string
	Query          string
	Body           string
	UserID         string
	Role           string
	IdempotencyKey string
}

type fakeUpstream struct {
	mu    sync.Mutex
	calls []upstreamCall
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	call := upstreamCall{
		Method:         r.Method,
		Path:           r.URL.Path,
		Query:          r.URL.RawQuery,
		Body:           string(body),
		UserID:         r.Header.Get("X-User-ID"),
		Role:           r.Header.Get("X-User-Role"),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if r.URL.Path == "/booking-requests/full/approve" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"no free slots","kind":"no capacity","retryable":true}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(call)
}

func (f *fakeUpstream) last(t *testing.T) upstreamCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

type gateway struct {
	handler  http.Handler
	tokens   *auth.TokenService
	upstream *fakeUpstream
}

func newGateway(t *testing.T, rate string) *gateway {
	t.Helper()
	upstream := &fakeUpstream{}
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	tokens := auth.NewTokenService("test-secret", time.Hour)
	client := clients.NewReservationsClient(srv.URL, clients.NewDefaultHTTPClient(2*time.Second))
	rateLimit, err := middleware.RateLimit(rate, nil, logger)
	require.NoError(t, err)

	return &gateway{
		handler: NewRouter(RouterDeps{
			Reservations:  handlers.NewReservationsHandlers(client, logger),
			HealthHandler: handlers.NewHealthHandler(client, logger),
			Auth:          middleware.AuthMiddleware(tokens),
			RateLimit:     rateLimit,
		}),
		tokens:   tokens,
		upstream: upstream,
	}
}

func (g *gateway) token(t *testing.T, user uuid.UUID, role string) string {
	t.Helper()
	token, err := g.tokens.GenerateToken(user, role)
	require.NoError(t, err)
	return token
}

func (g *gateway) do(method, target, token, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	g.handler.ServeHTTP(rec, req)
	return rec
}

func TestForwardsWithVerifiedIdentity(t *testing.T) {
	g := newGateway(t, "100-M")
	driver := uuid.New()
	token := g.token(t, driver, auth.RoleDriver)

	rec := g.do(http.MethodPost, "/api/bookings?dry=1", token, `{"duration_hours":1}`,
		"X-User-ID", uuid.NewString(),
		"X-User-Role", auth.RoleOwner,
		"Idempotency-Key", "abc",
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))

	call := g.upstream.last(t)
	require.Equal(t, http.MethodPost, call.Method)
	require.Equal(t, "/bookings", call.Path)
	require.Equal(t, "dry=1", call.Query)
	require.Equal(t, `{"duration_hours":1}`, call.Body)
	require.Equal(t, driver.String(), call.UserID)
	require.Equal(t, auth.RoleDriver, call.Role)
	require.Equal(t, "abc", call.IdempotencyKey)
}

func TestUpstreamErrorsPassThrough(t *testing.T) {
	g := newGateway(t, "100-M")
	token := g.token(t, uuid.New(), auth.RoleOwner)

	rec := g.do(http.MethodPost, "/api/booking-requests/full/approve", token, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"error":"no free slots","kind":"no capacity","retryable":true}`, rec.Body.String())
}

func TestAuthenticationAndRoles(t *testing.T) {
	g := newGateway(t, "100-M")
	driverToken := g.token(t, uuid.New(), auth.RoleDriver)
	ownerToken := g.token(t, uuid.New(), auth.RoleOwner)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/resources", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/resources", "not.a.jwt", http.StatusUnauthorized},
		{"driver browses", http.MethodGet, "/api/resources", driverToken, http.StatusOK},
		{"owner browses", http.MethodGet, "/api/resources/" + uuid.NewString(), ownerToken, http.StatusOK},
		{"driver approves", http.MethodPost, "/api/booking-requests/x/approve", driverToken, http.StatusForbidden},
		{"driver creates charger", http.MethodPost, "/api/resources", driverToken, http.StatusForbidden},
		{"owner books", http.MethodPost, "/api/bookings", ownerToken, http.StatusForbidden},
		{"owner cancels request", http.MethodPost, "/api/booking-requests/x/cancel", ownerToken, http.StatusForbidden},
		{"owner starts session", http.MethodPost, "/api/booking-requests/x/session/start", ownerToken, http.StatusOK},
		{"driver completes", http.MethodPost, "/api/bookings/x/complete", driverToken, http.StatusOK},
		{"unknown route", http.MethodGet, "/api/internal/accounts", ownerToken, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := g.do(tc.method, tc.path, tc.token, "")
			require.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRateLimitPerCaller(t *testing.T) {
	g := newGateway(t, "2-M")
	first := g.token(t, uuid.New(), auth.RoleDriver)
	second := g.token(t, uuid.New(), auth.RoleDriver)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/bookings/me", first, "").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, g.do(http.MethodGet, "/api/bookings/me", first, "").Code)
	require.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/bookings/me", second, "").Code)
}

func TestHealthReflectsUpstream(t *testing.T) {
	g := newGateway(t, "100-M")
	rec := g.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
