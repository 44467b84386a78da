package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"greencharge/backend/services/api-gateway/internal/auth"
	"greencharge/backend/services/api-gateway/internal/http/handlers"
	"greencharge/backend/services/api-gateway/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Reservations  *handlers.ReservationsHandlers
	HealthHandler http.HandlerFunc
	Auth          func(http.Handler) http.Handler
	RateLimit     func(http.Handler) http.Handler
}

// route is one forwarded endpoint. An empty roles list admits any authenticated caller.
type route struct {
	method string
	path   string
	roles  []string
}

var (
	anyone  []string
	drivers = []string{auth.RoleDriver}
	owners  = []string{auth.RoleOwner}
)

// routeTable maps gateway paths to reservations-service; the upstream path is the same
// path without the /api prefix.
var routeTable = []route{
	{http.MethodGet, "/api/accounts/me/impact", anyone},

	{http.MethodGet, "/api/resources", anyone},
	{http.MethodGet, "/api/resources/{id}", anyone},
	{http.MethodPost, "/api/resources", owners},
	{http.MethodPatch, "/api/resources/{id}", owners},
	{http.MethodDelete, "/api/resources/{id}", owners},
	{http.MethodGet, "/api/resources/{id}/bookings", owners},

	{http.MethodPost, "/api/booking-requests", drivers},
	{http.MethodGet, "/api/booking-requests/me", drivers},
	{http.MethodGet, "/api/booking-requests/{id}", anyone},
	{http.MethodPost, "/api/booking-requests/{id}/cancel", drivers},
	{http.MethodPost, "/api/booking-requests/{id}/approve", owners},
	{http.MethodPost, "/api/booking-requests/{id}/reject", owners},
	{http.MethodPost, "/api/booking-requests/{id}/session/start", owners},
	{http.MethodPost, "/api/booking-requests/{id}/session/end", owners},
	{http.MethodPost, "/api/booking-requests/{id}/session/cancel", owners},

	{http.MethodPost, "/api/bookings", drivers},
	{http.MethodGet, "/api/bookings/me", drivers},
	{http.MethodGet, "/api/bookings/{id}", anyone},
	{http.MethodPost, "/api/bookings/{id}/complete", drivers},
	{http.MethodPost, "/api/bookings/{id}/cancel", drivers},

	{http.MethodGet, "/api/owner/resources", owners},
	{http.MethodGet, "/api/owner/booking-requests", owners},
	{http.MethodGet, "/api/owner/sessions/active", owners},
}

// NewRouter wires HTTP routes with middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, middleware.StripIdentityHeaders)

	r.Get("/health", deps.HealthHandler)

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth)
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit)
		}
		for _, rt := range routeTable {
			h := http.Handler(http.HandlerFunc(deps.Reservations.Forward))
			if len(rt.roles) > 0 {
				h = middleware.RequireRole(rt.roles...)(h)
			}
			r.Method(rt.method, rt.path, h)
		}
	})
	return r
}
