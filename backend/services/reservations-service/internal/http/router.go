package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"greencharge/backend/services/reservations-service/internal/http/handlers"
)

// Routes groups handlers. Optional entries left nil are not mounted.
type Routes struct {
	Resources      *handlers.ResourcesHandler
	Requests       *handlers.RequestsHandler
	Bookings       *handlers.BookingsHandler
	Accounts       *handlers.AccountsHandler
	ActiveSessions http.HandlerFunc
	Availability   http.HandlerFunc
	Metrics        http.Handler
	Health         http.HandlerFunc
	Idempotency    func(http.Handler) http.Handler
}

// NewRouter registers endpoints. Everything except health, metrics, the availability
// feed and account provisioning requires the X-User-ID header set by the gateway.
func NewRouter(routes Routes, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, accessLog(logger), middleware.Recoverer)

	if routes.Health != nil {
		r.Get("/health", routes.Health)
	}
	if routes.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", routes.Metrics)
	}
	if routes.Availability != nil {
		r.Get("/ws/availability", routes.Availability)
	}
	r.Post("/internal/accounts", routes.Accounts.Provision)

	idempotent := routes.Idempotency
	if idempotent == nil {
		idempotent = func(next http.Handler) http.Handler { return next }
	}

	r.Group(func(r chi.Router) {
		r.Use(handlers.RequireIdentity)

		r.Get("/accounts/me/impact", routes.Accounts.Impact)

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", routes.Resources.List)
			r.Post("/", routes.Resources.Create)
			r.Get("/{id}", routes.Resources.Get)
			r.Patch("/{id}", routes.Resources.Update)
			r.Delete("/{id}", routes.Resources.Delete)
			r.Get("/{id}/bookings", routes.Resources.Bookings)
		})

		r.Route("/booking-requests", func(r chi.Router) {
			r.With(idempotent).Post("/", routes.Requests.Create)
			r.Get("/me", routes.Requests.ListMine)
			r.Get("/{id}", routes.Requests.Get)
			r.Post("/{id}/approve", routes.Requests.Approve)
			r.Post("/{id}/reject", routes.Requests.Reject)
			r.Post("/{id}/cancel", routes.Requests.Cancel)
			r.Post("/{id}/session/start", routes.Requests.StartSession)
			r.Post("/{id}/session/end", routes.Requests.EndSession)
			r.Post("/{id}/session/cancel", routes.Requests.CancelSession)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.With(idempotent).Post("/", routes.Bookings.Create)
			r.Get("/me", routes.Bookings.ListMine)
			r.Get("/{id}", routes.Bookings.Get)
			r.Post("/{id}/complete", routes.Bookings.Complete)
			r.Post("/{id}/cancel", routes.Bookings.Cancel)
		})

		r.Route("/owner", func(r chi.Router) {
			r.Get("/resources", routes.Resources.ListMine)
			r.Get("/booking-requests", routes.Requests.ListOwner)
			if routes.ActiveSessions != nil {
				r.Get("/sessions/active", routes.ActiveSessions)
			}
		})
	})
	return r
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
