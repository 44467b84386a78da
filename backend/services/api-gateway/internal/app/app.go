package app

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "greencharge/backend/libs/redis"
	"greencharge/backend/services/api-gateway/internal/auth"
	"greencharge/backend/services/api-gateway/internal/clients"
	"greencharge/backend/services/api-gateway/internal/config"
	httpserver "greencharge/backend/services/api-gateway/internal/http"
	"greencharge/backend/services/api-gateway/internal/http/handlers"
	"greencharge/backend/services/api-gateway/internal/http/middleware"
)

// App wires API gateway dependencies.
type App struct {
	server      *httpserver.Server
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs application graph. Without a Redis address the rate limiter keeps its
// counters in memory.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	if cfg.RateLimit.RedisAddr != "" {
		client, err := libredis.NewRedisClient(ctx, libredis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.Password,
		})
		if err != nil {
			return nil, err
		}
		a.redisClient = client
	}

	rateLimit, err := middleware.RateLimit(cfg.RateLimit.Rate, a.redisClient, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	httpClient := clients.NewDefaultHTTPClient(cfg.HTTPTimeout())
	reservationsClient := clients.NewReservationsClient(cfg.Services.ReservationsURL, httpClient)
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Reservations:  handlers.NewReservationsHandlers(reservationsClient, logger),
		HealthHandler: handlers.NewHealthHandler(reservationsClient, logger),
		Auth:          middleware.AuthMiddleware(tokens),
		RateLimit:     rateLimit,
	})

	a.server = httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)
	return a, nil
}

// Run starts serving HTTP traffic.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
