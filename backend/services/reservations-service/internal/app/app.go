package app

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libdb "greencharge/backend/libs/db"
	libredis "greencharge/backend/libs/redis"
	"greencharge/backend/libs/tracing"
	"greencharge/backend/services/reservations-service/internal/config"
	"greencharge/backend/services/reservations-service/internal/events"
	httpserver "greencharge/backend/services/reservations-service/internal/http"
	"greencharge/backend/services/reservations-service/internal/http/handlers"
	"greencharge/backend/services/reservations-service/internal/jobs"
	redisstore "greencharge/backend/services/reservations-service/internal/redis"
	"greencharge/backend/services/reservations-service/internal/repository"
	"greencharge/backend/services/reservations-service/internal/service"
	"greencharge/backend/services/reservations-service/internal/ws"
)

const serviceName = "reservations-service"

// App wires reservations-service dependencies.
type App struct {
	server         *httpserver.Server
	reconciler     *jobs.Reconciler
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	natsConn       *nats.Conn
	tracerShutdown func(context.Context) error
	logger         *zap.Logger
}

// New constructs the application graph. Redis, NATS and tracing are optional.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	a := &App{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.Tracing.Enabled {
		if a.tracerShutdown, err = tracing.Setup(serviceName, os.Stdout); err != nil {
			return nil, err
		}
	}

	store, health, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(registry)

	wsManager := ws.NewManager(logger.Named("ws"))
	notifiers := events.Fanout{wsManager}

	if cfg.NATS.URL != "" {
		a.natsConn, err = nats.Connect(cfg.NATS.URL, nats.Name(serviceName))
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, events.NewNATSPublisher(a.natsConn, cfg.NATS.Subject, logger.Named("nats")))
	}

	var (
		activeSessions *redisstore.Store
		idempotency    handlers.IdempotencyStore
	)
	if cfg.RedisEnabled() {
		a.redisClient, err = libredis.NewRedisClient(ctx, libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		activeSessions = redisstore.NewStore(a.redisClient, cfg.Redis.TTL, logger.Named("sessions"))
		idempotency = redisstore.NewIdempotencyStore(a.redisClient, cfg.Idempotency.TTL)
		notifiers = append(notifiers, activeSessions)
		health["redis"] = func(ctx context.Context) error { return a.redisClient.Ping(ctx).Err() }
	}

	engine := service.NewEngine(store, service.Rewards{
		PointsPerSession: cfg.Rewards.PointsPerSession,
		CO2PerSessionKg:  cfg.Rewards.CO2PerSessionKg,
	}, service.WithNotifier(notifiers), service.WithMetrics(metrics))

	a.reconciler = jobs.NewReconciler(engine, cfg.Reconcile.Schedule, logger.Named("reconciler"))

	wsServer := ws.NewServer(wsManager, cfg.WebSocket.WriteTimeout, cfg.WebSocket.AllowedOrigins, logger.Named("ws"))
	routes := httpserver.Routes{
		Resources:    handlers.NewResourcesHandler(engine, logger),
		Requests:     handlers.NewRequestsHandler(engine, logger),
		Bookings:     handlers.NewBookingsHandler(engine, logger),
		Accounts:     handlers.NewAccountsHandler(engine, logger),
		Availability: wsServer.HandleWS,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Health:       handlers.NewHealthHandler(health),
	}
	if activeSessions != nil {
		routes.ActiveSessions = handlers.NewActiveSessionsHandler(activeSessions, logger)
		routes.Idempotency = handlers.Idempotency(idempotency, logger)
	}

	a.server = httpserver.NewServer(cfg.HTTPAddress(), httpserver.NewRouter(routes, logger), logger)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (repository.Store, map[string]handlers.Pinger, error) {
	health := map[string]handlers.Pinger{}
	if cfg.Store.Driver == config.StoreMemory {
		a.logger.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), health, nil
	}

	pool, err := libdb.NewPostgresPool(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	a.pool = pool
	store := repository.NewPostgresStore(pool)
	if cfg.Database.Migrate {
		if err := store.Migrate(ctx); err != nil {
			return nil, nil, err
		}
		a.logger.Info("database schema applied")
	}
	health["postgres"] = pool.Ping
	return store, health, nil
}

// Run starts the reconciliation job and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	if err := a.reconciler.Start(ctx); err != nil {
		return err
	}
	defer a.reconciler.Stop()
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.logger.Warn("failed to drain nats", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(context.Background()); err != nil {
			a.logger.Warn("failed to flush traces", zap.Error(err))
		}
	}
}
