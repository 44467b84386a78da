package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "greencharge/backend/libs/config"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config defines reservations service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"RESERVATIONS_HTTP_PORT"`
	} `yaml:"http"`
	Store struct {
		Driver string `yaml:"driver" env:"STORE_DRIVER"`
	} `yaml:"store"`
	Database struct {
		DSN     string `yaml:"dsn" env:"DATABASE_DSN"`
		Migrate bool   `yaml:"migrate" env:"DATABASE_MIGRATE"`
	} `yaml:"database"`
	Redis struct {
		Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
		Password string        `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int           `yaml:"db" env:"REDIS_DB"`
		TTL      time.Duration `yaml:"activeSessionTTL" env:"REDIS_ACTIVE_SESSION_TTL"`
	} `yaml:"redis"`
	NATS struct {
		URL     string `yaml:"url" env:"NATS_URL"`
		Subject string `yaml:"subject" env:"NATS_SUBJECT"`
	} `yaml:"nats"`
	Rewards struct {
		PointsPerSession int     `yaml:"pointsPerSession" env:"REWARDS_POINTS_PER_SESSION"`
		CO2PerSessionKg  float64 `yaml:"co2PerSessionKg" env:"REWARDS_CO2_PER_SESSION_KG"`
	} `yaml:"rewards"`
	Reconcile struct {
		Schedule string `yaml:"schedule" env:"RECONCILE_SCHEDULE"`
	} `yaml:"reconcile"`
	Tracing struct {
		Enabled bool `yaml:"enabled" env:"TRACING_ENABLED"`
	} `yaml:"tracing"`
	WebSocket struct {
		AllowedOrigins []string      `yaml:"allowedOrigins" env:"WS_ALLOWED_ORIGINS"`
		WriteTimeout   time.Duration `yaml:"writeTimeout" env:"WS_WRITE_TIMEOUT"`
	} `yaml:"websocket"`
	Idempotency struct {
		TTL time.Duration `yaml:"ttl" env:"IDEMPOTENCY_TTL"`
	} `yaml:"idempotency"`
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8082"
	cfg.Store.Driver = StorePostgres
	cfg.Redis.TTL = 24 * time.Hour
	cfg.WebSocket.WriteTimeout = 10 * time.Second
	cfg.Idempotency.TTL = 24 * time.Hour

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = StorePostgres
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("config: database dsn required")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Rewards.PointsPerSession < 0 || c.Rewards.CO2PerSessionKg < 0 {
		return errors.New("config: rewards must not be negative")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8082"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// RedisEnabled reports whether the session cache and idempotency store are configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}
