package config

import (
	"fmt"
	"strings"
	"time"

	libconfig "greencharge/backend/libs/config"
)

// Config defines gateway configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"API_GATEWAY_HTTP_PORT"`
	} `yaml:"http"`
	JWT struct {
		Secret    string        `yaml:"secret" env:"API_GATEWAY_JWT_SECRET" required:"true"`
		ExpiresIn time.Duration `yaml:"expiresIn" env:"API_GATEWAY_JWT_EXPIRES_IN"`
	} `yaml:"jwt"`
	Services struct {
		ReservationsURL string `yaml:"reservationsUrl" env:"RESERVATIONS_SERVICE_URL" required:"true"`
	} `yaml:"services"`
	HTTPClient struct {
		Timeout time.Duration `yaml:"timeout" env:"API_GATEWAY_HTTP_TIMEOUT"`
	} `yaml:"httpClient"`
	RateLimit struct {
		Rate      string `yaml:"rate" env:"API_GATEWAY_RATE_LIMIT"`
		RedisAddr string `yaml:"redisAddr" env:"API_GATEWAY_REDIS_ADDR"`
		Password  string `yaml:"redisPassword" env:"API_GATEWAY_REDIS_PASSWORD"`
	} `yaml:"rateLimit"`
}

// Load configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.JWT.ExpiresIn = time.Hour
	cfg.Services.ReservationsURL = "http://localhost:8082"
	cfg.HTTPClient.Timeout = 5 * time.Second
	cfg.RateLimit.Rate = "120-M"

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// HTTPTimeout returns http client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTPClient.Timeout <= 0 {
		return 5 * time.Second
	}
	return c.HTTPClient.Timeout
}
