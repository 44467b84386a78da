package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

type testConfig struct {
	HTTP struct {
		Port string `yaml:"port" env:"TEST_HTTP_PORT"`
	} `yaml:"http"`
	Store struct {
		Driver string        `yaml:"driver"`
		DSN    string        `yaml:"dsn" required:"true"`
		Wait   time.Duration `yaml:"wait"`
	} `yaml:"store"`
	Origins []string `yaml:"origins" env:"TEST_ORIGINS"`
	Ratio   float64  `yaml:"ratio"`
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("http:\n  port: \"9000\"\nstore:\n  driver: memory\n  dsn: file-dsn\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(defaultConfigPathEnv, path)
	t.Setenv("TEST_HTTP_PORT", "9100")
	t.Setenv("STORE_WAIT", "1500ms")
	t.Setenv("TEST_ORIGINS", "a.example, b.example,")
	t.Setenv("RATIO", "0.25")

	var cfg testConfig
	if err := LoadConfig(&cfg); err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Port != "9100" {
		t.Fatalf("expected env port override, got %q", cfg.HTTP.Port)
	}
	if cfg.Store.Driver != "memory" || cfg.Store.DSN != "file-dsn" {
		t.Fatalf("unexpected store section: %+v", cfg.Store)
	}
	if cfg.Store.Wait != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s wait, got %s", cfg.Store.Wait)
	}
	if !reflect.DeepEqual(cfg.Origins, []string{"a.example", "b.example"}) {
		t.Fatalf("unexpected origins: %v", cfg.Origins)
	}
	if cfg.Ratio != 0.25 {
		t.Fatalf("expected ratio 0.25, got %v", cfg.Ratio)
	}
}

func TestLoadConfigRequiredField(t *testing.T) {
	t.Setenv(defaultConfigPathEnv, "")
	var cfg testConfig
	err := LoadConfig(&cfg)
	if err == nil {
		t.Fatalf("expected missing dsn error")
	}
	if err.Error() != "config: STORE_DSN is required" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	t.Setenv(defaultConfigPathEnv, "")
	t.Setenv("STORE_DSN", "x")
	t.Setenv("STORE_WAIT", "soon")
	var cfg testConfig
	if err := LoadConfig(&cfg); err == nil {
		t.Fatalf("expected parse error for STORE_WAIT")
	}
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	if err := LoadConfig(testConfig{}); err == nil {
		t.Fatalf("expected error for non-pointer target")
	}
}
