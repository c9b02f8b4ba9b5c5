package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("TOKEN_TTL_MINUTES", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TokenTTL() != 2*time.Hour {
		t.Fatalf("expected 2h token ttl, got %v", cfg.TokenTTL())
	}
	if cfg.SystemUserID != DefaultSystemUserID {
		t.Fatalf("unexpected system user %q", cfg.SystemUserID)
	}
	if cfg.TraceSampleRatio != 1 {
		t.Fatalf("expected full trace sampling by default, got %v", cfg.TraceSampleRatio)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("QUEUE_TIMEZONE", "America/Santiago")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || cfg.StoreDriver != DriverMemory || cfg.DBMaxConns != 25 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	brokers := cfg.Brokers()
	if len(brokers) != 2 || brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", brokers)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "America/Santiago" {
		t.Fatalf("unexpected location %v %v", loc, err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{Env: "production", StoreDriver: DriverPostgres, DatabaseURL: "postgres://x", JWTSecret: "s", TokenTTLMinutes: 120, SystemUserID: DefaultSystemUserID}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := map[string]func(c *Config){
		"missing database url": func(c *Config) { c.DatabaseURL = "" },
		"unknown driver":       func(c *Config) { c.StoreDriver = "mongo" },
		"missing secret":       func(c *Config) { c.JWTSecret = "" },
		"bad ttl":              func(c *Config) { c.TokenTTLMinutes = 0 },
		"bad timezone":         func(c *Config) { c.QueueTimezone = "Mars/Olympus" },
		"bad sample ratio":     func(c *Config) { c.TraceSampleRatio = 1.5 },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	dev := base
	dev.Env = "development"
	dev.JWTSecret = ""
	dev.StoreDriver = DriverMemory
	dev.DatabaseURL = ""
	if err := dev.Validate(); err != nil {
		t.Fatalf("expected dev memory config valid, got %v", err)
	}
}
