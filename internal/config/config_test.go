package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")

	cfg := Load()
	if cfg.StoreBackend != "memory" {
		t.Fatalf("backend = %q, want memory", cfg.StoreBackend)
	}
	if cfg.EventLogPath != "data/reservations.log" {
		t.Fatalf("event log path = %q", cfg.EventLogPath)
	}
	if cfg.RedisAddr != "localhost:6379" || cfg.RedisDB != 0 || cfg.RedisTLS {
		t.Fatalf("redis defaults = %q/%d/tls=%v", cfg.RedisAddr, cfg.RedisDB, cfg.RedisTLS)
	}
	if cfg.SnapshotCacheTTL != 30*time.Second || cfg.MaxAttempts != 3 {
		t.Fatalf("ttl = %s, attempts = %d", cfg.SnapshotCacheTTL, cfg.MaxAttempts)
	}
}

func TestLoadMySQLBackend(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("STORE_BACKEND", "mysql")
	t.Setenv("DB_USER", "svc")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "reservations")
	t.Setenv("DB_MAX_CONNS", "10")
	t.Setenv("DB_CONN_LIFETIME", "5m")

	cfg := Load()
	if cfg.DBUser != "svc" || cfg.DBHost != "db.internal" || cfg.DBName != "reservations" {
		t.Fatalf("db settings = %+v", cfg)
	}
	if cfg.DBMaxConns != 10 || cfg.DBConnLifetime != 5*time.Minute {
		t.Fatalf("pool settings = %d/%s", cfg.DBMaxConns, cfg.DBConnLifetime)
	}
}

func TestRedisAddrResolution(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("REDIS_ADDR", "cache.internal:6390")

	if cfg := Load(); cfg.RedisAddr != "cache.internal:6390" {
		t.Fatalf("addr = %q", cfg.RedisAddr)
	}

	// Explicit host/port take precedence over REDIS_ADDR.
	t.Setenv("REDIS_HOST", "cache2.internal")
	t.Setenv("REDIS_PORT", "6400")
	if cfg := Load(); cfg.RedisAddr != "cache2.internal:6400" {
		t.Fatalf("addr = %q", cfg.RedisAddr)
	}

	t.Setenv("REDIS_TLS", "TRUE")
	if cfg := Load(); !cfg.RedisTLS {
		t.Fatal("REDIS_TLS=TRUE not honored")
	}
}
