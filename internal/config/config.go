package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings normalizes boolean spellings
	"time"    // time parses duration values
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable.  Optional integrations
// (MySQL persistence, Redis caching, the message broker) are enabled
// by their variables being set; the core runs with the in-memory
// store and the event log alone.
type Config struct {
	Env              string        // application environment (e.g. "dev", "prod")
	Port             string        // HTTP port to listen on
	EventLogPath     string        // path of the append-only event log file
	StoreBackend     string        // "memory" or "mysql"
	DBUser           string        // database username (mysql backend only)
	DBPass           string        // database password (optional)
	DBHost           string        // database host address
	DBPort           string        // database port number
	DBName           string        // database name
	DBMaxConns       int           // connection pool size
	DBConnLifetime   time.Duration // max lifetime of a pooled connection
	RedisAddr        string        // redis host:port; snapshot cache and rate limiting
	RedisPassword    string        // redis password (optional)
	RedisDB          int           // redis database number
	RedisTLS         bool          // dial redis over TLS
	AMQPURL          string        // broker URL; empty disables the consumer and publisher
	SnapshotCacheTTL time.Duration // lifetime of cached area snapshots
	MaxAttempts      int           // bound on version-conflict retries per request
}

// Load reads configuration values from environment variables and
// returns a Config.  Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:              must("APP_ENV"),  // environment (dev/test/prod)
		Port:             must("APP_PORT"), // port to bind the HTTP server
		EventLogPath:     getenv("EVENT_LOG_PATH", "data/reservations.log"),
		StoreBackend:     getenv("STORE_BACKEND", "memory"),
		AMQPURL:          brokerURL(),
		RedisAddr:        redisAddr(),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getint("REDIS_DB", 0),
		RedisTLS:         boolish(os.Getenv("REDIS_TLS")),
		SnapshotCacheTTL: getdur("SNAPSHOT_CACHE_TTL", 30*time.Second),
		MaxAttempts:      getint("RESERVATION_MAX_ATTEMPTS", 3),
	}
	if cfg.StoreBackend == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
		cfg.DBMaxConns = getint("DB_MAX_CONNS", 25)
		cfg.DBConnLifetime = getdur("DB_CONN_LIFETIME", 30*time.Minute)
	}
	return cfg
}

// redisAddr resolves the redis address: REDIS_HOST/REDIS_PORT win
// over REDIS_ADDR, and an unset address falls back to the local
// default.
func redisAddr() string {
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		return host + ":" + port
	}
	return getenv("REDIS_ADDR", "localhost:6379")
}

// boolish accepts the truthy spellings used across the env files.
func boolish(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

// brokerURL resolves the broker address from either RABBITMQ_URL or
// AMQP_URL.  An empty result disables broker integration.
func brokerURL() string {
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		return url
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If
// the variable is unset or empty, the application logs a fatal error
// and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// getenv returns the variable's value or the default when unset.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getint is like getenv for integers; unparsable values fall back to
// the default.
func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// getdur is like getenv for durations; unparsable values fall back to
// the default.
func getdur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
