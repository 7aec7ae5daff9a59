// Package config resolves server settings from a .env file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"liveboard-sync-server/store"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	Store store.Options

	RoomQueueSize   int
	RoomIdleTimeout time.Duration
	PersistTimeout  time.Duration

	MDNSEnabled bool
	MDNSService string
}

// Load reads .env from the working directory if present, then the
// environment, then parses args. Variables already set in the environment
// win over .env entries.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := fromEnv()
	if err != nil {
		return Config{}, err
	}

	flagSet := pflag.NewFlagSet("liveboard", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flagSet.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	flagSet.StringVar(&cfg.Store.Backend, "store", cfg.Store.Backend, "board store backend: memory, redis, postgres or sqlite")
	flagSet.StringVar(&cfg.Store.RedisAddr, "redis-addr", cfg.Store.RedisAddr, "redis host:port")
	flagSet.StringVar(&cfg.Store.RedisPassword, "redis-password", cfg.Store.RedisPassword, "redis password")
	flagSet.IntVar(&cfg.Store.RedisDB, "redis-db", cfg.Store.RedisDB, "redis database number")
	flagSet.StringVar(&cfg.Store.DatabaseURL, "database-url", cfg.Store.DatabaseURL, "postgres connection string")
	flagSet.StringVar(&cfg.Store.SQLitePath, "sqlite-path", cfg.Store.SQLitePath, "sqlite database file")
	flagSet.IntVar(&cfg.RoomQueueSize, "room-queue-size", cfg.RoomQueueSize, "pending operations allowed per room")
	flagSet.DurationVar(&cfg.RoomIdleTimeout, "room-idle-timeout", cfg.RoomIdleTimeout, "stop a room's worker after this long without operations")
	flagSet.DurationVar(&cfg.PersistTimeout, "persist-timeout", cfg.PersistTimeout, "deadline for saving one operation")
	flagSet.BoolVar(&cfg.MDNSEnabled, "mdns", cfg.MDNSEnabled, "advertise the server on the local network")
	flagSet.StringVar(&cfg.MDNSService, "mdns-service", cfg.MDNSService, "mDNS service type")

	if err := flagSet.Parse(args); err != nil {
		return Config{}, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return Config{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return cfg, cfg.Validate()
}

func fromEnv() (Config, error) {
	cfg := Config{
		Port:        getenv("PORT", "8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogFormat:   getenv("LOG_FORMAT", "text"),
		MDNSService: getenv("MDNS_SERVICE", "_liveboard._tcp"),
		Store: store.Options{
			Backend:       getenv("STORE_BACKEND", store.BackendMemory),
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			DatabaseURL:   os.Getenv("DATABASE_URL"),
			SQLitePath:    getenv("SQLITE_PATH", "liveboard.db"),
		},
	}

	var err error
	if cfg.Store.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.RoomQueueSize, err = envInt("ROOM_QUEUE_SIZE", 64); err != nil {
		return Config{}, err
	}
	if cfg.RoomIdleTimeout, err = envDuration("ROOM_IDLE_TIMEOUT", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.PersistTimeout, err = envDuration("PERSIST_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.MDNSEnabled, err = envBool("MDNS_ENABLED", false); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store.Backend {
	case store.BackendMemory, store.BackendRedis, store.BackendPostgres, store.BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == store.BackendPostgres && c.Store.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres store")
	}
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.RoomQueueSize <= 0 {
		return fmt.Errorf("room queue size must be positive, got %d", c.RoomQueueSize)
	}
	if c.RoomIdleTimeout <= 0 || c.PersistTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
