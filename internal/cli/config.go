package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Tyrowin/tapwars/internal/factory"
	"github.com/Tyrowin/tapwars/internal/server"
	"github.com/Tyrowin/tapwars/internal/storage/postgres"
	redisstorage "github.com/Tyrowin/tapwars/internal/storage/redis"
)

// Config holds CLI configuration
type Config struct {
	StorageType string
	RedisURL    string
	DatabaseURL string
	LogLevel    string

	Server *server.Config
}

// DefaultConfig returns a Config populated from the environment
func DefaultConfig() *Config {
	return &Config{
		StorageType: getEnvOrDefault("STORAGE_TYPE", factory.StorageTypeMemory),
		RedisURL:    os.Getenv("REDIS_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		Server:      server.NewConfigFromEnv(),
	}
}

// FactoryConfig translates the CLI settings into a factory.Config.
func (c *Config) FactoryConfig(logger *slog.Logger) (factory.Config, error) {
	cfg := factory.Config{
		Server:      *c.Server,
		Logger:      logger,
		StorageType: c.StorageType,
	}

	switch c.StorageType {
	case factory.StorageTypeRedis:
		if c.RedisURL == "" {
			return factory.Config{}, fmt.Errorf("REDIS_URL required when storage type is %s", c.StorageType)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		cfg.RedisConfig = &redisCfg
	case factory.StorageTypePostgres:
		if c.DatabaseURL == "" {
			return factory.Config{}, fmt.Errorf("DATABASE_URL required when storage type is %s", c.StorageType)
		}
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = c.DatabaseURL
		cfg.PostgresConfig = &pgCfg
	}

	return cfg, nil
}

// newLogger builds the JSON logger used by every command.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
