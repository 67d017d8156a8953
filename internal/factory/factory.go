package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Tyrowin/tapwars/internal/dependencies/clock"
	"github.com/Tyrowin/tapwars/internal/model"
	"github.com/Tyrowin/tapwars/internal/server"
	"github.com/Tyrowin/tapwars/internal/storage"
	"github.com/Tyrowin/tapwars/internal/storage/memory"
	"github.com/Tyrowin/tapwars/internal/storage/postgres"
	redisstorage "github.com/Tyrowin/tapwars/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

const seedTimeout = 10 * time.Second

// App contains all wired application components
type App struct {
	Storage storage.Storage
	Clock   clock.Clock
	Server  *server.Server
}

// Config holds configuration for the application factory
type Config struct {
	// Server holds the game server settings.
	Server server.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// Clock overrides the wall clock (optional)
	Clock clock.Clock
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds database settings (required if StorageType is "postgres")
	PostgresConfig *postgres.Config
	// Catalog is seeded into the shop at startup. Defaults to model.DefaultCatalog.
	Catalog []model.ShopItem
}

// New opens the configured store, seeds the shop catalog and builds the server.
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := NewStorage(cfg)
	if err != nil {
		return nil, err
	}

	if err := SeedCatalog(store, cfg.Catalog); err != nil {
		_ = store.Close()
		return nil, err
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	return newWithDependencies(store, clk, cfg.Server, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, serverCfg server.Config, logger *slog.Logger) *App {
	return &App{
		Storage: store,
		Clock:   clk,
		Server:  server.NewServer(store, serverCfg, clk, logger),
	}
}

// NewStorage opens the backend selected by cfg.StorageType.
func NewStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		store, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return store, nil
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		store, err := postgres.New(*cfg.PostgresConfig)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'postgres'", storageType)
	}
}

// SeedCatalog inserts any catalog items missing from store. A nil catalog
// seeds model.DefaultCatalog.
func SeedCatalog(store storage.Storage, catalog []model.ShopItem) error {
	if catalog == nil {
		catalog = model.DefaultCatalog()
	}

	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()

	if err := store.SeedShop(ctx, catalog); err != nil {
		return fmt.Errorf("seeding shop catalog: %w", err)
	}
	return nil
}
