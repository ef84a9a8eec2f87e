package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/wagerlobby/internal/api"
	"github.com/mcoot/wagerlobby/internal/config"
	"github.com/mcoot/wagerlobby/internal/dependencies/clock"
	"github.com/mcoot/wagerlobby/internal/dependencies/random"
	"github.com/mcoot/wagerlobby/internal/model"
	"github.com/mcoot/wagerlobby/internal/realtime"
	"github.com/mcoot/wagerlobby/internal/services/archive"
	"github.com/mcoot/wagerlobby/internal/services/auth"
	"github.com/mcoot/wagerlobby/internal/services/balance"
	"github.com/mcoot/wagerlobby/internal/services/draw"
	"github.com/mcoot/wagerlobby/internal/services/lobby"
	"github.com/mcoot/wagerlobby/internal/services/match"
	"github.com/mcoot/wagerlobby/internal/services/registry"
	"github.com/mcoot/wagerlobby/internal/storage"
	"github.com/mcoot/wagerlobby/internal/storage/memory"
	redisstorage "github.com/mcoot/wagerlobby/internal/storage/redis"
	sqlitestorage "github.com/mcoot/wagerlobby/internal/storage/sqlite"
)

// Backend type constants
const (
	StorageTypeMemory = config.BackendMemory
	StorageTypeRedis  = config.BackendRedis
	StorageTypeSQLite = config.BackendSQLite
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage
	Archive storage.ArchiveStore

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry        *registry.Registry
	Balance         *balance.Gateway
	Drawer          *draw.Drawer
	Broker          *realtime.Broker
	Archiver        *archive.Archiver
	Engine          *match.Engine
	LobbyController *lobby.Controller
	AuthService     *auth.Service

	logger  *slog.Logger
	closers []io.Closer
	started bool
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// Tiers are the room classes to run (optional)
	// If empty, defaults to model.DefaultTiers()
	Tiers []model.Tier
	// StorageType selects the player and balance backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// ArchiveType selects the archive backend ("memory", "redis" or "sqlite")
	// If empty, the player storage is reused when it can archive
	ArchiveType string
	// RedisConfig holds Redis connection settings (required if either type is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the archive database file (required if ArchiveType is "sqlite")
	SQLitePath string
	// AuthConfig holds configuration for the auth service
	AuthConfig auth.Config
	// BalanceConfig holds the balance gateway deadline
	// If zero value, defaults to balance.DefaultConfig()
	BalanceConfig balance.Config
	// EngineConfig holds the round timing (optional)
	// If nil, defaults to match.DefaultConfig()
	EngineConfig *match.Config
	// ArchiveConfig holds archiver settings (optional)
	// If nil, defaults to archive.DefaultConfig()
	ArchiveConfig *archive.Config
	// BrokerConfig holds event broker buffer sizes
	BrokerConfig realtime.Config
}

// FromConfig translates server configuration into factory configuration
func FromConfig(c *config.Config, logger *slog.Logger) (Config, error) {
	tiers, err := c.Tiers()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Logger:      logger,
		Tiers:       tiers,
		StorageType: c.StorageType,
		ArchiveType: c.ArchiveType,
		SQLitePath:  c.ArchiveSQLitePath,
		AuthConfig: auth.Config{
			PlatformSecret:  c.PlatformSecret,
			BypassMarker:    c.BypassMarker,
			Freshness:       c.SessionFreshness(),
			SigningKey:      []byte(c.SessionSigningKey),
			SessionDuration: c.SessionTTL,
			StartingBalance: c.StartingBalance,
		},
		BalanceConfig: balance.Config{ReserveTimeout: c.ReserveTimeout},
		EngineConfig:  &match.Config{Suspense: c.Suspense()},
		ArchiveConfig: &archive.Config{
			Enabled:   c.ArchiveEnabled,
			QueueSize: c.ArchiveQueue,
		},
		BrokerConfig: realtime.Config{ClientBuffer: c.EventBuffer},
	}

	if c.StorageType == StorageTypeRedis || c.ArchiveType == StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		if c.RedisURL != "" {
			redisCfg.URL = c.RedisURL
		}
		cfg.RedisConfig = &redisCfg
	}
	return cfg, nil
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	// Create storage based on type
	var store storage.Storage
	var redisStore *redisstorage.Storage
	openRedis := func() (*redisstorage.Storage, error) {
		if redisStore != nil {
			return redisStore, nil
		}
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required for redis backends")
		}
		s, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		redisStore = s
		closers = append(closers, s)
		return s, nil
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		s, err := openRedis()
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create archive store based on type
	var archiveStore storage.ArchiveStore
	switch cfg.ArchiveType {
	case "":
		as, ok := store.(storage.ArchiveStore)
		if !ok {
			closeAll()
			return nil, errors.New("storage backend cannot archive; set ArchiveType")
		}
		archiveStore = as
	case StorageTypeMemory:
		if ms, ok := store.(*memory.Storage); ok {
			archiveStore = ms
		} else {
			archiveStore = memory.New()
		}
	case StorageTypeRedis:
		s, err := openRedis()
		if err != nil {
			closeAll()
			return nil, err
		}
		archiveStore = s
	case StorageTypeSQLite:
		if cfg.SQLitePath == "" {
			closeAll()
			return nil, errors.New("SQLitePath required when ArchiveType is sqlite")
		}
		s, err := sqlitestorage.Open(cfg.SQLitePath)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("open archive: %w", err)
		}
		closers = append(closers, s)
		archiveStore = s
	default:
		closeAll()
		return nil, errors.New("invalid ArchiveType: must be 'memory', 'redis' or 'sqlite'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	app := newWithDependencies(store, archiveStore, clk, rnd, cfg, logger)
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	archiveStore storage.ArchiveStore,
	clk clock.Clock,
	rnd random.Random,
	cfg Config,
	logger *slog.Logger,
) *App {
	tiers := cfg.Tiers
	if len(tiers) == 0 {
		tiers = model.DefaultTiers()
	}
	engineCfg := match.DefaultConfig()
	if cfg.EngineConfig != nil {
		engineCfg = *cfg.EngineConfig
	}
	archiveCfg := archive.DefaultConfig()
	if cfg.ArchiveConfig != nil {
		archiveCfg = *cfg.ArchiveConfig
	}
	balanceCfg := cfg.BalanceConfig
	if balanceCfg.ReserveTimeout == 0 {
		balanceCfg = balance.DefaultConfig()
	}

	// Create services
	reg := registry.New(tiers, clk)
	gateway := balance.New(store, balanceCfg)
	drawer := draw.New(rnd)
	broker := realtime.NewBroker(cfg.BrokerConfig, clk, logger)
	archiver := archive.New(archiveStore, archiveCfg, logger)
	engine := match.New(reg, gateway, drawer, broker, archiver, clk, engineCfg, logger)
	lobbyController := lobby.NewController(reg, engine)
	authService := auth.New(store, clk, cfg.AuthConfig)

	broker.SetSnapshot(engine.Greet)

	return &App{
		Storage:         store,
		Archive:         archiveStore,
		Clock:           clk,
		Random:          rnd,
		Registry:        reg,
		Balance:         gateway,
		Drawer:          drawer,
		Broker:          broker,
		Archiver:        archiver,
		Engine:          engine,
		LobbyController: lobbyController,
		AuthService:     authService,
		logger:          logger,
	}
}

// Start launches the broker loop and the archiver, then opens a room per tier
func (a *App) Start() {
	a.started = true
	go a.Broker.Run()
	a.Archiver.Start()
	a.Engine.Start()
}

// Shutdown stops the engine first so no new events or records are
// produced, then drains the archiver, closes the broker and releases storage
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Engine.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	if err := a.Archiver.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("archiver: %w", err))
	}
	a.Broker.Close()
	if a.started {
		a.Broker.Wait()
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handler returns the HTTP API for the app
func (a *App) Handler() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:          a.logger,
		AuthService:     a.AuthService,
		LobbyController: a.LobbyController,
		Balance:         a.Balance,
		Archiver:        a.Archiver,
		Broker:          a.Broker,
	})
}
