// Package bootstrap assembles the runtime shared by the server and the CLI:
// logger, store backend, optional cache, optional interpreter and the archive.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/archivo-trayectoria/trayectoria/config"
	"github.com/archivo-trayectoria/trayectoria/internal/application/archive"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/external/gemini"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/persistence/memory"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/persistence/postgres"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/persistence/redis"
	"github.com/archivo-trayectoria/trayectoria/internal/interface/http/handlers"
	"github.com/archivo-trayectoria/trayectoria/pkg/logger"
	"github.com/archivo-trayectoria/trayectoria/pkg/retry"
)

// Runtime holds everything opened from a Config. Close releases it.
type Runtime struct {
	Config  *config.Config
	Logger  *slog.Logger
	Schema  *trajectory.Schema
	Store   trajectory.Store
	Archive *archive.Archive

	// Interpreter is nil when the interpreter feature is off.
	Interpreter *gemini.Client

	db    *postgres.Connection
	cache *redis.Cache
}

// NewLogger builds the slog logger used by the application layer.
func NewLogger(cfg config.ObservabilityConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: slogLevel(cfg.LogLevel)}

	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// NewHTTPLogger builds the request logger of the HTTP layer.
func NewHTTPLogger(cfg config.ObservabilityConfig, w io.Writer) *logger.Logger {
	return logger.New(logger.Options{
		Output: w,
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})
}

func slogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Open connects the configured backend and loads the archive.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Runtime, error) {
	rt := &Runtime{
		Config: cfg,
		Logger: log,
		Schema: trajectory.DefaultSchema(),
	}

	store, err := rt.openStore(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Store = store

	if cfg.Features.IsEnabled(config.FeatureInterpreter) {
		rt.Interpreter = NewInterpreter(cfg.Interpreter, log)
		log.Info("interpreter enabled", "model", cfg.Interpreter.Model)
	}

	rt.Archive = archive.Open(ctx, store, rt.Schema, archive.Config{
		Seed:   cfg.Features.IsEnabled(config.FeatureSeedStudent),
		Logger: log,
	})
	return rt, nil
}

// NewInterpreter builds the Gemini client from configuration.
func NewInterpreter(cfg config.InterpreterConfig, log *slog.Logger) *gemini.Client {
	gc := gemini.DefaultClientConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		gc.BaseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		gc.Model = cfg.Model
	}
	if cfg.RequestTimeout > 0 {
		gc.Timeout = cfg.RequestTimeout
	}
	gc.MaxAttempts = cfg.MaxRetries
	gc.BreakerThreshold = cfg.CircuitBreakerThreshold
	gc.BreakerTimeout = cfg.CircuitBreakerTimeout
	gc.Logger = log
	return gemini.NewClient(gc)
}

func (rt *Runtime) openStore(ctx context.Context) (trajectory.Store, error) {
	cfg := rt.Config
	ns := cfg.Store.Namespace

	switch cfg.Store.Backend {
	case config.StoreMemory:
		rt.Logger.Warn("using in-memory store, changes are lost on exit")
		return memory.NewStore(), nil

	case config.StoreRedis:
		cache, err := rt.openCache()
		if err != nil {
			return nil, err
		}
		rt.Logger.Info("using redis store", "addr", cfg.Redis.Host, "namespace", ns)
		return redis.NewCollectionStore(cache, ns), nil

	case config.StorePostgres:
		if err := rt.openDatabase(ctx); err != nil {
			return nil, err
		}
		var store trajectory.Store = postgres.NewCollectionStore(rt.db, ns)
		rt.Logger.Info("using postgres store", "namespace", ns)

		if cfg.Store.CacheTTL > 0 && cfg.Redis.Host != "" {
			cache, err := rt.openCache()
			if err != nil {
				// the database alone is enough to serve
				rt.Logger.Warn("redis unavailable, caching disabled", "error", err)
				return store, nil
			}
			store = redis.NewCachedStore(store, cache, ns, cfg.Store.CacheTTL, rt.Logger)
			rt.Logger.Info("collection cache enabled", "ttl", cfg.Store.CacheTTL)
		}
		return store, nil
	}

	return nil, fmt.Errorf("bootstrap: unknown store backend %q", cfg.Store.Backend)
}

func (rt *Runtime) openDatabase(ctx context.Context) error {
	dbc := rt.Config.Database
	pc := postgres.PoolConfig{
		MaxConns:        int32(dbc.MaxConns),
		MinConns:        int32(dbc.MinConns),
		MaxConnLifetime: dbc.ConnMaxLifetime,
		MaxConnIdleTime: dbc.ConnMaxIdleTime,
	}
	conn, err := retry.DoWithData(ctx, func(ctx context.Context) (*postgres.Connection, error) {
		return postgres.NewConnectionFromURL(ctx, dbc.URL, pc)
	}, retry.StartupPolicy(func(attempt int, err error, delay time.Duration) {
		rt.Logger.Warn("database not reachable, retrying", "attempt", attempt, "delay", delay, "error", err)
	})...)
	if err != nil {
		return fmt.Errorf("bootstrap: failed to connect to database: %w", err)
	}
	rt.db = conn
	rt.Logger.Info("database connection established")

	if rt.Config.Store.AutoMigrate {
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			return fmt.Errorf("bootstrap: failed to run migrations: %w", err)
		}
	}
	return nil
}

func (rt *Runtime) openCache() (*redis.Cache, error) {
	if rt.cache != nil {
		return rt.cache, nil
	}

	rc := rt.Config.Redis
	cache, err := redis.NewCache(redis.Config{
		Host:         rc.Host,
		Port:         rc.Port,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		MaxRetries:   rc.MaxRetries,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: failed to connect to redis: %w", err)
	}
	rt.cache = cache
	return cache, nil
}

// Database returns the postgres connection, or nil for other backends.
func (rt *Runtime) Database() *postgres.Connection {
	return rt.db
}

// HealthChecker registers one check per opened dependency. The store is
// critical; the cache and the interpreter only degrade the service.
func (rt *Runtime) HealthChecker() *handlers.CompositeHealthChecker {
	checker := handlers.NewCompositeHealthChecker(rt.Config.App.Version)

	switch {
	case rt.db != nil:
		checker.AddCheck("database", handlers.NewPingCheck(rt.db))
		if rt.cache != nil {
			checker.AddOptionalCheck("cache", handlers.NewPingCheck(rt.cache))
		}
	case rt.cache != nil:
		checker.AddCheck("redis", handlers.NewPingCheck(rt.cache))
	}

	if rt.Interpreter != nil {
		checker.AddOptionalCheck("interpreter", handlers.NewBreakerCheck(rt.Interpreter))
	}
	return checker
}

// Close releases connections in reverse order of opening.
func (rt *Runtime) Close() {
	if rt.cache != nil {
		if err := rt.cache.Close(); err != nil {
			rt.Logger.Warn("failed to close redis", "error", err)
		}
		rt.cache = nil
	}
	if rt.db != nil {
		rt.db.Close()
		rt.db = nil
	}
}
