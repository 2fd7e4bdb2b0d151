package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-roadmap/internal/curriculum"
	"github.com/p-n-ai/pai-roadmap/internal/httpapi"
	"github.com/p-n-ai/pai-roadmap/internal/planner"
	"github.com/p-n-ai/pai-roadmap/internal/platform/cache"
	"github.com/p-n-ai/pai-roadmap/internal/platform/config"
	"github.com/p-n-ai/pai-roadmap/internal/platform/database"
	"github.com/p-n-ai/pai-roadmap/internal/platform/logging"
)

func main() {
	slog.SetDefault(logging.New(os.Stdout, "info", "json"))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	handler, cleanup, err := newHandler(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Driver, "cache", cfg.Cache.Enabled)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newHandler wires the store, cache, curriculum and planner service behind
// the HTTP router. cleanup releases every opened connection.
func newHandler(ctx context.Context, cfg *config.Config) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (http.Handler, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	ready := map[string]httpapi.HealthChecker{}
	svcCfg := planner.ServiceConfig{}

	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return fail(fmt.Errorf("connect database: %w", err))
		}
		closers = append(closers, db.Close)
		store, err := planner.NewPostgresStore(ctx, db)
		if err != nil {
			return fail(err)
		}
		svcCfg.Store = store
		svcCfg.Events = planner.NewPostgresEventLogger(db.Pool)
		ready["database"] = db
	case config.StoreSQLite:
		store, err := planner.NewSQLiteStore(cfg.SQLite.Path)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { store.Close() })
		svcCfg.Store = store
	default:
		svcCfg.Store = planner.NewMemoryStore()
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache.URL, "roadmap:")
		if err != nil {
			return fail(fmt.Errorf("connect cache: %w", err))
		}
		closers = append(closers, func() { c.Close() })
		svcCfg.Cache = planner.NewRedisCache(c, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
		ready["cache"] = c
	}

	if cfg.CurriculumPath != "" {
		loader, err := curriculum.NewLoader(cfg.CurriculumPath)
		if err != nil {
			return fail(err)
		}
		svcCfg.Curriculum = loader
	}

	overrides, err := planner.LoadOverrides(cfg.Engine.OverridesPath)
	if err != nil {
		return fail(err)
	}
	svcCfg.Overrides = overrides

	svc, err := planner.NewService(svcCfg)
	if err != nil {
		return fail(err)
	}
	if _, _, err := svc.EffectiveDefaults(); err != nil {
		return fail(fmt.Errorf("engine overrides: %w", err))
	}

	return httpapi.NewRouter(httpapi.Deps{
		Service:     svc,
		Ready:       ready,
		CORSOrigins: cfg.CORS.Origins,
	}), cleanup, nil
}
