// Package app boots the routing engine: configuration, storage, caches,
// the rule and catalog snapshots, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/RoutingEngine/internal/audit"
	"github.com/router-for-me/RoutingEngine/internal/budget"
	"github.com/router-for-me/RoutingEngine/internal/cache"
	"github.com/router-for-me/RoutingEngine/internal/catalog"
	"github.com/router-for-me/RoutingEngine/internal/config"
	"github.com/router-for-me/RoutingEngine/internal/db"
	"github.com/router-for-me/RoutingEngine/internal/estimator"
	internalhttp "github.com/router-for-me/RoutingEngine/internal/http"
	"github.com/router-for-me/RoutingEngine/internal/logging"
	"github.com/router-for-me/RoutingEngine/internal/router"
	"github.com/router-for-me/RoutingEngine/internal/selector"
	"github.com/router-for-me/RoutingEngine/internal/steering"
	log "github.com/sirupsen/logrus"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the engine and serves until the context is cancelled.
func RunServer(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return errLoad
	}
	logging.Setup(cfg.Logging)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	shared := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	cacheStore := cache.NewStore(cache.Options{
		LocalMaxEntries:     cfg.Cache.LocalMaxEntries,
		DefaultTTL:          time.Duration(cfg.Cache.DefaultTTLSeconds) * time.Second,
		SimilarityThreshold: cfg.Cache.SimilarityThreshold,
		Shared:              shared,
	})

	catalogStore := catalog.NewStore()
	catalogLoader := catalog.NewLoader(conn, catalogStore)
	if errRefresh := catalogLoader.Refresh(ctx); errRefresh != nil {
		return fmt.Errorf("app: initial catalog load: %w", errRefresh)
	}
	catalogLoader.Start(ctx, time.Duration(cfg.Catalog.RefreshIntervalSeconds)*time.Second)

	steeringEngine := steering.NewEngine()
	reloader := steering.NewReloader(conn, steeringEngine)
	if errRefresh := reloader.Refresh(ctx); errRefresh != nil {
		return fmt.Errorf("app: initial rule load: %w", errRefresh)
	}
	reloader.Start(ctx, time.Duration(cfg.Steering.ReloadIntervalSeconds)*time.Second)

	tokenEstimator := estimator.New(cacheStore)
	budgetEvaluator := budget.NewEvaluator(conn)
	modelSelector := selector.New(catalogStore, tokenEstimator, budgetEvaluator)
	auditSink := audit.NewSink(conn)
	defer auditSink.Close()

	orchestrator := router.New(cacheStore, steeringEngine, modelSelector, auditSink, tokenEstimator, catalogStore)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	internalhttp.Register(engine, internalhttp.Deps{
		Config:       cfg,
		DB:           conn,
		Cache:        cacheStore,
		Catalog:      catalogStore,
		Estimator:    tokenEstimator,
		Selector:     modelSelector,
		Orchestrator: orchestrator,
		Reloader:     reloader,
	})

	server := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: engine,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("routing engine listening on %s", cfg.Server.Listen)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case errServe := <-serveErr:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", errServe)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("app: shutdown: %w", errShutdown)
	}
	log.Info("routing engine stopped")
	return nil
}
