// Package server assembles the exprbox service: configuration, logging,
// metrics, the sandbox pool, snapshot storage, and the API surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/exprbox/exprbox/internal/api/http"
	"github.com/exprbox/exprbox/internal/api/middleware"
	"github.com/exprbox/exprbox/internal/api/ws"
	"github.com/exprbox/exprbox/internal/engine"
	"github.com/exprbox/exprbox/internal/infrastructure/config"
	"github.com/exprbox/exprbox/internal/infrastructure/logging"
	"github.com/exprbox/exprbox/internal/infrastructure/monitoring"
	"github.com/exprbox/exprbox/internal/infrastructure/tracing"
	"github.com/exprbox/exprbox/internal/resolver"
	"github.com/exprbox/exprbox/internal/sandbox"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router  *gin.Engine
	http    *http.Server
	engine  *engine.Engine
	pool    *sandbox.Pool
	store   *resolver.Store
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer

	watchCancel context.CancelFunc
}

// New builds a fully wired server from config.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Log.Development {
		logger = logging.NewDevelopment()
	} else {
		lg, err := logging.New(logging.Config{Level: cfg.Log.Level})
		if err != nil {
			return nil, err
		}
		logger = lg
	}

	logger.Info("initializing exprbox",
		zap.String("addr", cfg.Server.Addr()),
		zap.Int("pool_size", cfg.Sandbox.PoolSize),
		zap.Duration("timeout", cfg.Sandbox.Timeout),
	)

	metrics := monitoring.New()
	tracer := tracing.New("exprbox", logger.Named("trace"))

	pool, err := sandbox.NewPool(sandbox.Config{
		Timeout:        cfg.Sandbox.Timeout,
		MaxCallStack:   cfg.Sandbox.MaxCallStack,
		EnableConsole:  cfg.Sandbox.EnableConsole,
		PoolSize:       cfg.Sandbox.PoolSize,
		AcquireTimeout: cfg.Sandbox.AcquireTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create sandbox pool: %w", err)
	}
	logger.Info("sandbox pool ready", zap.Int("size", cfg.Sandbox.PoolSize))

	store := resolver.NewStore(logger)
	var watchCancel context.CancelFunc
	if cfg.Resolver.SnapshotDir != "" {
		count, err := store.LoadDir(cfg.Resolver.SnapshotDir)
		if err != nil {
			logger.Warn("snapshot directory load incomplete",
				zap.String("dir", cfg.Resolver.SnapshotDir),
				zap.Error(err))
		}
		metrics.SnapshotsLoaded.Set(float64(store.Len()))
		logger.Info("snapshots loaded",
			zap.String("dir", cfg.Resolver.SnapshotDir),
			zap.Int("count", count))

		if cfg.Resolver.Watch {
			var watchCtx context.Context
			watchCtx, watchCancel = context.WithCancel(context.Background())
			go func() {
				if werr := store.Watch(watchCtx, cfg.Resolver.SnapshotDir); werr != nil && !errors.Is(werr, context.Canceled) {
					logger.Warn("snapshot watcher stopped", zap.Error(werr))
				}
			}()
		}
	}

	eng := engine.New(pool, logger, metrics)

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracer.Middleware())
	router.Use(metrics.Middleware())
	router.Use(middleware.CORS(cfg.Server.AllowOrigins))
	if cfg.RateLimit.Enabled {
		logger.Info("rate limiting enabled",
			zap.Float64("rps", cfg.RateLimit.RPS),
			zap.Int("burst", cfg.RateLimit.Burst))
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		router.Use(limiter.Middleware())
	}

	handlers := apihttp.NewHandlers(eng, store, logger, metrics, cfg.Resolver.EnvAllowlist)
	preview := ws.NewHandler(eng, pool, store, logger, metrics, cfg.Resolver.EnvAllowlist)

	router.GET("/health", handlers.Health)
	router.GET("/metrics", metrics.Handler())

	v1 := router.Group("/v1")
	v1.Use(middleware.BearerAuth(cfg.Auth.TokenHash))
	handlers.Register(v1)
	v1.GET("/preview", preview.Serve)

	logger.Info("server initialized")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		engine:      eng,
		pool:        pool,
		store:       store,
		logger:      logger,
		config:      cfg,
		metrics:     metrics,
		tracer:      tracer,
		watchCancel: watchCancel,
	}, nil
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	s.logger.Info("starting http server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener, the snapshot watcher, and the pool.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	if s.watchCancel != nil {
		s.watchCancel()
	}

	err := s.http.Shutdown(ctx)
	s.pool.Close()
	s.tracer.Close()
	s.logger.Sync()
	return err
}
