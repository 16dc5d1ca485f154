package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/duynhne/rango/internal/core/domain"
	"github.com/duynhne/rango/internal/core/media"
	"github.com/duynhne/rango/internal/core/repository"
	logicv1 "github.com/duynhne/rango/internal/logic/v1"
	v1 "github.com/duynhne/rango/internal/web/v1"
	"github.com/duynhne/rango/middleware"
)

func runServe(ctx context.Context) error {
	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Str("port", cfg.Service.Port).
		Msg("Service starting")

	// Initialize OpenTelemetry tracing
	var tp interface{ Shutdown(context.Context) error }
	if cfg.Tracing.Enabled {
		provider, err := middleware.InitTracing(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing")
		} else {
			tp = provider
			log.Info().
				Str("endpoint", cfg.Tracing.Endpoint).
				Float64("sample_rate", cfg.Tracing.SampleRate).
				Msg("Tracing initialized")
		}
	} else {
		log.Info().Msg("Tracing disabled (TRACING_ENABLED=false)")
	}

	// Initialize Pyroscope profiling
	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize profiling")
		} else {
			log.Info().
				Str("endpoint", cfg.Profiling.Endpoint).
				Msg("Profiling initialized")
			defer middleware.StopProfiling()
		}
	} else {
		log.Info().Msg("Profiling disabled (PROFILING_ENABLED=false)")
	}

	// Initialize database connection pool (pgx)
	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info().Msg("Database connection pool established")

	stop := make(chan struct{})
	defer close(stop)

	sessions, closeSessions, err := newSessionStore(pool, stop)
	if err != nil {
		return err
	}
	defer closeSessions()

	store, err := newMediaStore(ctx)
	if err != nil {
		return err
	}

	// Wire layers
	users := repository.NewUserRepository(pool)
	profiles := logicv1.NewProfileService(users, repository.NewProfileRepository(pool), store, cfg.Media.MaxBytes)
	auth := logicv1.NewAuthService(users, profiles)
	catalog := logicv1.NewCatalogService(repository.NewCategoryRepository(pool), repository.NewPageRepository(pool))

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst)
	go limiter.RunSweeper(time.Minute, stop)

	handler := v1.NewHandler(catalog, auth, profiles, logicv1.NewVisitTracker(cfg.Visits.Window), limiter)

	r := gin.New()
	if err := v1.Setup(r); err != nil {
		return err
	}

	var isShuttingDown atomic.Bool

	r.Use(gin.Recovery())

	// Tracing middleware
	r.Use(middleware.TracingMiddleware(cfg.Service.Name))

	// Logging middleware
	r.Use(middleware.LoggingMiddleware())

	// Prometheus middleware
	r.Use(middleware.PrometheusMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness check
	// Returns 503 once shutdown has started, to drain traffic before HTTP shutdown.
	r.GET("/ready", func(c *gin.Context) {
		if isShuttingDown.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if local, ok := store.(*media.LocalStore); ok {
		r.Static(strings.TrimSuffix(cfg.Media.URLPrefix, "/"), local.Root())
	}

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, v1.LandingPath)
	})

	site := r.Group("/rango",
		middleware.Sessions(sessions, middleware.SessionOptions{
			CookieName: cfg.Session.CookieName,
			MaxAge:     cfg.Session.MaxAge,
			Secure:     cfg.Session.Secure,
		}),
		middleware.Authentication(auth),
	)
	handler.RegisterRoutes(site)

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Service.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Service.Port).Msg("Starting rango")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	sigCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stopSignals()

	// Wait for shutdown signal
	select {
	case <-sigCtx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serveErr:
		return fmt.Errorf("start server: %w", err)
	}

	// Fail readiness first and wait for propagation.
	isShuttingDown.Store(true)
	drainDelay := cfg.GetReadinessDrainDelayDuration()
	if drainDelay > 0 {
		log.Info().Dur("delay", drainDelay).Msg("Readiness drain delay started")
		time.Sleep(drainDelay)
		log.Info().Dur("delay", drainDelay).Msg("Readiness drain delay completed")
	}

	// Shutdown context with configurable timeout
	shutdownTimeout := cfg.GetShutdownTimeoutDuration()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info().Dur("timeout", shutdownTimeout).Msg("Shutting down server...")

	// 1. Shutdown HTTP server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		log.Info().Msg("HTTP server shutdown complete")
	}

	// 2. Close database connections
	pool.Close()
	log.Info().Msg("Database pool closed")

	// 3. Shutdown tracer
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Tracer shutdown error")
		} else {
			log.Info().Msg("Tracer shutdown complete")
		}
	}

	log.Info().Msg("Graceful shutdown complete")
	return nil
}

// newSessionStore builds the configured session backend. The returned
// func releases its resources.
func newSessionStore(pool *pgxpool.Pool, stop <-chan struct{}) (domain.SessionRepository, func(), error) {
	switch cfg.Session.Backend {
	case "postgres":
		repo := repository.NewSessionRepository(pool)
		go sweepSessions(repo, stop)
		return repo, func() {}, nil
	case "redis":
		client := repository.NewRedisClient(cfg.Session.RedisAddr, cfg.Session.RedisPass, cfg.Session.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis %s: %w", cfg.Session.RedisAddr, err)
		}
		log.Info().Str("addr", cfg.Session.RedisAddr).Msg("Redis session store connected")
		return repository.NewRedisSessionRepository(client), func() { _ = client.Close() }, nil
	case "memory":
		log.Warn().Msg("Using in-process session store; sessions are lost on restart")
		return repository.NewMemorySessionRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// sweepSessions deletes expired database sessions every hour until stop is closed.
func sweepSessions(repo *repository.PgxSessionRepository, stop <-chan struct{}) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			n, err := repo.DeleteExpired(ctx)
			cancel()
			if err != nil {
				log.Warn().Err(err).Msg("Expired session sweep failed")
				continue
			}
			log.Debug().Int64("deleted", n).Msg("Expired sessions swept")
		case <-stop:
			return
		}
	}
}

func newMediaStore(ctx context.Context) (domain.MediaStore, error) {
	switch cfg.Media.Backend {
	case "local":
		return media.NewLocalStore(cfg.Media.Root, cfg.Media.URLPrefix)
	case "s3":
		return media.NewS3Store(ctx, media.S3Config{
			Bucket:   cfg.Media.S3Bucket,
			Region:   cfg.Media.S3Region,
			Endpoint: cfg.Media.S3Endpoint,
			Prefix:   cfg.Media.S3Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Media.Backend)
	}
}
