package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/accounts/internal/cache"
	"github.com/jmerrifield20/accounts/internal/config"
	"github.com/jmerrifield20/accounts/internal/handler"
	"github.com/jmerrifield20/accounts/internal/health"
	"github.com/jmerrifield20/accounts/internal/password"
	"github.com/jmerrifield20/accounts/internal/users"
	"github.com/jmerrifield20/accounts/migrations"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("accountsd exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	cfg, err := config.Load(os.Getenv("ACCOUNTS_CONFIG"))
	if err != nil {
		return err
	}
	if cfg.App.Debug {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger = dev
			defer logger.Sync() //nolint:errcheck
		}
	}
	if cfg.File == "" {
		logger.Warn("no config file found, using defaults and env vars")
	} else {
		logger.Info("config loaded", zap.String("file", cfg.File))
	}

	// ── Database ─────────────────────────────────────────────────────────────
	db, err := pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("connected to postgres")

	if cfg.Database.AutoMigrate {
		res, err := migrations.Up(db)
		if err != nil {
			return err
		}
		if res.Dirty {
			return fmt.Errorf("schema version %d is dirty; fix it with cmd/migrate", res.Version)
		}
		logger.Info("schema ready",
			zap.Uint("version", res.Version),
			zap.Bool("changed", res.Changed),
		)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// ── Cache ────────────────────────────────────────────────────────────────
	var backend cache.Backend
	if cfg.Redis.URL != "" {
		rb, err := cache.NewRedisBackend(cfg.Redis.URL)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rb.Ping(pingCtx); err != nil {
			// The cache is best-effort; start anyway.
			logger.Warn("redis unreachable at startup", zap.Error(err))
		}
		cancel()
		backend = rb
		logger.Info("cache backend: redis")
	} else {
		mb := cache.NewMemoryBackend()
		mb.StartEviction(bgCtx, time.Minute)
		backend = mb
		logger.Info("cache backend: memory (set redis.url to enable Redis)")
	}
	defer backend.Close() //nolint:errcheck

	userCache := cache.NewNamespaced(backend, cfg.App.Name)

	// ── Wire up layers ────────────────────────────────────────────────────────
	repo := users.NewUserRepository(db)
	hasher := password.NewHasher(cfg.Security.BcryptCost, cfg.Security.HashConcurrency)

	registrar := users.NewRegistrar(repo, hasher, userCache, logger)
	registrar.SetCacheTTL(cfg.Cache.UserTTL)
	registrar.SetMetricsRecord(handler.RecordRegistration)

	checker := health.New(health.Config{}, logger)
	checker.Add("postgres", repo.Ping, true)
	checker.Add("cache", userCache.Ping, false)
	checker.SetMetricsRecord(handler.RecordHealthCheck)
	go checker.Start(bgCtx)

	userHandler := handler.NewUserHandler(registrar, logger)
	userHandler.SetAdminSecret(cfg.Admin.Secret)
	if cfg.Admin.Secret == "" {
		logger.Info("admin routes disabled (set admin.secret to enable DELETE /api/users/:id)")
	}

	info := handler.ServiceInfo{Name: cfg.App.Name, Version: cfg.App.Version}
	if cfg.App.Development() {
		info.Docs = "/docs"
	}
	systemHandler := handler.NewSystemHandler(info, checker)

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS
	corsOrigins := cfg.HTTP.CORSOrigins
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Admin-Secret"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}
	if containsWildcard(corsOrigins) {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = corsOrigins
	}
	router.Use(cors.New(corsConfig))

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit
	bodyLimit := cfg.HTTP.BodyLimitBytes
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bodyLimit)
		c.Next()
	})

	// Per-IP rate limiting
	if rps := cfg.HTTP.RateLimitRPS; rps > 0 {
		router.Use(handler.RateLimiter(bgCtx, rps, rps*2))
	}

	router.Use(requestLogger(logger))
	router.Use(handler.PrometheusMiddleware())

	router.GET("/metrics", handler.MetricsHandler())
	systemHandler.Register(router)

	api := router.Group("/api")
	userHandler.Register(api)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("accountsd HTTP listening",
			zap.Int("port", cfg.HTTP.Port),
			zap.String("env", cfg.App.Env),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	<-quit
	logger.Info("shutting down accountsd...")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("accountsd stopped")
	return nil
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
