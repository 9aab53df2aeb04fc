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

	"go.uber.org/zap"

	"tokobuku/backend/internal/cache"
	"tokobuku/backend/internal/config"
	"tokobuku/backend/internal/httpapi"
	"tokobuku/backend/internal/logger"
	"tokobuku/backend/internal/service"
	"tokobuku/backend/internal/store/sqlstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal("invalid security configuration", zap.Error(err))
	}
	dialect, err := sqlstore.ParseDialect(cfg.DB.Driver)
	if err != nil {
		log.Fatal("invalid database configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	st, err := sqlstore.Open(ctx, sqlstore.Options{
		Dialect:         dialect,
		DSN:             cfg.DB.DSN,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		SkipMigrations:  !cfg.DB.MigrateOnStart,
	}, log)
	if err != nil {
		log.Fatal("ledger store unavailable", zap.String("driver", cfg.DB.Driver), zap.Error(err))
	}
	closers = append(closers, st.Close)

	reportCache, closeCache := selectReportCache(ctx, cfg, log)
	if closeCache != nil {
		closers = append(closers, closeCache)
	}

	svc := service.New(st, service.Options{
		Cache:    reportCache,
		CacheTTL: cfg.Reports.CacheTTL,
		Logger:   log,
	})

	auth := httpapi.NewAuthManager(cfg.Auth.Secret, cfg.Auth.AccessTokenTTL, st, log)
	if _, err := auth.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Fatal("admin bootstrap failed", zap.Error(err))
	}

	api := httpapi.New(svc, auth, httpapi.Options{AllowedOrigin: cfg.HTTP.AllowedOrigin, Logger: log})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("ledger backend listening", zap.String("addr", cfg.Address()), zap.String("driver", string(dialect)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}

	stats := st.Stats()
	log.Info("database pool", zap.Int("open", stats.OpenConnections), zap.Int64("wait_count", stats.WaitCount))

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error("close error", zap.Error(err))
		}
	}

	log.Info("server stopped")
}

// selectReportCache prefers Redis when it is configured and reachable and
// falls back to an in-process cache otherwise.
func selectReportCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (cache.ReportCache, func() error) {
	if cfg.Redis.Addr == "" {
		log.Info("report cache: memory")
		return cache.NewMemoryReportCache(), nil
	}

	redisCache := cache.NewRedisReportCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn("redis unavailable, using memory report cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = redisCache.Close()
		return cache.NewMemoryReportCache(), nil
	}
	log.Info("report cache: redis", zap.String("addr", cfg.Redis.Addr))
	return redisCache, redisCache.Close
}

func validateSecurityConfig(cfg *config.Config) error {
	if len(cfg.Auth.Secret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if err := validateSecretStrength(cfg.Auth.Secret); err != nil {
		return fmt.Errorf("AUTH_SECRET is too weak: %w", err)
	}
	if cfg.Auth.AccessTokenTTL > 7*24*time.Hour {
		return fmt.Errorf("ACCESS_TOKEN_TTL must not exceed 168h")
	}
	if cfg.Auth.AdminPassword != "" && len(cfg.Auth.AdminPassword) < 8 {
		return fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD must be at least 8 characters")
	}
	return nil
}

// validateSecretStrength rejects secrets made of very few distinct characters
// and well-known placeholders.
func validateSecretStrength(secret string) error {
	lower := strings.ToLower(secret)
	for _, placeholder := range []string{"change-me", "changeme", "secret", "password"} {
		if strings.Contains(lower, placeholder) {
			return fmt.Errorf("placeholder value %q not allowed", placeholder)
		}
	}

	distinct := make(map[rune]struct{})
	for _, r := range secret {
		distinct[r] = struct{}{}
	}
	if len(distinct) < 8 {
		return fmt.Errorf("at least 8 distinct characters required")
	}
	return nil
}
