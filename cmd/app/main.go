package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nooveria/internal/cache"
	"nooveria/internal/config"
	"nooveria/internal/db"
	"nooveria/internal/event"
	"nooveria/internal/ledger"
	"nooveria/internal/logger"
	"nooveria/internal/quota"
	"nooveria/internal/server"
	"nooveria/internal/transaction"
	"nooveria/internal/usage"
	"nooveria/internal/user"
	"nooveria/internal/wallet"
)

// @title Nooveria Ledger API
// @version 1.0
// @description Token wallets, charging and usage accounting for chat sessions.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		logger.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()
	logger.WithFields(map[string]interface{}{
		"env":          cfg.Env,
		"quota_mode":   cfg.QuotaMode,
		"lock_timeout": cfg.LockTimeout.String(),
	}).Info("Starting Nooveria ledger")

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations", zap.String("path", cfg.MigrationsPath))
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Quota and cache fail open, so a missing Redis is not fatal.
	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, quota and cache will fail open", "addr", cfg.RedisAddr, "error", err)
	}
	pingCancel()

	users := user.NewRepository(database)
	svc := ledger.New(ledger.Deps{
		DB:           database,
		Wallets:      wallet.NewRepository(database),
		Transactions: transaction.NewRepository(database),
		Usage:        usage.NewRepository(database),
		Events:       event.NewRepository(database),
		Users:        users,
		Quota:        quota.NewCounter(rdb, cfg.QuotaWindow),
		Cache:        cache.New(rdb, cfg.CacheTTL),
		Roles:        cfg.Roles,
		QuotaMode:    cfg.QuotaMode,
		LockTimeout:  cfg.LockTimeout,
	})

	if _, err := svc.EnsureCommunal(ctx, cfg.CommunalInitialBalance); err != nil {
		logger.Fatalf("Failed to bootstrap communal wallet: %v", err)
	}

	srv := server.New(ctx, cfg, server.Deps{
		DB:     database,
		Redis:  rdb,
		Ledger: svc,
		Users:  users,
	})

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
