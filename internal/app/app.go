package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/you/trainerauth/internal/config"
	"github.com/you/trainerauth/internal/infrastructure/database"
)

const shutdownTimeout = 10 * time.Second

func openStores(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	gdb, err := database.Open(cfg.DSN, database.PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	rdb := database.NewRedis(database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := database.Ping(ctx, rdb); err != nil {
		_ = rdb.Close()
		if sqlDB, dbErr := gdb.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return gdb, rdb, nil
}

// Migrate creates or updates the relational schema and exits
func Migrate(cfg *config.Config, logger *zap.Logger) error {
	gdb, err := database.Open(cfg.DSN, database.PoolConfig{MaxOpenConns: 1})
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.AutoMigrate(gdb); err != nil {
		return err
	}
	logger.Info("schema migrated")
	return nil
}

// Run serves the auth API until ctx is cancelled or SIGINT/SIGTERM arrives
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Env,
		}); err != nil {
			logger.Error("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	gdb, rdb, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(gdb); err != nil {
		return err
	}

	container, err := NewContainer(cfg, gdb, rdb, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Warn("closing stores", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           container.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", httpServer.Addr))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
