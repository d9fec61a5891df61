package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet_tracker/internal/app/bootstrap"
	"wallet_tracker/internal/infrastructure/configloader"
	"wallet_tracker/internal/pkg/logger"
	"wallet_tracker/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := configloader.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: %v\n", err)
		os.Exit(1)
	}
	cfgPath := configloader.Path()
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	format := "json"
	if cfg.Logging.Development {
		format = "console"
	}
	zapLogger, err := logger.NewZap(cfg.Logging.Level, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	logger.InitSlog(zapLogger)

	logger.Info("Wallet tracker starting", "config", cfgPath, "level", cfg.Logging.Level)
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.MustRegisterMetrics()

	app, err := bootstrap.Build(ctx, cfg, zapLogger)
	if err != nil {
		logger.Fatal("Failed to wire application", "error", err)
	}
	defer app.Close()

	go func() {
		warmCtx, warmCancel := context.WithTimeout(ctx, 5*time.Minute)
		defer warmCancel()
		if err := app.WarmPrices(warmCtx); err != nil {
			zapLogger.Warn("Initial token price load failed", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	go func() {
		zapLogger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exiting")
}
