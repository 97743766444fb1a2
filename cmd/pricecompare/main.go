package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pricecompare/internal/common/config"
	"pricecompare/internal/common/logging"
	"pricecompare/internal/common/types"
	"pricecompare/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup structured logging
	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	startupCtx := logging.WithCorrelationID(context.Background(), types.NewCorrelationID())

	logging.InfoContext(startupCtx, "Starting pricing ledger",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage", cfg.StorageDriver,
		"log_level", cfg.LogLevel,
	)

	storage, err := server.OpenStorage(startupCtx, cfg)
	if err != nil {
		logging.ErrorContext(startupCtx, "Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	service := server.NewLedgerService(storage)
	handler := server.NewHandler(service, server.Options{
		Environment:    cfg.Environment,
		RequestTimeout: cfg.RequestTimeout(),
		Ready:          storage,
	})

	logging.InfoContext(startupCtx, "Pricing context initialized")

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		logging.Error("HTTP server error", "error", err)
		storage.Close()
		os.Exit(1)
	}

	logging.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		return
	}

	logging.Info("Server stopped")
}
