package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdugdh24/geopresence/internal/config"
	"github.com/gdugdh24/geopresence/internal/infrastructure/container"
	"github.com/gdugdh24/geopresence/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))

	// Initialize dependency injection container
	app, err := container.NewContainer(cfg)
	if err != nil {
		logger.Error("Failed to initialize application: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Error closing application: %v", err)
		}
	}()

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		if err := app.Server.Start(); err != nil {
			logger.Error("Server error: %v", err)
			quit <- syscall.SIGTERM
		}
	}()

	logger.Info("Server started on %s (env=%s)", cfg.Server.Addr(), cfg.Server.Env)

	// Wait for interrupt signal
	<-quit

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error: %v", err)
	}

	logger.Info("Server exited properly")
}
