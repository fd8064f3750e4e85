package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/agentpay/walletd/internal/config"
	"github.com/agentpay/walletd/internal/container"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := container.New(cfg)
	if err := c.Initialize(ctx); err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	go c.Sweeper().Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Server().Start()
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		c.Logger().Info("shutdown signal received")
		if err := c.Server().Shutdown(context.Background()); err != nil {
			c.Logger().Error("graceful shutdown failed", "error", err)
		}
		serveErr = <-errCh
	}

	c.Shutdown(context.Background())

	if serveErr != nil {
		c.Logger().Error("server failed", "error", serveErr)
		os.Exit(1)
	}
}
