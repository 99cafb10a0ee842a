package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/mathmaster/mathmaster-go/internal/dependencies/clock"
	"github.com/mathmaster/mathmaster-go/internal/devgateway"
	memorygateway "github.com/mathmaster/mathmaster-go/internal/gateway/memory"
	redisgateway "github.com/mathmaster/mathmaster-go/internal/gateway/redis"
	"github.com/mathmaster/mathmaster-go/internal/seed"
)

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	clk := clock.New()

	// Pick the backend from the environment
	backendType := os.Getenv("GATEWAY_BACKEND")
	if backendType == "" {
		backendType = "memory"
	}

	seedData := os.Getenv("SKIP_SEED") == ""

	var backend devgateway.Backend
	switch backendType {
	case "memory":
		gw := memorygateway.New(clk, logger)
		if seedData {
			if err := gw.Seed(context.Background(), seed.Themes(), seed.Badges(), seed.Exercises()); err != nil {
				logger.Error("failed to seed reference data", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}
		backend = gw
	case "redis":
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			logger.Error("REDIS_URL required when GATEWAY_BACKEND=redis")
			os.Exit(1)
		}
		redisCfg := redisgateway.DefaultConfig()
		redisCfg.URL = redisURL
		gw, err := redisgateway.New(redisCfg, clk, logger)
		if err != nil {
			logger.Error("failed to connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() { _ = gw.Close() }()
		if seedData {
			if err := gw.Seed(context.Background(), seed.Themes(), seed.Badges(), seed.Exercises()); err != nil {
				logger.Error("failed to seed reference data", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}
		backend = gw
	default:
		logger.Error("unknown GATEWAY_BACKEND", slog.String("backend", backendType))
		os.Exit(1)
	}

	// Create router and server
	router := devgateway.NewRouter(backend, logger)

	serverConfig := devgateway.DefaultServerConfig()
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			logger.Error("invalid PORT", slog.String("port", port))
			os.Exit(1)
		}
		serverConfig.Port = p
	}
	server := devgateway.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("gateway started",
		slog.String("addr", server.Addr()),
		slog.String("backend", backendType))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("gateway stopped")
}
