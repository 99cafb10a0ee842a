// Package factory wires the application components together.
package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mathmaster/mathmaster-go/internal/dependencies/clock"
	"github.com/mathmaster/mathmaster-go/internal/dependencies/random"
	"github.com/mathmaster/mathmaster-go/internal/gateway"
	memorygateway "github.com/mathmaster/mathmaster-go/internal/gateway/memory"
	redisgateway "github.com/mathmaster/mathmaster-go/internal/gateway/redis"
	restgateway "github.com/mathmaster/mathmaster-go/internal/gateway/rest"
	"github.com/mathmaster/mathmaster-go/internal/seed"
	"github.com/mathmaster/mathmaster-go/internal/services/session"
	syncsvc "github.com/mathmaster/mathmaster-go/internal/services/sync"
	"github.com/mathmaster/mathmaster-go/internal/state"
)

// Gateway type constants
const (
	GatewayTypeMemory = "memory"
	GatewayTypeRedis  = "redis"
	GatewayTypeREST   = "rest"
)

// App contains all wired application components
type App struct {
	// Gateway to the backend service
	Gateway gateway.Gateway

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Sync       *syncsvc.Client
	Store      *state.Store
	Controller *session.Controller
}

// Config holds configuration for the application factory
type Config struct {
	// GatewayType selects the backend ("memory", "redis" or "rest")
	// If empty, defaults to "memory"
	GatewayType string
	// RedisConfig holds Redis connection settings (required if GatewayType is "redis")
	RedisConfig *redisgateway.Config
	// RESTConfig holds dev gateway connection settings (required if GatewayType is "rest")
	RESTConfig *restgateway.Config
	// SeedData loads the curriculum reference data into the gateway.
	// Only meaningful for the memory and redis gateways; a rest gateway's
	// server owns its own data.
	SeedData bool
	// UI receives sign-in view toggles (optional)
	// If nil, a no-op UI is used
	UI session.UI
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()
	rnd := random.New()

	gatewayType := cfg.GatewayType
	if gatewayType == "" {
		gatewayType = GatewayTypeMemory
	}

	var gw gateway.Gateway
	switch gatewayType {
	case GatewayTypeMemory:
		mem := memorygateway.New(clk, logger)
		if cfg.SeedData {
			if err := mem.Seed(context.Background(), seed.Themes(), seed.Badges(), seed.Exercises()); err != nil {
				return nil, err
			}
		}
		gw = mem
	case GatewayTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when GatewayType is redis")
		}
		redisGw, err := redisgateway.New(*cfg.RedisConfig, clk, logger)
		if err != nil {
			return nil, err
		}
		if cfg.SeedData {
			if err := redisGw.Seed(context.Background(), seed.Themes(), seed.Badges(), seed.Exercises()); err != nil {
				return nil, err
			}
		}
		gw = redisGw
	case GatewayTypeREST:
		if cfg.RESTConfig == nil {
			return nil, errors.New("RESTConfig required when GatewayType is rest")
		}
		gw = restgateway.New(*cfg.RESTConfig, logger)
	default:
		return nil, errors.New("invalid GatewayType: must be 'memory', 'redis' or 'rest'")
	}

	ui := cfg.UI
	if ui == nil {
		ui = session.NopUI{}
	}

	return newWithDependencies(gw, clk, rnd, ui, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(gw gateway.Gateway, clk clock.Clock, rnd random.Random, ui session.UI, logger *slog.Logger) *App {
	syncClient := syncsvc.New(gw, logger)
	store := state.New(logger)
	controller := session.NewController(syncClient, store, ui, logger)

	return &App{
		Gateway:    gw,
		Clock:      clk,
		Random:     rnd,
		Sync:       syncClient,
		Store:      store,
		Controller: controller,
	}
}
