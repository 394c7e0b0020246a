package main

import (
	"context"
	"fmt"

	"adaptivepool/internal/pool"
	"adaptivepool/pkg/config"
	"adaptivepool/pkg/logger"
	"adaptivepool/pkg/provider"
	"adaptivepool/pkg/provider/pgsql"
	redisprovider "adaptivepool/pkg/provider/redis"

	"go.uber.org/zap"
)

// Application manages the lifecycle of the pool subsystem.
type Application struct {
	config   *config.Config
	provider provider.Provider
	pool     *pool.Pool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	ctx, cancel := context.WithCancel(context.Background())
	return &Application{ctx: ctx, cancel: cancel}
}

// Initialize loads configuration, builds the configured provider and
// constructs the pool. A provider that fails to initialize is fatal.
func (a *Application) Initialize() error {
	if err := config.Init(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.config = config.GlobalConfig

	if err := logger.Init(a.config.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	prov, err := buildProvider(a.ctx, a.config)
	if err != nil {
		return err
	}
	a.provider = prov

	p, err := pool.New(a.ctx, a.config.Pool, prov)
	if err != nil {
		prov.Close()
		return err
	}
	a.pool = p

	report := a.pool.WarmUp(a.ctx)
	logger.Info("pool warm-up report",
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	return nil
}

// Start launches background monitoring.
func (a *Application) Start() {
	a.pool.StartMonitoring(a.ctx)
}

// Shutdown stops monitoring and releases the provider.
func (a *Application) Shutdown() {
	a.cancel()
	if a.pool != nil {
		a.pool.Close()
	}
}

func buildProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider.Kind {
	case "postgres":
		return pgsql.New(ctx, cfg.Provider.Postgres.DSN, cfg.Pool)
	case "redis":
		return redisprovider.New(cfg.Provider.Redis, cfg.Pool), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}
}
