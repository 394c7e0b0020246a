// Package pgsql implements the resource provider over a pgx connection pool.
package pgsql

import (
	"context"
	"errors"
	"fmt"

	"adaptivepool/pkg/config"
	"adaptivepool/pkg/provider"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Provider wraps a pgxpool.Pool.
type Provider struct {
	pool *pgxpool.Pool
}

var _ provider.Provider = (*Provider)(nil)

type conn struct {
	pgxConn *pgxpool.Conn
}

func (c *conn) Release() {
	c.pgxConn.Release()
}

// New builds a pgx-backed provider with the pool limits and timeouts taken
// from the pool configuration.
func New(ctx context.Context, dsn string, cfg config.PoolConfig) (*Provider, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxConnections)
	poolCfg.MinConns = int32(cfg.MinConnections)
	poolCfg.MaxConnIdleTime = cfg.IdleTimeout()
	poolCfg.MaxConnLifetime = cfg.MaxLifetime()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	return &Provider{pool: pool}, nil
}

// Acquire checks out a connection, mapping deadline expiry to the
// provider-level timeout error.
func (p *Provider) Acquire(ctx context.Context) (provider.Conn, error) {
	pgxConn, err := p.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, provider.ErrAcquireTimeout
		}
		return nil, err
	}
	return &conn{pgxConn: pgxConn}, nil
}

// Execute runs a query on an acquired connection.
func (p *Provider) Execute(ctx context.Context, c provider.Conn, query string) error {
	pc, ok := c.(*conn)
	if !ok {
		return fmt.Errorf("connection does not belong to this provider")
	}
	_, err := pc.pgxConn.Exec(ctx, query)
	return err
}

// PoolSize reports the total connection count held by pgx.
func (p *Provider) PoolSize() int {
	return int(p.pool.Stat().TotalConns())
}

// IdleCount reports the idle connection count.
func (p *Provider) IdleCount() int {
	return int(p.pool.Stat().IdleConns())
}

// Ping verifies database connectivity.
func (p *Provider) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts the underlying pool down.
func (p *Provider) Close() {
	p.pool.Close()
}
