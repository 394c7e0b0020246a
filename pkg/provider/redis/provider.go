// Package redis implements the resource provider over a go-redis client
// pool. Queries are interpreted as whitespace-separated redis commands.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"adaptivepool/pkg/config"
	"adaptivepool/pkg/provider"

	"github.com/go-redis/redis/v8"
)

// Provider wraps a redis.Client and its internal connection pool.
type Provider struct {
	client *redis.Client
}

var _ provider.Provider = (*Provider)(nil)

type conn struct {
	redisConn *redis.Conn
}

func (c *conn) Release() {
	_ = c.redisConn.Close()
}

// New builds a redis-backed provider with the pool limits and timeouts taken
// from the pool configuration.
func New(cfg config.RedisConfig, poolCfg config.PoolConfig) *Provider {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolCfg.MaxConnections,
		MinIdleConns: poolCfg.MinConnections,
		PoolTimeout:  poolCfg.AcquireTimeout(),
		IdleTimeout:  poolCfg.IdleTimeout(),
		MaxConnAge:   poolCfg.MaxLifetime(),
	})
	return &Provider{client: client}
}

// Acquire checks a dedicated connection out of the client pool. The checkout
// is forced with a PING so pool exhaustion surfaces here rather than on the
// first query.
func (p *Provider) Acquire(ctx context.Context) (provider.Conn, error) {
	redisConn := p.client.Conn(ctx)
	if err := redisConn.Ping(ctx).Err(); err != nil {
		_ = redisConn.Close()
		if isAcquireTimeout(err) {
			return nil, provider.ErrAcquireTimeout
		}
		return nil, err
	}
	return &conn{redisConn: redisConn}, nil
}

// Execute runs a redis command given as a query string, e.g. "SET k v".
func (p *Provider) Execute(ctx context.Context, c provider.Conn, query string) error {
	rc, ok := c.(*conn)
	if !ok {
		return fmt.Errorf("connection does not belong to this provider")
	}

	fields := strings.Fields(query)
	if len(fields) == 0 {
		return fmt.Errorf("empty query")
	}
	args := make([]interface{}, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	// redis.Conn has no Do in v8; this mirrors Client.Do's implementation.
	cmd := redis.NewCmd(ctx, args...)
	_ = rc.redisConn.Process(ctx, cmd)
	return cmd.Err()
}

// PoolSize reports the total connection count held by the client pool.
func (p *Provider) PoolSize() int {
	return int(p.client.PoolStats().TotalConns)
}

// IdleCount reports the idle connection count.
func (p *Provider) IdleCount() int {
	return int(p.client.PoolStats().IdleConns)
}

// Ping verifies the server is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close shuts the client down.
func (p *Provider) Close() {
	_ = p.client.Close()
}

func isAcquireTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// go-redis does not export its pool timeout error.
	return strings.Contains(err.Error(), "connection pool timeout")
}
