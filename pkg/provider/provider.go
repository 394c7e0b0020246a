// Package provider defines the resource provider capability the adaptive
// pool wraps. A provider owns the underlying connections; the pool only
// acquires, executes and observes through this interface.
package provider

import (
	"context"
	"errors"
)

// ErrAcquireTimeout is returned when a connection could not be checked out
// within the caller's timeout. Callers may retry.
var ErrAcquireTimeout = errors.New("connection acquire timed out")

// Conn is a checked-out connection handle. Release returns it to the
// provider; handles are not safe for use after Release.
type Conn interface {
	Release()
}

// Provider is the opaque connection source wrapped by the pool.
type Provider interface {
	// Acquire checks out a connection, waiting at most until ctx expires.
	// Returns ErrAcquireTimeout when the wait deadline is exceeded.
	Acquire(ctx context.Context) (Conn, error)

	// Execute runs a query on a previously acquired connection.
	Execute(ctx context.Context, conn Conn, query string) error

	// PoolSize reports the current number of connections held by the provider.
	PoolSize() int

	// IdleCount reports how many of those connections are idle.
	IdleCount() int

	// Ping verifies the provider is reachable.
	Ping(ctx context.Context) error

	// Close releases all provider resources.
	Close()
}
