package pool

import (
	"context"
	"sync"

	"adaptivepool/pkg/provider"
)

// fakeProvider is a hand-rolled provider for pool tests. Size and idle
// counts are set directly by tests; acquire and execute outcomes are
// scripted through the error fields.
type fakeProvider struct {
	mu sync.Mutex

	size int
	idle int

	pingErr error

	// failNextAcquires makes the next N acquire calls fail.
	failNextAcquires int
	acquireErr       error

	// execErrFor fails executes of matching queries; execErr fails all.
	execErr    error
	execErrFor map[string]error

	acquireCalls int
	executed     []string
	lastConn     *fakeConn
	closed       bool
}

type fakeConn struct {
	mu       sync.Mutex
	released bool
}

func (c *fakeConn) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
}

func (c *fakeConn) isReleased() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{size: 10, idle: 10, execErrFor: make(map[string]error)}
}

func (f *fakeProvider) Acquire(ctx context.Context) (provider.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, provider.ErrAcquireTimeout
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquireCalls++
	if f.failNextAcquires > 0 {
		f.failNextAcquires--
		if f.acquireErr != nil {
			return nil, f.acquireErr
		}
		return nil, provider.ErrAcquireTimeout
	}
	conn := &fakeConn{}
	f.lastConn = conn
	return conn, nil
}

func (f *fakeProvider) Execute(ctx context.Context, conn provider.Conn, query string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, query)
	if err, ok := f.execErrFor[query]; ok {
		return err
	}
	return f.execErr
}

func (f *fakeProvider) PoolSize() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

func (f *fakeProvider) IdleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idle
}

func (f *fakeProvider) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f *fakeProvider) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeProvider) setLoad(size, idle int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.size = size
	f.idle = idle
}

func (f *fakeProvider) acquireCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquireCalls
}

func (f *fakeProvider) executedQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.executed...)
}
