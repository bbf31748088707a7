package pipeline

import (
	"context"
	"sync"

	redisstore "github.com/emperorhan/custody-settlement/internal/store/redis"
)

// RunLock guarantees at most one in-flight run per network. TryAcquire
// returns ok=false when another holder has the lock.
type RunLock interface {
	TryAcquire(ctx context.Context, network string) (release func(context.Context) error, ok bool, err error)
}

// RedisRunLock shares the lock across processes.
type RedisRunLock struct {
	locker *redisstore.Locker
}

func NewRedisRunLock(locker *redisstore.Locker) *RedisRunLock {
	return &RedisRunLock{locker: locker}
}

func (l *RedisRunLock) TryAcquire(ctx context.Context, network string) (func(context.Context) error, bool, error) {
	lease, err := l.locker.TryAcquire(ctx, network)
	if err != nil {
		return nil, false, err
	}
	if lease == nil {
		return nil, false, nil
	}
	return lease.Release, true, nil
}

// LocalRunLock is the single-process fallback used when Redis is not
// configured.
type LocalRunLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalRunLock() *LocalRunLock {
	return &LocalRunLock{held: make(map[string]bool)}
}

func (l *LocalRunLock) TryAcquire(_ context.Context, network string) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[network] {
		return nil, false, nil
	}
	l.held[network] = true
	return func(context.Context) error {
		l.mu.Lock()
		delete(l.held, network)
		l.mu.Unlock()
		return nil
	}, true, nil
}
