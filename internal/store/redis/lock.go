package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lease never removes a lock another instance acquired since.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type lockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

var _ lockClient = (*redis.Client)(nil)

// Locker hands out expiring leases on named keys. It lets several service
// instances share the guarantee of one in-flight run per network.
type Locker struct {
	client lockClient
	prefix string
	ttl    time.Duration
}

func NewLocker(client lockClient, prefix string, ttl time.Duration) *Locker {
	return &Locker{client: client, prefix: prefix, ttl: ttl}
}

// Lease is a held lock.
type Lease struct {
	locker *Locker
	key    string
	token  string
}

// TryAcquire takes the named lock. It returns nil without error when another
// holder has it.
func (l *Locker) TryAcquire(ctx context.Context, name string) (*Lease, error) {
	key := l.prefix + name
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lease{locker: l, key: key, token: token}, nil
}

// Release drops the lease if it is still ours.
func (le *Lease) Release(ctx context.Context) error {
	if err := le.locker.client.Eval(ctx, releaseScript, []string{le.key}, le.token).Err(); err != nil {
		return fmt.Errorf("release %s: %w", le.key, err)
	}
	return nil
}
