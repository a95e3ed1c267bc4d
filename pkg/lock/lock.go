package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// HostLocker serializes booking commits per host. Acquire blocks until the
// host's lock is held, the wait window runs out, or ctx is done. The
// returned release function is safe to call exactly once.
type HostLocker interface {
	Acquire(ctx context.Context, hostID string) (release func(), err error)
}

// ErrNotAcquired is returned when the lock could not be taken in time.
var ErrNotAcquired = errors.New("host lock not acquired")

// RedisLocker implements HostLocker with SET NX PX, giving mutual
// exclusion across processes. The TTL bounds how long a crashed holder
// can wedge a host.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker builds a Redis-backed host locker.
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, wait: wait}
}

// unlockScript releases the lock only if we still own it.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// Acquire polls SET NX until the lock is taken or the wait window expires.
func (l *RedisLocker) Acquire(ctx context.Context, hostID string) (func(), error) {
	key := "booking:commit:" + hostID
	token := uuid.NewString()

	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = unlockScript.Run(relCtx, l.client, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// LocalLocker implements HostLocker with in-process mutexes keyed by host
// id. It is the fallback when Redis is not configured and is sufficient
// for a single-instance deployment.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalLocker builds an in-process host locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the host's mutex, creating it on first use.
func (l *LocalLocker) Acquire(_ context.Context, hostID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[hostID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[hostID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
