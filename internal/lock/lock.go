package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "ak:lock:"
	pollBackoff = 25 * time.Millisecond
)

// releaseScript deletes the lock key only if the caller still owns it, so a
// lock that expired and was re-acquired elsewhere is never released by the
// old holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Keyed hands out mutual-exclusion locks per key.
type Keyed struct {
	redis redis.UniversalClient
	ttl   time.Duration

	mu    sync.Mutex
	local map[string]*localLock
}

type localLock struct {
	refs int
	sem  chan struct{}
}

// New returns a Keyed lock. The TTL caps how long a crashed holder can keep
// a Redis lock alive; it does not apply to local locks.
func New(client redis.UniversalClient, ttl time.Duration) *Keyed {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Keyed{
		redis: client,
		ttl:   ttl,
		local: make(map[string]*localLock),
	}
}

// Acquire blocks until the lock for key is held or ctx is done. The returned
// function releases the lock and must be called exactly once.
func (k *Keyed) Acquire(ctx context.Context, key string) (func(), error) {
	if k.redis != nil {
		return k.acquireRedis(ctx, key)
	}
	return k.acquireLocal(ctx, key)
}

func (k *Keyed) acquireRedis(ctx context.Context, key string) (func(), error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	full := keyPrefix + key

	for {
		ok, err := k.redis.SetNX(ctx, full, token, k.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-time.After(pollBackoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return func() {
		_, _ = releaseScript.Run(context.Background(), k.redis, []string{full}, token).Result()
	}, nil
}

func (k *Keyed) acquireLocal(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l := k.local[key]
	if l == nil {
		l = &localLock{sem: make(chan struct{}, 1)}
		k.local[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		k.unref(key, l)
		return nil, ctx.Err()
	}

	return func() {
		<-l.sem
		k.unref(key, l)
	}, nil
}

func (k *Keyed) unref(key string, l *localLock) {
	k.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(k.local, key)
	}
	k.mu.Unlock()
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
