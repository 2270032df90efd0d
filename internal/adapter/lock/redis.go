package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultKey is the redis key guarding the single logical ledger.
	DefaultKey = "lock:ledger"

	defaultTTL    = 30 * time.Second
	retryInterval = 100 * time.Millisecond
)

// RedisLocker serializes writers across processes that share one redis.
type RedisLocker struct {
	client *redislock.Client
	key    string
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewRedisLocker creates a RedisLocker on top of an existing redis client.
// The lock is refreshed every third of ttl while held, so ttl only bounds how
// long a crashed holder keeps other writers out.
func NewRedisLocker(rdb redis.UniversalClient, key string, ttl time.Duration, logger logrus.FieldLogger) *RedisLocker {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		key:    key,
		ttl:    ttl,
		logger: logger.WithField("component", "redis_lock"),
	}
}

// Acquire retries until the lock is obtained or ctx is done. Without a
// deadline on ctx, waiting is bounded by the lock TTL.
func (l *RedisLocker) Acquire(ctx context.Context) (func(), error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.ttl)
		defer cancel()
	}

	lock, err := l.client.Obtain(ctx, l.key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(retryInterval),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.NewStorageError("acquire write lock held by another writer", err)
	}
	if err != nil {
		return nil, domain.NewStorageError("acquire write lock", err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(stop, l.ttl/3, func(ctx context.Context) error {
			return lock.Refresh(ctx, l.ttl, nil)
		}, l.logger.WithField("key", l.key))
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-done

			// the caller's ctx may already be cancelled; release must still reach redis
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.WithError(err).WithField("key", l.key).Warn("failed to release write lock")
			}
		})
	}
	return release, nil
}

// keepAlive calls refresh every interval until stop is closed or a refresh
// fails.
func keepAlive(stop <-chan struct{}, interval time.Duration, refresh func(ctx context.Context) error, logger logrus.FieldLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			err := refresh(ctx)
			cancel()
			if err != nil {
				logger.WithError(err).Warn("failed to refresh write lock, it expires at the end of its TTL")
				return
			}
		}
	}
}

// Connect creates a redis client and verifies it answers PING
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, domain.NewStorageError("connect to redis", err)
	}
	return rdb, nil
}
