package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"ms-seating/internal/logger"
)

const (
	DefaultLockKey       = "venue:hold_lock"
	defaultLockTTL       = 10 * time.Second
	defaultRetryInterval = 20 * time.Millisecond
)

// releaseScript deletes the lock only while it still carries our token, so a
// lease that expired and was taken by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript pushes the lease expiry out by ARGV[2] milliseconds while it
// is still ours.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// HoldLock serializes hold creation across service instances that share a
// Redis. The lease expires after TTL so a crashed holder cannot wedge the
// venue; a live holder renews it every TTL/3 until it releases.
type HoldLock struct {
	Client        *redis.Client
	Key           string
	TTL           time.Duration
	RetryInterval time.Duration
	Logger        *logger.Logger
}

func NewHoldLock(client *redis.Client, key string, ttl time.Duration, log *logger.Logger) *HoldLock {
	if key == "" {
		key = DefaultLockKey
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &HoldLock{
		Client:        client,
		Key:           key,
		TTL:           ttl,
		RetryInterval: defaultRetryInterval,
		Logger:        log,
	}
}

// Acquire polls SETNX until the lease is ours or ctx is done.
func (l *HoldLock) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	retry := l.RetryInterval
	if retry <= 0 {
		retry = defaultRetryInterval
	}

	for {
		ok, err := l.Client.SetNX(ctx, l.Key, token, l.TTL).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("redis lock error: %w", err)
		}
		if ok {
			return l.keepAlive(token), nil
		}

		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// keepAlive renews the lease in the background and returns the release
// func. Calling release more than once is safe.
func (l *HoldLock) keepAlive(token string) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(l.TTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !l.renew(token) {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			l.release(token)
		})
	}
}

// renew reports whether the lease is still ours.
func (l *HoldLock) renew(token string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), l.TTL/3)
	defer cancel()

	n, err := renewScript.Run(ctx, l.Client, []string{l.Key}, token, l.TTL.Milliseconds()).Int()
	if err != nil {
		if l.Logger != nil {
			l.Logger.Warn("REDIS", fmt.Sprintf("Failed to renew hold lock %s: %v", l.Key, err))
		}
		return true
	}
	if n == 0 {
		if l.Logger != nil {
			l.Logger.Warn("REDIS", fmt.Sprintf("Hold lock %s was lost before release", l.Key))
		}
		return false
	}
	return true
}

func (l *HoldLock) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.Client, []string{l.Key}, token).Err(); err != nil && err != redis.Nil {
		if l.Logger != nil {
			l.Logger.Warn("REDIS", fmt.Sprintf("Failed to release hold lock %s: %v", l.Key, err))
		}
	}
}

// Holder returns the token currently holding the lock, or "" when free.
func (l *HoldLock) Holder(ctx context.Context) (string, error) {
	val, err := l.Client.Get(ctx, l.Key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}
