package debtlock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

const retryInterval = 50 * time.Millisecond

// RedisLocker holds debt locks in Redis so several replicas share them.
// A held lock is refreshed every third of its TTL until released, so a write
// unit may outlive the TTL; the TTL only bounds a crashed holder.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	log    *zap.Logger
}

func NewRedisLocker(client redislock.RedisClient, ttl, wait time.Duration, log *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(client),
		ttl:    ttl,
		wait:   wait,
		log:    log,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, debtID snowflake.ID) (Release, error) {
	attempts := int(l.wait / retryInterval)
	if attempts < 1 {
		attempts = 1
	}

	lock, err := l.client.Obtain(ctx, key(debtID), l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(retryInterval), attempts),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrDebtBusy
	}
	if err != nil {
		return nil, err
	}

	return hold(ctx, lock, l.ttl, l.log.With(zap.String("debt_id", debtID.String()))), nil
}

// lease is the part of *redislock.Lock a holder needs.
type lease interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
	Release(ctx context.Context) error
}

// hold keeps l alive until the returned Release is called.
func hold(ctx context.Context, l lease, ttl time.Duration, log *zap.Logger) Release {
	base := context.WithoutCancel(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})

	interval := ttl / 3
	if interval <= 0 {
		interval = ttl
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				refreshCtx, cancel := context.WithTimeout(base, interval)
				err := l.Refresh(refreshCtx, ttl, nil)
				cancel()
				if err != nil {
					log.Warn("refresh debt lock", zap.Error(err))
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			releaseCtx, cancel := context.WithTimeout(base, 2*time.Second)
			defer cancel()
			if err := l.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				log.Warn("release debt lock", zap.Error(err))
			}
		})
	}
}
