package debtlock

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/backoffice/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("debtlock",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lc  fx.Lifecycle
	Cfg config.Config
	Log *zap.Logger
}

// New picks the Redis locker when REDIS_ADDR is set and the in-process one otherwise.
func New(p Params) (Locker, error) {
	log := p.Log.Named("debtlock")
	ttl := p.Cfg.Ledger.LockTTL
	wait := p.Cfg.Ledger.LockWait

	if !p.Cfg.Redis.Enabled() {
		log.Info("using in-process debt locks")
		return NewMemoryLocker(wait), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     p.Cfg.Redis.Addr,
		Password: p.Cfg.Redis.Password,
		DB:       p.Cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", p.Cfg.Redis.Addr, err)
	}

	p.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	log.Info("using redis debt locks",
		zap.String("addr", p.Cfg.Redis.Addr),
		zap.Duration("ttl", ttl),
		zap.Duration("wait", wait),
	)
	return NewRedisLocker(client, ttl, wait, log), nil
}
