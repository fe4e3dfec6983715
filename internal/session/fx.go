package session

import (
	"context"

	"github.com/commercekit/paygate/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewStore selects the redis-backed store when redis is configured and the
// in-process store otherwise.
func NewStore(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Store {
	if cfg.RedisAddr == "" {
		log.Info("session store using process memory")
		return NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	log.Info("session store using redis", zap.String("addr", cfg.RedisAddr))
	return NewRedisStore(client)
}

var Module = fx.Module("session",
	fx.Provide(NewStore),
)
