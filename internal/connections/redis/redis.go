package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"restaurant-system/internal/common/config"
	"restaurant-system/internal/common/logger"
)

const pingTTL = 5 * time.Second

// Connect opens a client and checks it answers PING.
func Connect(ctx context.Context, cfg config.Redis, lg *logger.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, pingTTL)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	lg.Info("redis_connected", map[string]any{"addr": cfg.Addr, "db": cfg.DB})
	return client, nil
}
