package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-system/internal/common/config"
	"restaurant-system/internal/common/logger"
	"restaurant-system/internal/common/retry"
)

const (
	maxRetries = 10
	retryDelay = 2 * time.Second
	pingTTL    = 5 * time.Second
)

// connectPolicy is the retry applied while the database comes up.
func connectPolicy(lg *logger.Logger) retry.Policy {
	p := retry.Fixed(maxRetries, retryDelay)
	p.Log = lg
	return p
}

// Connect opens a pool against cfg.URL and keeps pinging until the database
// answers or maxRetries is reached.
func Connect(ctx context.Context, cfg config.Store, lg *logger.Logger) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := retry.Value(ctx, connectPolicy(lg), func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, pcfg)
		if err != nil {
			return nil, err
		}
		pctx, cancel := context.WithTimeout(ctx, pingTTL)
		defer cancel()
		if err := pool.Ping(pctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("db connect canceled: %w", err)
		}
		return nil, fmt.Errorf("database unreachable after %d attempts: %w", maxRetries, err)
	}
	lg.Info("db_connected", map[string]any{"host": pcfg.ConnConfig.Host, "database": pcfg.ConnConfig.Database})
	return pool, nil
}
