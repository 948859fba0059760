package db

import (
	"context"
	"time"

	"github.com/braydenmsue/cacheroyale-pomodoro/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

var connectTimeout = 15 * time.Second

var (
	newPoolFn  = pgxpool.New
	pingPoolFn = func(ctx context.Context, pool *pgxpool.Pool) error { return pool.Ping(ctx) }
)

// ConnectPostgres opens the pool and retries the first ping with exponential
// backoff until connectTimeout elapses.
func ConnectPostgres(cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := newPoolFn(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxElapsedTime = connectTimeout

	err = backoff.Retry(func() error {
		return pingPoolFn(ctx, pool)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
