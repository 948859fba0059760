package db

import (
	"context"
	"fmt"
	"time"

	"github.com/braydenmsue/cacheroyale-pomodoro/internal/config"

	"github.com/redis/go-redis/v9"
)

var redisPingTimeout = 2 * time.Second

// ConnectRedis returns a nil client and no error when no address is
// configured; the stream hub then runs without cross-instance fan-out. A
// configured server that does not answer PING is reported as an error.
func ConnectRedis(cfg config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}
