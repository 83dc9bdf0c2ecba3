package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/festivo/ticketing/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// NewClient connects to redis and verifies the connection before returning.
// Startup ordering in compose environments makes the broker briefly
// unreachable, so the initial ping is retried with a linear backoff.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	attempts := cfg.ConnectRetries
	if attempts <= 0 {
		attempts = 5
	}
	delay := cfg.ConnectRetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		if i < attempts {
			time.Sleep(time.Duration(i) * delay)
		}
	}
	client.Close()
	return nil, fmt.Errorf("connect to redis after %d attempts: %w", attempts, err)
}
