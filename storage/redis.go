package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/steamtrust/backend/config"
)

// InitializeRedis connects to redis and verifies the connection
func InitializeRedis(ctx context.Context, conf *config.RedisConfiguration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", conf.Host, conf.Port),
		Password: conf.Password,
		DB:       conf.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection error: %w", err)
	}

	return client, nil
}
