package services

import (
	"context"
	"fmt"

	"socialmatch/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(ctx context.Context, conf config.RedisConfig) (*redis.Client, error) {
	if conf.Addr() == "" {
		return nil, fmt.Errorf("redis host is not configured")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr(),
		Password: conf.Password,
		DB:       conf.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
