package memory

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "levo:memory:"

// RedisStore keeps one list per user; RPUSH order is insertion order.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Append(ctx context.Context, userID, text string) error {
	if err := s.client.RPush(ctx, redisKeyPrefix+userID, text).Err(); err != nil {
		return fmt.Errorf("%w: rpush: %w", ErrStorage, err)
	}
	return nil
}

func (s *RedisStore) ReadAll(ctx context.Context, userID string) (string, error) {
	texts, err := s.client.LRange(ctx, redisKeyPrefix+userID, 0, -1).Result()
	if err != nil {
		return "", fmt.Errorf("%w: lrange: %w", ErrStorage, err)
	}
	return joinTexts(texts), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
