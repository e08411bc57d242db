package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Specto0/specto/internal/config"
	"github.com/Specto0/specto/internal/domain"
)

// RedisTopicCache implements TopicCache on Redis.
type RedisTopicCache struct {
	client *redis.Client
	prefix string
}

// NewRedisTopicCache connects to Redis and returns a topic cache.
func NewRedisTopicCache(cfg config.RedisConfig) (*RedisTopicCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisTopicCache{
		client: client,
		prefix: cfg.TopicCachePrefix,
	}, nil
}

func (c *RedisTopicCache) key(topicID uint) string {
	return fmt.Sprintf("%s:%d", c.prefix, topicID)
}

func (c *RedisTopicCache) Get(ctx context.Context, topicID uint) (*domain.Topic, error) {
	data, err := c.client.Get(ctx, c.key(topicID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var topic domain.Topic
	if err := json.Unmarshal(data, &topic); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached topic: %w", err)
	}
	return &topic, nil
}

func (c *RedisTopicCache) Set(ctx context.Context, topic *domain.Topic, ttl time.Duration) error {
	data, err := json.Marshal(topic)
	if err != nil {
		return fmt.Errorf("failed to marshal topic: %w", err)
	}
	if err := c.client.Set(ctx, c.key(topic.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisTopicCache) Close() error {
	return c.client.Close()
}
