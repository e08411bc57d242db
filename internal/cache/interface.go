package cache

import (
	"context"
	"errors"
	"time"

	"github.com/Specto0/specto/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// TopicCache caches topic lookups. Every stream connect checks topic
// existence, so these reads are the hottest path against forum_topics.
// Topics are never deleted, so writes only ever go through Set; a fresh
// topic is written through on creation.
type TopicCache interface {
	Get(ctx context.Context, topicID uint) (*domain.Topic, error)
	Set(ctx context.Context, topic *domain.Topic, ttl time.Duration) error
	Close() error
}
