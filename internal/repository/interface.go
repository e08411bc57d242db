package repository

import (
	"context"
	"errors"

	"github.com/Specto0/specto/internal/domain"
)

var (
	ErrTopicNotFound   = errors.New("topic not found")
	ErrPostNotFound    = errors.New("post not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrUserNotFound    = errors.New("user not found")
)

// TopicRepository manages forum topics.
type TopicRepository interface {
	// Ensure finds the topic for a (tmdb_id, media_type) pair, creating
	// it when absent. Returns the topic and whether it was created.
	Ensure(ctx context.Context, req *domain.EnsureTopicRequest) (*domain.Topic, bool, error)
	GetByID(ctx context.Context, id uint) (*domain.Topic, error)
	Exists(ctx context.Context, id uint) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Topic, error)
}

// PostRepository manages forum posts.
type PostRepository interface {
	Create(ctx context.Context, topicID, userID uint, content string) (*domain.Post, error)
	ListByTopic(ctx context.Context, topicID uint) ([]domain.Post, error)
}

// MessageRepository manages chat messages.
type MessageRepository interface {
	// Append persists a new message with a server-assigned ID and timestamp.
	Append(ctx context.Context, topicID, userID uint, body string) (*domain.Message, error)
	GetByID(ctx context.Context, id uint) (*domain.Message, error)
	// RecentHistory returns up to limit messages for a topic in
	// reverse-chronological order, each joined with its author.
	RecentHistory(ctx context.Context, topicID uint, limit int) ([]domain.MessageWithAuthor, error)
}

// LikeRepository manages chat message likes.
type LikeRepository interface {
	// Toggle flips the (user, message) like and reports the new state.
	Toggle(ctx context.Context, userID, messageID uint) (liked bool, err error)
	// Counts returns like totals for the given message IDs in one query.
	// Messages with no likes are absent from the map.
	Counts(ctx context.Context, messageIDs []uint) (map[uint]int64, error)
	// LikedBy returns which of the given messages the user has liked.
	LikedBy(ctx context.Context, userID uint, messageIDs []uint) (map[uint]bool, error)
	CountFor(ctx context.Context, messageID uint) (int64, error)
}

// UserRepository resolves user identities.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*domain.UserMini, error)
}
