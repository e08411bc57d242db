package service

import (
	"context"

	"github.com/Specto0/specto/internal/auth"
	"github.com/Specto0/specto/internal/domain"
)

// ChatService backs the topic stream endpoint and the like toggle.
type ChatService interface {
	// TopicExists checks that a topic resolves before a session registers.
	TopicExists(ctx context.Context, topicID uint) (bool, error)
	// History loads the most recent messages for a topic, chronological,
	// enriched with like counts and the viewer's own likes.
	History(ctx context.Context, topicID uint, viewer *auth.Identity) ([]domain.MessageView, error)
	// PostMessage persists a chat message and then broadcasts it to the
	// topic. Broadcast never happens for an unpersisted message.
	PostMessage(ctx context.Context, topicID uint, sender *auth.Identity, body string) (*domain.MessageView, error)
	// ToggleLike flips the caller's like on a message, broadcasts the
	// authoritative count to the owning topic, and returns the caller's
	// new state.
	ToggleLike(ctx context.Context, caller *auth.Identity, messageID uint) (*domain.LikeResult, error)
}

// ForumService backs the topic and post CRUD endpoints.
type ForumService interface {
	EnsureTopic(ctx context.Context, caller *auth.Identity, req *domain.EnsureTopicRequest) (*domain.Topic, error)
	ListTopics(ctx context.Context) ([]domain.Topic, error)
	TopicDetail(ctx context.Context, topicID uint) (*domain.TopicDetail, error)
	CreatePost(ctx context.Context, caller *auth.Identity, topicID uint, req *domain.CreatePostRequest) (*domain.Post, error)
}
