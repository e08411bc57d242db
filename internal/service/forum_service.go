package service

import (
	"context"
	"strings"
	"time"

	"github.com/Specto0/specto/internal/audit"
	"github.com/Specto0/specto/internal/auth"
	"github.com/Specto0/specto/internal/cache"
	"github.com/Specto0/specto/internal/domain"
	"github.com/Specto0/specto/internal/repository"
	"github.com/Specto0/specto/pkg/log"
)

type forumService struct {
	topics      repository.TopicRepository
	posts       repository.PostRepository
	topicCache  cache.TopicCache
	cacheTTL    time.Duration
	topicsLimit int
}

// NewForumService wires topic and post CRUD. topicCache may be nil.
func NewForumService(
	topics repository.TopicRepository,
	posts repository.PostRepository,
	topicCache cache.TopicCache,
	cacheTTL time.Duration,
	topicsLimit int,
) ForumService {
	if topicsLimit <= 0 {
		topicsLimit = 20
	}
	return &forumService{
		topics:      topics,
		posts:       posts,
		topicCache:  topicCache,
		cacheTTL:    cacheTTL,
		topicsLimit: topicsLimit,
	}
}

// EnsureTopic finds or creates the discussion topic for a movie/series.
// Repeated calls for the same media are idempotent.
func (s *forumService) EnsureTopic(ctx context.Context, caller *auth.Identity, req *domain.EnsureTopicRequest) (*domain.Topic, error) {
	topic, created, err := s.topics.Ensure(ctx, req)
	if err != nil {
		return nil, err
	}

	if created {
		audit.LogWithTopic(ctx, audit.ActionCreateTopic, caller.UserID, topic.ID, "topic created")
		if s.topicCache != nil {
			if err := s.topicCache.Set(ctx, topic, s.cacheTTL); err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("topic cache set error")
			}
		}
	}
	return topic, nil
}

func (s *forumService) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	return s.topics.ListRecent(ctx, s.topicsLimit)
}

func (s *forumService) TopicDetail(ctx context.Context, topicID uint) (*domain.TopicDetail, error) {
	topic, err := s.topics.GetByID(ctx, topicID)
	if err != nil {
		return nil, err
	}

	posts, err := s.posts.ListByTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}

	return &domain.TopicDetail{Topic: *topic, Posts: posts}, nil
}

func (s *forumService) CreatePost(ctx context.Context, caller *auth.Identity, topicID uint, req *domain.CreatePostRequest) (*domain.Post, error) {
	if _, err := s.topics.GetByID(ctx, topicID); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	post, err := s.posts.Create(ctx, topicID, caller.UserID, content)
	if err != nil {
		return nil, err
	}
	post.User = domain.UserMini{
		ID:        caller.UserID,
		Username:  caller.Username,
		AvatarURL: caller.AvatarURL,
	}

	audit.LogWithTopic(ctx, audit.ActionCreatePost, caller.UserID, topicID, "post created")
	return post, nil
}
