package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Specto0/specto/internal/audit"
	"github.com/Specto0/specto/internal/auth"
	"github.com/Specto0/specto/internal/cache"
	"github.com/Specto0/specto/internal/domain"
	"github.com/Specto0/specto/internal/repository"
	"github.com/Specto0/specto/pkg/log"
)

// Errors surfaced to handlers.
var (
	ErrTopicNotFound   = repository.ErrTopicNotFound
	ErrMessageNotFound = repository.ErrMessageNotFound
	ErrEmptyContent    = errors.New("content must not be empty")
)

// Broadcaster fans an event out to every live connection of a topic.
// Satisfied by *hub.Hub.
type Broadcaster interface {
	Broadcast(topicID uint, event interface{}) error
}

type chatService struct {
	topics       repository.TopicRepository
	messages     repository.MessageRepository
	likes        repository.LikeRepository
	topicCache   cache.TopicCache
	cacheTTL     time.Duration
	broadcaster  Broadcaster
	historyLimit int
}

// NewChatService wires the chat core against its stores and the hub.
// topicCache may be nil, in which case existence checks go straight to
// the database.
func NewChatService(
	topics repository.TopicRepository,
	messages repository.MessageRepository,
	likes repository.LikeRepository,
	topicCache cache.TopicCache,
	cacheTTL time.Duration,
	broadcaster Broadcaster,
	historyLimit int,
) ChatService {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &chatService{
		topics:       topics,
		messages:     messages,
		likes:        likes,
		topicCache:   topicCache,
		cacheTTL:     cacheTTL,
		broadcaster:  broadcaster,
		historyLimit: historyLimit,
	}
}

func (s *chatService) TopicExists(ctx context.Context, topicID uint) (bool, error) {
	if s.topicCache != nil {
		if _, err := s.topicCache.Get(ctx, topicID); err == nil {
			return true, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			log.Ctx(ctx).Warn().Err(err).Msg("topic cache get error")
		}
	}

	topic, err := s.topics.GetByID(ctx, topicID)
	if err != nil {
		if errors.Is(err, repository.ErrTopicNotFound) {
			return false, nil
		}
		return false, err
	}

	if s.topicCache != nil {
		if err := s.topicCache.Set(ctx, topic, s.cacheTTL); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("topic cache set error")
		}
	}
	return true, nil
}

// History loads up to historyLimit messages newest-first, enriches them
// with like data in two bulk queries, and returns them chronological.
func (s *chatService) History(ctx context.Context, topicID uint, viewer *auth.Identity) ([]domain.MessageView, error) {
	recent, err := s.messages.RecentHistory(ctx, topicID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(recent))
	for i, m := range recent {
		ids[i] = m.ID
	}

	var (
		counts map[uint]int64
		mine   map[uint]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.likes.Counts(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		mine, err = s.likes.LikedBy(gctx, viewer.UserID, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Reverse back to chronological order for the client.
	views := make([]domain.MessageView, len(recent))
	for i, m := range recent {
		views[len(recent)-1-i] = domain.MessageView{
			ID:        m.ID,
			TopicID:   m.TopicID,
			User:      m.Author,
			Message:   m.Message.Message,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
			Likes:     counts[m.ID],
			LikedByMe: mine[m.ID],
		}
	}
	return views, nil
}

func (s *chatService) PostMessage(ctx context.Context, topicID uint, sender *auth.Identity, body string) (*domain.MessageView, error) {
	msg, err := s.messages.Append(ctx, topicID, sender.UserID, body)
	if err != nil {
		return nil, err
	}

	view := domain.MessageView{
		ID:      msg.ID,
		TopicID: msg.TopicID,
		User: domain.UserMini{
			ID:        sender.UserID,
			Username:  sender.Username,
			AvatarURL: sender.AvatarURL,
		},
		Message:   msg.Message,
		CreatedAt: msg.CreatedAt.Format(time.RFC3339),
		Likes:     0,
		LikedByMe: false,
	}

	audit.LogWithTopic(ctx, audit.ActionChatMessage, sender.UserID, topicID, "chat message sent")

	if err := s.broadcaster.Broadcast(topicID, domain.NewMessageEvent(view)); err != nil {
		// The message is persisted; a marshal failure here must not kill
		// the sender's session.
		log.Ctx(ctx).Error().Err(err).Uint(log.FieldTopicID, topicID).Msg("failed to broadcast chat message")
	}
	return &view, nil
}

func (s *chatService) ToggleLike(ctx context.Context, caller *auth.Identity, messageID uint) (*domain.LikeResult, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	liked, err := s.likes.Toggle(ctx, caller.UserID, messageID)
	if err != nil {
		return nil, err
	}

	// Recount from the store after the toggle commits; live viewers must
	// converge on the authoritative count, not an in-memory one.
	total, err := s.likes.CountFor(ctx, messageID)
	if err != nil {
		return nil, err
	}

	audit.LogWithTopic(ctx, audit.ActionLikeToggle, caller.UserID, msg.TopicID, "like toggled")

	if err := s.broadcaster.Broadcast(msg.TopicID, domain.NewLikeUpdateEvent(messageID, total)); err != nil {
		log.Ctx(ctx).Error().Err(err).Uint(log.FieldMessageID, messageID).Msg("failed to broadcast like update")
	}

	return &domain.LikeResult{Liked: liked, Likes: total}, nil
}
