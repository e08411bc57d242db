package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Specto0/specto/internal/cache"
	"github.com/Specto0/specto/internal/domain"
	"github.com/Specto0/specto/internal/repository"
)

// In-memory fakes for the repository interfaces. They honor the same
// contracts the gorm implementations do (sentinel errors, ordering,
// uniqueness) so the service layer can be tested without a database.

type fakeTopicRepo struct {
	mu     sync.Mutex
	nextID uint
	topics map[uint]*domain.Topic
	calls  int
}

func newFakeTopicRepo() *fakeTopicRepo {
	return &fakeTopicRepo{topics: make(map[uint]*domain.Topic)}
}

func (r *fakeTopicRepo) add(title string) *domain.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t := &domain.Topic{
		ID:        r.nextID,
		Type:      domain.TopicTypeCustom,
		Title:     title,
		CreatedAt: time.Now().Add(time.Duration(r.nextID) * time.Millisecond),
	}
	r.topics[t.ID] = t
	return t
}

func (r *fakeTopicRepo) Ensure(_ context.Context, req *domain.EnsureTopicRequest) (*domain.Topic, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.topics {
		if t.TmdbID == req.TmdbID && t.MediaType == req.MediaType {
			return t, false, nil
		}
	}
	r.nextID++
	t := &domain.Topic{
		ID:        r.nextID,
		Type:      domain.TopicTypeCustom,
		Title:     req.Title,
		TmdbID:    req.TmdbID,
		MediaType: req.MediaType,
		CreatedAt: time.Now(),
	}
	r.topics[t.ID] = t
	return t, true, nil
}

func (r *fakeTopicRepo) GetByID(_ context.Context, id uint) (*domain.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	t, ok := r.topics[id]
	if !ok {
		return nil, repository.ErrTopicNotFound
	}
	return t, nil
}

func (r *fakeTopicRepo) Exists(ctx context.Context, id uint) (bool, error) {
	_, err := r.GetByID(ctx, id)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *fakeTopicRepo) ListRecent(_ context.Context, limit int) ([]domain.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Topic, 0, len(r.topics))
	for _, t := range r.topics {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakePostRepo struct {
	mu     sync.Mutex
	nextID uint
	posts  map[uint][]domain.Post // topicID -> posts, chronological
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[uint][]domain.Post)}
}

func (r *fakePostRepo) Create(_ context.Context, topicID, userID uint, content string) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p := domain.Post{
		ID:        r.nextID,
		Content:   content,
		CreatedAt: time.Now(),
		User:      domain.UserMini{ID: userID},
	}
	r.posts[topicID] = append(r.posts[topicID], p)
	out := p
	return &out, nil
}

func (r *fakePostRepo) ListByTopic(_ context.Context, topicID uint) ([]domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Post(nil), r.posts[topicID]...), nil
}

type fakeMessageRepo struct {
	mu        sync.Mutex
	nextID    uint
	messages  []domain.MessageWithAuthor
	appendErr error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Append(_ context.Context, topicID, userID uint, body string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return nil, r.appendErr
	}
	r.nextID++
	m := domain.MessageWithAuthor{
		Message: domain.Message{
			ID:      r.nextID,
			TopicID: topicID,
			UserID:  userID,
			Message: body,
			// Strictly increasing per insertion order.
			CreatedAt: time.Unix(int64(r.nextID), 0).UTC(),
		},
		Author: domain.UserMini{ID: userID, Username: fmt.Sprintf("user%d", userID)},
	}
	r.messages = append(r.messages, m)
	out := m.Message
	return &out, nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id uint) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			out := m.Message
			return &out, nil
		}
	}
	return nil, repository.ErrMessageNotFound
}

func (r *fakeMessageRepo) RecentHistory(_ context.Context, topicID uint, limit int) ([]domain.MessageWithAuthor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.MessageWithAuthor
	for i := len(r.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if r.messages[i].TopicID == topicID {
			out = append(out, r.messages[i])
		}
	}
	return out, nil
}

type likeKey struct {
	userID    uint
	messageID uint
}

type fakeLikeRepo struct {
	mu    sync.Mutex
	likes map[likeKey]bool
}

func newFakeLikeRepo() *fakeLikeRepo {
	return &fakeLikeRepo{likes: make(map[likeKey]bool)}
}

func (r *fakeLikeRepo) Toggle(_ context.Context, userID, messageID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := likeKey{userID, messageID}
	if r.likes[key] {
		delete(r.likes, key)
		return false, nil
	}
	r.likes[key] = true
	return true, nil
}

func (r *fakeLikeRepo) Counts(_ context.Context, messageIDs []uint) (map[uint]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[uint]int64)
	for _, id := range messageIDs {
		for key := range r.likes {
			if key.messageID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (r *fakeLikeRepo) LikedBy(_ context.Context, userID uint, messageIDs []uint) (map[uint]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	liked := make(map[uint]bool)
	for _, id := range messageIDs {
		if r.likes[likeKey{userID, id}] {
			liked[id] = true
		}
	}
	return liked, nil
}

func (r *fakeLikeRepo) CountFor(_ context.Context, messageID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key := range r.likes {
		if key.messageID == messageID {
			n++
		}
	}
	return n, nil
}

type broadcastCall struct {
	topicID uint
	event   interface{}
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (b *fakeBroadcaster) Broadcast(topicID uint, event interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{topicID: topicID, event: event})
	return nil
}

func (b *fakeBroadcaster) all() []broadcastCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcastCall(nil), b.calls...)
}

type fakeTopicCache struct {
	mu     sync.Mutex
	topics map[uint]*domain.Topic
	sets   int
}

func newFakeTopicCache() *fakeTopicCache {
	return &fakeTopicCache{topics: make(map[uint]*domain.Topic)}
}

func (c *fakeTopicCache) Get(_ context.Context, topicID uint) (*domain.Topic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.topics[topicID]; ok {
		return t, nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *fakeTopicCache) Set(_ context.Context, topic *domain.Topic, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[topic.ID] = topic
	c.sets++
	return nil
}

func (c *fakeTopicCache) Close() error { return nil }
