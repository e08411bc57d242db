package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Specto0/specto/internal/domain"
	"github.com/Specto0/specto/pkg/log"
)

// GormPostRepository implements PostRepository using GORM.
type GormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository creates a GORM-based post repository.
func NewGormPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

// Create persists a forum post.
func (r *GormPostRepository) Create(ctx context.Context, topicID, userID uint, content string) (*domain.Post, error) {
	l := log.Ctx(ctx)

	model := domain.PostModel{
		TopicID: topicID,
		UserID:  userID,
		Content: content,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		l.Error().Err(err).Uint(log.FieldTopicID, topicID).Msg("failed to create post")
		return nil, err
	}

	return &domain.Post{
		ID:        model.ID,
		Content:   model.Content,
		CreatedAt: model.CreatedAt,
	}, nil
}

type postAuthorRow struct {
	ID        uint
	Content   string
	CreatedAt time.Time
	UserID    uint
	Username  string
	AvatarURL string
}

// ListByTopic returns a topic's posts in chronological order with authors.
func (r *GormPostRepository) ListByTopic(ctx context.Context, topicID uint) ([]domain.Post, error) {
	var rows []postAuthorRow
	err := r.db.WithContext(ctx).
		Table("forum_posts").
		Select("forum_posts.id, forum_posts.content, forum_posts.created_at, users.id AS user_id, users.username, users.avatar_url").
		Joins("JOIN users ON users.id = forum_posts.user_id").
		Where("forum_posts.topic_id = ?", topicID).
		Order("forum_posts.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Uint(log.FieldTopicID, topicID).Msg("failed to list posts")
		return nil, err
	}

	posts := make([]domain.Post, len(rows))
	for i, row := range rows {
		posts[i] = domain.Post{
			ID:        row.ID,
			Content:   row.Content,
			CreatedAt: row.CreatedAt,
			User: domain.UserMini{
				ID:        row.UserID,
				Username:  row.Username,
				AvatarURL: row.AvatarURL,
			},
		}
	}
	return posts, nil
}
