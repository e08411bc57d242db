package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Specto0/specto/internal/domain"
	"github.com/Specto0/specto/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Append persists a new chat message. ID and timestamp are assigned here,
// never by the client.
func (r *GormMessageRepository) Append(ctx context.Context, topicID, userID uint, body string) (*domain.Message, error) {
	l := log.Ctx(ctx)

	model := domain.MessageModel{
		TopicID: topicID,
		UserID:  userID,
		Message: body,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		l.Error().Err(err).Uint(log.FieldTopicID, topicID).Msg("failed to append chat message")
		return nil, err
	}

	l.Debug().
		Uint(log.FieldMessageID, model.ID).
		Uint(log.FieldTopicID, topicID).
		Msg("chat message appended")
	return model.ToDomain(), nil
}

// GetByID retrieves a message by ID.
func (r *GormMessageRepository) GetByID(ctx context.Context, id uint) (*domain.Message, error) {
	var model domain.MessageModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		log.Ctx(ctx).Error().Err(err).Uint(log.FieldMessageID, id).Msg("failed to get message")
		return nil, err
	}
	return model.ToDomain(), nil
}

type messageAuthorRow struct {
	ID        uint
	TopicID   uint
	UserID    uint
	Message   string
	CreatedAt time.Time
	Username  string
	AvatarURL string
}

// RecentHistory returns up to limit messages in reverse-chronological
// order, joined with their authors in a single query.
func (r *GormMessageRepository) RecentHistory(ctx context.Context, topicID uint, limit int) ([]domain.MessageWithAuthor, error) {
	var rows []messageAuthorRow
	err := r.db.WithContext(ctx).
		Table("chat_messages").
		Select("chat_messages.id, chat_messages.topic_id, chat_messages.user_id, chat_messages.message, chat_messages.created_at, users.username, users.avatar_url").
		Joins("JOIN users ON users.id = chat_messages.user_id").
		Where("chat_messages.topic_id = ?", topicID).
		Order("chat_messages.created_at DESC, chat_messages.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Uint(log.FieldTopicID, topicID).Msg("failed to load chat history")
		return nil, err
	}

	messages := make([]domain.MessageWithAuthor, len(rows))
	for i, row := range rows {
		messages[i] = domain.MessageWithAuthor{
			Message: domain.Message{
				ID:        row.ID,
				TopicID:   row.TopicID,
				UserID:    row.UserID,
				Message:   row.Message,
				CreatedAt: row.CreatedAt,
			},
			Author: domain.UserMini{
				ID:        row.UserID,
				Username:  row.Username,
				AvatarURL: row.AvatarURL,
			},
		}
	}
	return messages, nil
}
