package domain

import (
	"time"
)

// UserModel is the GORM model for the users table. This service only
// reads it: registration and profile edits belong to the account service.
type UserModel struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:text;not null"`
	AvatarURL    string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to a UserMini view.
func (m *UserModel) ToDomain() *UserMini {
	return &UserMini{
		ID:        m.ID,
		Username:  m.Username,
		AvatarURL: m.AvatarURL,
	}
}

// TopicModel is the GORM model for forum_topics.
type TopicModel struct {
	ID          uint      `gorm:"primaryKey"`
	Type        string    `gorm:"type:varchar(20);not null;index"`
	Title       string    `gorm:"type:text;not null"`
	Description string    `gorm:"type:text"`
	TmdbID      int64     `gorm:"uniqueIndex:idx_topic_media"`
	MediaType   string    `gorm:"type:varchar(10);uniqueIndex:idx_topic_media"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (TopicModel) TableName() string {
	return "forum_topics"
}

func (m *TopicModel) ToDomain() *Topic {
	return &Topic{
		ID:          m.ID,
		Type:        m.Type,
		Title:       m.Title,
		Description: m.Description,
		TmdbID:      m.TmdbID,
		MediaType:   m.MediaType,
		CreatedAt:   m.CreatedAt,
	}
}

// PostModel is the GORM model for forum_posts.
type PostModel struct {
	ID        uint      `gorm:"primaryKey"`
	TopicID   uint      `gorm:"not null;index;constraint:OnDelete:CASCADE"`
	UserID    uint      `gorm:"not null;index;constraint:OnDelete:CASCADE"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (PostModel) TableName() string {
	return "forum_posts"
}

// MessageModel is the GORM model for chat_messages. Rows are append-only;
// deletion only happens through the topic's FK cascade.
type MessageModel struct {
	ID        uint      `gorm:"primaryKey"`
	TopicID   uint      `gorm:"not null;index;constraint:OnDelete:CASCADE"`
	UserID    uint      `gorm:"not null;index;constraint:OnDelete:CASCADE"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (MessageModel) TableName() string {
	return "chat_messages"
}

func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:        m.ID,
		TopicID:   m.TopicID,
		UserID:    m.UserID,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}

// LikeModel is the GORM model for chat_likes. The composite unique index
// is the arbiter for the one-like-per-user-per-message invariant.
type LikeModel struct {
	ID        uint      `gorm:"primaryKey"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_like_user_message;constraint:OnDelete:CASCADE"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_user_message;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (LikeModel) TableName() string {
	return "chat_likes"
}

// AllModels lists every model this service migrates on boot.
func AllModels() []interface{} {
	return []interface{}{
		&UserModel{},
		&TopicModel{},
		&PostModel{},
		&MessageModel{},
		&LikeModel{},
	}
}
