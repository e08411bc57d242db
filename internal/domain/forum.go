package domain

import "time"

// Topic types.
const (
	TopicTypeCustom = "custom"
)

// Media types accepted for topics.
const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"
)

// UserMini is the author summary embedded in posts and chat messages.
type UserMini struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Topic is a forum discussion topic, created lazily from a movie or
// series page.
type Topic struct {
	ID          uint      `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	TmdbID      int64     `json:"tmdb_id"`
	MediaType   string    `json:"media_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Post is a forum post with its author.
type Post struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	User      UserMini  `json:"user"`
}

// TopicDetail is a topic with its posts, chronological.
type TopicDetail struct {
	Topic
	Posts []Post `json:"posts"`
}

// EnsureTopicRequest finds or creates the topic for a movie/series.
type EnsureTopicRequest struct {
	TmdbID    int64  `json:"tmdb_id" binding:"required"`
	MediaType string `json:"media_type" binding:"required,oneof=movie tv"`
	Title     string `json:"title" binding:"required"`
}

// CreatePostRequest creates a forum post.
type CreatePostRequest struct {
	Content string `json:"content" binding:"required,min=1,max=1000"`
}
