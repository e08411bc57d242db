package domain

import "time"

// Message is a persisted chat message.
type Message struct {
	ID        uint      `json:"id"`
	TopicID   uint      `json:"topic_id"`
	UserID    uint      `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageWithAuthor is a message joined with its author row.
type MessageWithAuthor struct {
	Message
	Author UserMini
}

// MessageView is the denormalized message shape sent over the wire.
type MessageView struct {
	ID        uint     `json:"id"`
	TopicID   uint     `json:"topic_id"`
	User      UserMini `json:"user"`
	Message   string   `json:"message"`
	CreatedAt string   `json:"created_at"` // ISO-8601
	Likes     int64    `json:"likes"`
	LikedByMe bool     `json:"liked_by_me"`
}

// Event frame types sent to stream clients.
const (
	EventTypeHistory    = "history"
	EventTypeMessage    = "message"
	EventTypeLikeUpdate = "like_update"
)

// HistoryEvent is sent once at session start, only when non-empty.
type HistoryEvent struct {
	Type     string        `json:"type"`
	Messages []MessageView `json:"messages"`
}

// MessageEvent carries one newly persisted chat message.
type MessageEvent struct {
	Type string      `json:"type"`
	Data MessageView `json:"data"`
}

// LikeUpdateEvent carries the authoritative like count after a toggle.
type LikeUpdateEvent struct {
	Type string         `json:"type"`
	Data LikeUpdateData `json:"data"`
}

type LikeUpdateData struct {
	MessageID uint  `json:"message_id"`
	Likes     int64 `json:"likes"`
}

// LikeResult is the toggle caller's own new state.
type LikeResult struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

// NewHistoryEvent builds a history frame.
func NewHistoryEvent(messages []MessageView) *HistoryEvent {
	return &HistoryEvent{Type: EventTypeHistory, Messages: messages}
}

// NewMessageEvent builds a message frame.
func NewMessageEvent(view MessageView) *MessageEvent {
	return &MessageEvent{Type: EventTypeMessage, Data: view}
}

// NewLikeUpdateEvent builds a like_update frame.
func NewLikeUpdateEvent(messageID uint, likes int64) *LikeUpdateEvent {
	return &LikeUpdateEvent{
		Type: EventTypeLikeUpdate,
		Data: LikeUpdateData{MessageID: messageID, Likes: likes},
	}
}
