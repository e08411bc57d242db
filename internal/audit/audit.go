package audit

import (
	"context"

	"github.com/Specto0/specto/pkg/log"
)

// Audit actions for the forum service.
const (
	ActionStreamConnect    = "chat.connect"
	ActionStreamDisconnect = "chat.disconnect"
	ActionChatMessage      = "chat.message"
	ActionLikeToggle       = "chat.like_toggle"
	ActionCreateTopic      = "topic.create"
	ActionCreatePost       = "post.create"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID uint, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Uint(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithTopic emits an audit log scoped to a topic.
func LogWithTopic(ctx context.Context, action string, userID, topicID uint, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Uint(log.FieldUserID, userID).
		Uint(log.FieldTopicID, topicID).
		Msg(msg)
}
