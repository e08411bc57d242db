package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Specto0/specto/internal/auth"
	"github.com/Specto0/specto/internal/domain"
	"github.com/Specto0/specto/internal/service"
	"github.com/Specto0/specto/pkg/log"
	"github.com/Specto0/specto/pkg/response"
)

// Handler handles the forum's HTTP surface.
type Handler struct {
	forum          service.ForumService
	chat           service.ChatService
	authMiddleware *auth.Middleware
}

// NewHandler creates the HTTP handler.
func NewHandler(forum service.ForumService, chat service.ChatService, authMiddleware *auth.Middleware) *Handler {
	return &Handler{
		forum:          forum,
		chat:           chat,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		forum := api.Group("/forum", h.authMiddleware.RequireAuth())
		{
			forum.POST("/topics/ensure", h.EnsureTopic)
			forum.GET("/topics", h.ListTopics)
			forum.GET("/topics/:id", h.TopicDetail)
			forum.POST("/topics/:id/posts", h.CreatePost)
			forum.POST("/messages/:id/like", h.ToggleLike)
		}
	}
}

// EnsureTopic finds or creates the topic for a movie/series page.
func (h *Handler) EnsureTopic(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	ident := auth.GetIdentity(c)
	if ident == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.EnsureTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind ensure topic request")
		response.BadRequest(c, err.Error())
		return
	}

	topic, err := h.forum.EnsureTopic(ctx, ident, &req)
	if err != nil {
		l.Error().Err(err).Msg("failed to ensure topic")
		response.InternalError(c, "failed to ensure topic")
		return
	}

	response.Success(c, topic)
}

// ListTopics lists the most recent topics.
func (h *Handler) ListTopics(c *gin.Context) {
	ctx := c.Request.Context()

	topics, err := h.forum.ListTopics(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list topics")
		response.InternalError(c, "failed to list topics")
		return
	}

	response.Success(c, topics)
}

// TopicDetail returns a topic with its posts.
func (h *Handler) TopicDetail(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	topicID, ok := parseID(c)
	if !ok {
		return
	}

	detail, err := h.forum.TopicDetail(ctx, topicID)
	if err != nil {
		if errors.Is(err, service.ErrTopicNotFound) {
			response.NotFound(c, "topic not found")
			return
		}
		l.Error().Err(err).Uint(log.FieldTopicID, topicID).Msg("failed to get topic detail")
		response.InternalError(c, "failed to get topic")
		return
	}

	response.Success(c, detail)
}

// CreatePost creates a forum post in a topic.
func (h *Handler) CreatePost(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	ident := auth.GetIdentity(c)
	if ident == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	topicID, ok := parseID(c)
	if !ok {
		return
	}

	var req domain.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create post request")
		response.BadRequest(c, err.Error())
		return
	}

	post, err := h.forum.CreatePost(ctx, ident, topicID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTopicNotFound):
			response.NotFound(c, "topic not found")
		case errors.Is(err, service.ErrEmptyContent):
			response.BadRequest(c, "content must not be empty")
		default:
			l.Error().Err(err).Uint(log.FieldTopicID, topicID).Msg("failed to create post")
			response.InternalError(c, "failed to create post")
		}
		return
	}

	response.Created(c, post)
}

// ToggleLike flips the caller's like on a chat message and pushes the
// new count to the topic's live viewers.
func (h *Handler) ToggleLike(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	ident := auth.GetIdentity(c)
	if ident == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	messageID, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.chat.ToggleLike(ctx, ident, messageID)
	if err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			response.NotFound(c, "message not found")
			return
		}
		l.Error().Err(err).Uint(log.FieldMessageID, messageID).Msg("failed to toggle like")
		response.InternalError(c, "failed to toggle like")
		return
	}

	response.Success(c, result)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}
