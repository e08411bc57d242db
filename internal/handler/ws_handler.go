package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Specto0/specto/internal/audit"
	"github.com/Specto0/specto/internal/auth"
	"github.com/Specto0/specto/internal/config"
	"github.com/Specto0/specto/internal/domain"
	"github.com/Specto0/specto/internal/hub"
	"github.com/Specto0/specto/internal/service"
	"github.com/Specto0/specto/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler serves the per-topic chat stream.
type WSHandler struct {
	hub           *hub.Hub
	chat          service.ChatService
	authenticator auth.Authenticator
	wsCfg         config.WebSocketConfig
}

// NewWSHandler creates the stream handler.
func NewWSHandler(h *hub.Hub, chat service.ChatService, authenticator auth.Authenticator, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:           h,
		chat:          chat,
		authenticator: authenticator,
		wsCfg:         wsCfg,
	}
}

// RegisterRoutes registers the stream endpoint. Authentication happens
// inside the session handshake, not via the HTTP middleware, because the
// credential may arrive as a query parameter.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/v1/forum/topics/:id/stream", h.HandleStream)
}

// HandleStream runs one topic session: authenticate, verify the topic,
// register, replay history, then pump messages until disconnect.
func (h *WSHandler) HandleStream(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	topicID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid topic id")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	// Credential check comes before the topic lookup so unauthenticated
	// callers learn nothing about which topics exist.
	token := extractToken(c)
	ident, err := h.authenticator.Resolve(ctx, token)
	if err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "authentication required")
		return
	}

	exists, err := h.chat.TopicExists(ctx, uint(topicID))
	if err != nil {
		l.Error().Err(err).Uint(log.FieldTopicID, uint(topicID)).Msg("topic lookup failed")
		closeWith(conn, websocket.CloseInternalServerErr, "internal error")
		return
	}
	if !exists {
		closeWith(conn, websocket.CloseUnsupportedData, "topic not found")
		return
	}

	client := hub.NewClient(h.hub, conn, uint(topicID), ident, h.wsCfg)
	h.hub.Register(client.TopicID, client)
	go client.WritePump()

	audit.LogWithTopic(ctx, audit.ActionStreamConnect, ident.UserID, client.TopicID, "stream connected")

	history, err := h.chat.History(ctx, client.TopicID, ident)
	if err != nil {
		// Close frame first; unregistering closes the send channel and the
		// write pump would race a normal close onto the wire.
		l.Error().Err(err).Uint(log.FieldTopicID, client.TopicID).Msg("history load failed")
		client.CloseWithCode(websocket.CloseInternalServerErr, "internal error")
		h.hub.Unregister(client.TopicID, client)
		return
	}
	if len(history) > 0 {
		h.hub.SendTo(client.TopicID, client, domain.NewHistoryEvent(history))
	}

	client.ReadPump(func(c *hub.Client, raw string) error {
		return h.handleInbound(ctx, c, raw)
	})

	audit.LogWithTopic(ctx, audit.ActionStreamDisconnect, ident.UserID, client.TopicID, "stream disconnected")
}

// handleInbound turns one inbound frame into a persisted, broadcast
// message. Blank frames are ignored by design, not rejected.
func (h *WSHandler) handleInbound(ctx context.Context, c *hub.Client, raw string) error {
	body := strings.TrimSpace(raw)
	if body == "" {
		return nil
	}

	_, err := h.chat.PostMessage(ctx, c.TopicID, c.Identity, body)
	return err
}

// extractToken pulls the bearer credential from the token query
// parameter, falling back to the Authorization header.
func extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return header[len("Bearer "):]
	}
	return ""
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	conn.Close()
}
