package hub

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Specto0/specto/internal/auth"
	"github.com/Specto0/specto/internal/config"
	"github.com/Specto0/specto/pkg/log"
)

// Client is one live stream connection, owned by a single topic session.
type Client struct {
	ID       string
	TopicID  uint
	Identity *auth.Identity

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	cfg  config.WebSocketConfig
}

// NewClient wraps an upgraded connection for a topic session.
func NewClient(h *Hub, conn *websocket.Conn, topicID uint, ident *auth.Identity, cfg config.WebSocketConfig) *Client {
	size := cfg.SendBufferSize
	if size <= 0 {
		size = 256
	}
	return &Client{
		ID:       uuid.New().String(),
		TopicID:  topicID,
		Identity: ident,
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, size),
		cfg:      cfg,
	}
}

// ReadPump blocks on inbound frames and hands each text frame to the
// handler. It unregisters the connection before closing the transport,
// on every exit path, so the registry never holds a dead connection.
func (c *Client) ReadPump(handler func(*Client, string) error) {
	defer func() {
		c.hub.Unregister(c.TopicID, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.L().Warn().Err(err).Str(log.FieldClientID, c.ID).Msg("websocket read error")
			}
			return
		}

		if err := handler(c, string(message)); err != nil {
			// Terminal for this session only. The close frame must hit the
			// wire before the deferred unregister closes the send channel,
			// or the write pump's normal close could overtake it.
			log.L().Error().Err(err).Str(log.FieldClientID, c.ID).Msg("session handler failed")
			c.CloseWithCode(websocket.CloseInternalServerErr, "internal error")
			return
		}
	}
}

// WritePump drains the send channel onto the socket and keeps the
// connection alive with pings. It exits when the send channel closes
// (unregistration) or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// CloseWithCode sends a close frame with the given status code, then
// closes the transport.
func (c *Client) CloseWithCode(code int, reason string) {
	deadline := time.Now().Add(c.cfg.WriteWait)
	c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	c.conn.Close()
}
