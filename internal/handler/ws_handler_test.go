package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Specto0/specto/internal/auth"
	"github.com/Specto0/specto/internal/config"
	"github.com/Specto0/specto/internal/domain"
	"github.com/Specto0/specto/internal/hub"
)

const testToken = "valid-token"

type fakeAuthenticator struct{}

func (fakeAuthenticator) Resolve(_ context.Context, token string) (*auth.Identity, error) {
	if token != testToken {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Identity{UserID: 1, Username: "paul"}, nil
}

// fakeChatService serves a fixed topic set and records posted messages.
// PostMessage broadcasts through the real hub the way the production
// service does.
type fakeChatService struct {
	mu          sync.Mutex
	hub         *hub.Hub
	knownTopics map[uint]bool
	history     []domain.MessageView
	existsCalls int
	posted      []string
	nextID      uint
	postErr     error
}

func (s *fakeChatService) TopicExists(_ context.Context, topicID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existsCalls++
	return s.knownTopics[topicID], nil
}

func (s *fakeChatService) History(_ context.Context, _ uint, _ *auth.Identity) ([]domain.MessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history, nil
}

func (s *fakeChatService) PostMessage(_ context.Context, topicID uint, sender *auth.Identity, body string) (*domain.MessageView, error) {
	s.mu.Lock()
	if s.postErr != nil {
		err := s.postErr
		s.mu.Unlock()
		return nil, err
	}
	s.posted = append(s.posted, body)
	s.nextID++
	view := domain.MessageView{
		ID:      s.nextID,
		TopicID: topicID,
		User:    domain.UserMini{ID: sender.UserID, Username: sender.Username},
		Message: body,
	}
	s.mu.Unlock()

	s.hub.Broadcast(topicID, domain.NewMessageEvent(view))
	return &view, nil
}

func (s *fakeChatService) ToggleLike(_ context.Context, _ *auth.Identity, _ uint) (*domain.LikeResult, error) {
	return &domain.LikeResult{}, nil
}

func (s *fakeChatService) postedMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.posted...)
}

func (s *fakeChatService) topicExistsCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existsCalls
}

func newStreamServer(t *testing.T) (*httptest.Server, *fakeChatService) {
	t.Helper()

	wsCfg := config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
		SendBufferSize: 16,
	}

	h := hub.NewHub(wsCfg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)

	chat := &fakeChatService{hub: h, knownTopics: map[uint]bool{7: true}}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewWSHandler(h, chat, fakeAuthenticator{}, wsCfg).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, chat
}

func streamURL(srv *httptest.Server, topic string, token string) string {
	url := strings.Replace(srv.URL, "http", "ws", 1) + "/api/v1/forum/topics/" + topic + "/stream"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func dialStream(t *testing.T, srv *httptest.Server, topic string, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(streamURL(srv, topic, token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// expectClose reads until the peer closes and returns the close code.
func expectClose(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		closeErr, ok := err.(*websocket.CloseError)
		require.True(t, ok, "expected close frame, got %v", err)
		return closeErr.Code
	}
}

func readEvent(t *testing.T, conn *websocket.Conn, out interface{}) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, out))
}

func TestStreamRejectsInvalidTopicIDBeforeUpgrade(t *testing.T) {
	srv, _ := newStreamServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(streamURL(srv, "abc", testToken), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamClosesPolicyViolationWithoutToken(t *testing.T) {
	srv, chat := newStreamServer(t)

	conn := dialStream(t, srv, "7", "")
	assert.Equal(t, websocket.ClosePolicyViolation, expectClose(t, conn))
	assert.Zero(t, chat.topicExistsCalls(), "unauthenticated callers must not trigger topic lookups")
}

func TestStreamClosesPolicyViolationOnBadToken(t *testing.T) {
	srv, _ := newStreamServer(t)

	conn := dialStream(t, srv, "7", "forged")
	assert.Equal(t, websocket.ClosePolicyViolation, expectClose(t, conn))
}

func TestStreamAcceptsAuthorizationHeader(t *testing.T) {
	srv, chat := newStreamServer(t)

	header := http.Header{"Authorization": []string{"Bearer " + testToken}}
	conn, _, err := websocket.DefaultDialer.Dial(streamURL(srv, "7", ""), header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("via header")))
	assert.Eventually(t, func() bool {
		return len(chat.postedMessages()) == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, chat.topicExistsCalls())
}

func TestStreamClosesUnsupportedDataForUnknownTopic(t *testing.T) {
	srv, _ := newStreamServer(t)

	conn := dialStream(t, srv, "99", testToken)
	assert.Equal(t, websocket.CloseUnsupportedData, expectClose(t, conn))
}

func TestStreamSendsHistoryFrameFirst(t *testing.T) {
	srv, chat := newStreamServer(t)
	chat.history = []domain.MessageView{
		{ID: 1, TopicID: 7, Message: "older"},
		{ID: 2, TopicID: 7, Message: "newer"},
	}

	conn := dialStream(t, srv, "7", testToken)

	var ev domain.HistoryEvent
	readEvent(t, conn, &ev)
	assert.Equal(t, domain.EventTypeHistory, ev.Type)
	require.Len(t, ev.Messages, 2)
	assert.Equal(t, "older", ev.Messages[0].Message)
	assert.Equal(t, "newer", ev.Messages[1].Message)
}

func TestStreamSkipsHistoryFrameWhenEmpty(t *testing.T) {
	srv, _ := newStreamServer(t)

	conn := dialStream(t, srv, "7", testToken)

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "empty topics must not produce a history frame")
	assert.True(t, strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline"))
}

func TestStreamFansMessagesOutToTopic(t *testing.T) {
	srv, _ := newStreamServer(t)

	sender := dialStream(t, srv, "7", testToken)
	watcher := dialStream(t, srv, "7", testToken)

	// Give the watcher time to register before the broadcast.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte("hello room")))

	for _, conn := range []*websocket.Conn{sender, watcher} {
		var ev domain.MessageEvent
		readEvent(t, conn, &ev)
		assert.Equal(t, domain.EventTypeMessage, ev.Type)
		assert.Equal(t, "hello room", ev.Data.Message)
		assert.Equal(t, "paul", ev.Data.User.Username)
	}
}

func TestStreamIgnoresBlankFrames(t *testing.T) {
	srv, chat := newStreamServer(t)

	conn := dialStream(t, srv, "7", testToken)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("   \t\n")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("real message")))

	assert.Eventually(t, func() bool {
		return len(chat.postedMessages()) == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"real message"}, chat.postedMessages())
}

func TestStreamClosesInternalErrorWhenPersistFails(t *testing.T) {
	srv, chat := newStreamServer(t)
	chat.postErr = errors.New("store down")

	conn := dialStream(t, srv, "7", testToken)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("doomed")))

	assert.Equal(t, websocket.CloseInternalServerErr, expectClose(t, conn))
	assert.Eventually(t, func() bool {
		return chat.hub.Count(7) == 0
	}, 2*time.Second, 20*time.Millisecond, "failed session must leave the registry")
}

func TestStreamQueryTokenTakesPrecedence(t *testing.T) {
	srv, chat := newStreamServer(t)

	// A stale header must not shadow a valid query credential.
	header := http.Header{"Authorization": []string{"Bearer forged"}}
	conn, _, err := websocket.DefaultDialer.Dial(streamURL(srv, "7", testToken), header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("still here")))
	assert.Eventually(t, func() bool {
		return len(chat.postedMessages()) == 1
	}, 2*time.Second, 20*time.Millisecond)
}
