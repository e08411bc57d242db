package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Specto0/specto/internal/auth"
	"github.com/Specto0/specto/internal/cache"
	"github.com/Specto0/specto/internal/config"
	"github.com/Specto0/specto/internal/domain"
	"github.com/Specto0/specto/internal/handler"
	"github.com/Specto0/specto/internal/hub"
	"github.com/Specto0/specto/internal/repository"
	"github.com/Specto0/specto/internal/service"
	"github.com/Specto0/specto/pkg/database"
	"github.com/Specto0/specto/pkg/jwt"
	"github.com/Specto0/specto/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	l := log.L()
	l.Info().Int("port", cfg.Server.Port).Msg("starting forum service")

	// Database
	db, err := database.New(&cfg.Database)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, domain.AllModels()...); err != nil {
		l.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Repositories
	topicRepo := repository.NewGormTopicRepository(db)
	postRepo := repository.NewGormPostRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	likeRepo := repository.NewGormLikeRepository(db)
	userRepo := repository.NewGormUserRepository(db)

	// Topic cache; the service degrades to direct DB reads without it.
	var topicCache cache.TopicCache
	if rc, err := cache.NewRedisTopicCache(cfg.Redis); err != nil {
		l.Warn().Err(err).Msg("redis unavailable, topic cache disabled")
	} else {
		topicCache = rc
		defer rc.Close()
		l.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")
	}

	// Auth
	jwtManager, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessDuration)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create jwt manager")
	}
	authenticator := auth.NewJWTAuthenticator(jwtManager, userRepo)
	authMiddleware := auth.NewMiddleware(authenticator)

	// Hub
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run(ctx)

	// Services
	chatSvc := service.NewChatService(
		topicRepo, messageRepo, likeRepo,
		topicCache, cfg.Redis.TopicCacheTTL,
		wsHub, cfg.Chat.HistoryLimit,
	)
	forumSvc := service.NewForumService(
		topicRepo, postRepo,
		topicCache, cfg.Redis.TopicCacheTTL,
		cfg.Chat.TopicsLimit,
	)

	// HTTP
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(log.GinMiddleware(l))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	handler.NewHandler(forumSvc, chatSvc, authMiddleware).RegisterRoutes(r)
	handler.NewWSHandler(wsHub, chatSvc, authenticator, cfg.WebSocket).RegisterRoutes(r)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: it would sever long-lived stream connections.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("forum service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down forum service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}

	l.Info().Msg("forum service stopped")
}
