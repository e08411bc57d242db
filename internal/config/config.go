package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/Specto0/specto/pkg/config"
	"github.com/Specto0/specto/pkg/database"
	"github.com/Specto0/specto/pkg/log"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Chat      ChatConfig
	Database  database.Config
	Redis     RedisConfig
	JWT       JWTConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBufferSize int           `mapstructure:"send_buffer_size"`
}

type ChatConfig struct {
	HistoryLimit int `mapstructure:"history_limit"`
	TopicsLimit  int `mapstructure:"topics_limit"`
}

type RedisConfig struct {
	Address          string        `mapstructure:"address"`
	Password         string        `mapstructure:"password"`
	DB               int           `mapstructure:"db"`
	TopicCachePrefix string        `mapstructure:"topic_cache_prefix"`
	TopicCacheTTL    time.Duration `mapstructure:"topic_cache_ttl"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessDuration time.Duration `mapstructure:"access_duration"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer_size", 256)
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("chat.topics_limit", 20)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "specto")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "specto")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "specto.db")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.topic_cache_prefix", "forum:topic")
	v.SetDefault("redis.topic_cache_ttl", "5m")
	v.SetDefault("jwt.issuer", "specto")
	v.SetDefault("jwt.access_duration", "60m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "forum-service")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Durations arrive as strings from both yaml and env.
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Redis.TopicCacheTTL = parseDuration(v, "redis.topic_cache_ttl", 5*time.Minute)
	cfg.JWT.AccessDuration = parseDuration(v, "jwt.access_duration", time.Hour)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return defaultVal
	}
	return d
}
