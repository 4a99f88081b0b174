package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	RealtimeChannel  string
	JWTSecret        string
	CORSAllowOrigins string

	DeliveryHeartbeat     time.Duration
	DeliveryPollInterval  time.Duration
	DeliverySnapshotLimit int
	ReactionCacheTTL      time.Duration

	MessageRateLimit  int
	ReactionRateLimit int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CREWHUB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CrewHub API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("realtime.channel", "crewhub")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("delivery.heartbeat", "30s")
	v.SetDefault("delivery.poll_interval", "2s")
	v.SetDefault("delivery.snapshot_limit", 50)
	v.SetDefault("reactions.cache_ttl", "168h")
	v.SetDefault("rate_limit.messages", 10)
	v.SetDefault("rate_limit.reactions", 20)

	heartbeat, err := parseDuration(v, "delivery.heartbeat")
	if err != nil {
		return Config{}, err
	}
	pollInterval, err := parseDuration(v, "delivery.poll_interval")
	if err != nil {
		return Config{}, err
	}
	reactionTTL, err := parseDuration(v, "reactions.cache_ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		DatabaseURL:           v.GetString("database.url"),
		RedisURL:              v.GetString("redis.url"),
		NATSURL:               v.GetString("nats.url"),
		CORSAllowOrigins:      v.GetString("cors.allow_origins"),
		RealtimeChannel:       strings.TrimSpace(v.GetString("realtime.channel")),
		JWTSecret:             v.GetString("jwt.secret"),
		DeliveryHeartbeat:     heartbeat,
		DeliveryPollInterval:  pollInterval,
		DeliverySnapshotLimit: v.GetInt("delivery.snapshot_limit"),
		ReactionCacheTTL:      reactionTTL,
		MessageRateLimit:      v.GetInt("rate_limit.messages"),
		ReactionRateLimit:     v.GetInt("rate_limit.reactions"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}
	if cfg.RealtimeChannel == "" {
		cfg.RealtimeChannel = "crewhub"
	}
	if cfg.DeliverySnapshotLimit <= 0 {
		cfg.DeliverySnapshotLimit = 50
	}
	if cfg.MessageRateLimit <= 0 {
		cfg.MessageRateLimit = 10
	}
	if cfg.ReactionRateLimit <= 0 {
		cfg.ReactionRateLimit = 20
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return value, nil
}
