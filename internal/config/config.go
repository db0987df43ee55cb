package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the exam API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	ResultsCacheTTL  time.Duration
	StoreTimeout     time.Duration
	EventChannelBase string
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
	v.SetEnvPrefix("EXAMLY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Examly API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.access_ttl", "1h")
	v.SetDefault("jwt.refresh_ttl", "168h")
	v.SetDefault("results.cache_ttl", "5m")
	v.SetDefault("store.timeout", "5s")
	v.SetDefault("events.channel_base", "examly")

	accessTTL, err := time.ParseDuration(v.GetString("jwt.access_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid access token ttl: %w", err)
	}

	refreshTTL, err := time.ParseDuration(v.GetString("jwt.refresh_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid refresh token ttl: %w", err)
	}

	resultsTTL, err := time.ParseDuration(v.GetString("results.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid results cache ttl: %w", err)
	}

	storeTimeout, err := time.ParseDuration(v.GetString("store.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid store timeout: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		JWTRefreshSecret: v.GetString("jwt.refresh_secret"),
		AccessTokenTTL:   accessTTL,
		RefreshTokenTTL:  refreshTTL,
		ResultsCacheTTL:  resultsTTL,
		StoreTimeout:     storeTimeout,
		EventChannelBase: v.GetString("events.channel_base"),
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	return cfg, nil
}
