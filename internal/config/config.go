// Package config loads service configuration for authd from environment
// variables, with an optional config file for local development.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config is the authd service configuration.
type Config struct {
	ServerPort  string
	DatabaseURL string
	RedisAddr   string
	RabbitMQURL string

	IdentityProviderURL string

	JWTSecret string
	TokenTTL  time.Duration

	CookieName  string
	Environment string
}

// Load reads configuration from the environment (and an optional
// authd.yaml in the working directory). DATABASE_URL, JWT_SECRET, and
// IDENTITY_PROVIDER_URL are required.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("COOKIE_NAME", "auth_token")
	v.SetDefault("ENVIRONMENT", "development")

	v.SetConfigName("authd")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}
	v.AutomaticEnv()

	cfg := Config{
		ServerPort:          v.GetString("SERVER_PORT"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RabbitMQURL:         v.GetString("RABBITMQ_URL"),
		IdentityProviderURL: v.GetString("IDENTITY_PROVIDER_URL"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		TokenTTL:            v.GetDuration("TOKEN_TTL"),
		CookieName:          v.GetString("COOKIE_NAME"),
		Environment:         v.GetString("ENVIRONMENT"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.IdentityProviderURL == "" {
		return Config{}, errors.New("IDENTITY_PROVIDER_URL is required")
	}

	return cfg, nil
}

// Production reports whether the service should apply production hardening
// (secure cookies).
func (c Config) Production() bool {
	return c.Environment == "production"
}
