// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetHealthCheckInterval() time.Duration
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// WebhookConfig provides settings for outbound webhook health checks.
type WebhookConfig interface {
	GetWebhookTimeout() time.Duration
	GetWebhookUserAgent() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	JWTAccessSecret     string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	CORSAllowAll        bool
	CORSOrigins         []string
	CORSAllowCreds      bool
	RedisURL            string
	RedisTLSInsecure    bool
	AsynqQueueName      string
	AsynqConcurrency    int
	HealthCheckInterval time.Duration
	EmailEnabled        bool
	SMTPHost            string
	SMTPPort            int
	SMTPUsername        string
	SMTPPassword        string
	EmailFromName       string
	EmailFromAddress    string
	WebhookTimeout      time.Duration
	WebhookUserAgent    string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetAccessTokenTTL() time.Duration  { return c.AccessTokenTTL }
func (c *Config) GetRefreshTokenTTL() time.Duration { return c.RefreshTokenTTL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                    { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool              { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string              { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int               { return c.AsynqConcurrency }
func (c *Config) GetHealthCheckInterval() time.Duration { return c.HealthCheckInterval }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// WebhookConfig implementation
func (c *Config) GetWebhookTimeout() time.Duration { return c.WebhookTimeout }
func (c *Config) GetWebhookUserAgent() string      { return c.WebhookUserAgent }

// Load reads configuration from the environment, loading a .env file first
// when one is present. Missing required values return an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	jwtSecret := getEnv("JWT_ACCESS_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:         databaseURL,
		JWTAccessSecret:     jwtSecret,
		AccessTokenTTL:      getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:     getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		CORSAllowAll:        strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSOrigins:         splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		CORSAllowCreds:      strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisTLSInsecure:    strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:      getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:    getInt("ASYNQ_CONCURRENCY", 10),
		HealthCheckInterval: getDuration("INTEGRATION_HEALTH_INTERVAL", 15*time.Minute),
		EmailEnabled:        strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true"),
		SMTPHost:            getEnv("SMTP_HOST", ""),
		SMTPPort:            getInt("SMTP_PORT", 587),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "CRM Hub"),
		EmailFromAddress:    getEnv("EMAIL_FROM_ADDRESS", ""),
		WebhookTimeout:      getDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		WebhookUserAgent:    getEnv("WEBHOOK_USER_AGENT", "crmhub-healthcheck/1.0"),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
