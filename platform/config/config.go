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

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler and redis.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetReminderSweepCron() string
	GetPoolRoutingCron() string
}

// ReminderConfig provides settings for the reminder sweep.
type ReminderConfig interface {
	GetReminderIdleThreshold() time.Duration
	GetReminderSLAWarningWindow() time.Duration
	GetReminderSweepSecret() string
	GetReminderLockTTL() time.Duration
}

// NotificationConfig provides settings for the notification dispatcher.
type NotificationConfig interface {
	GetNotificationWorkers() int
	GetNotificationBufferSize() int
	GetNotificationSendTimeout() time.Duration
}

// EmailConfig provides settings for the SMTP notification sink.
type EmailConfig interface {
	IsEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetAppBaseURL() string
}

// AMQPConfig provides settings for the RabbitMQ notification sink.
type AMQPConfig interface {
	IsAMQPEnabled() bool
	GetAMQPURL() string
	GetAMQPExchange() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	DatabaseURL              string
	MigrationsEnabled        bool
	JWTAccessSecret          string
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	AppBaseURL               string
	RedisURL                 string
	RedisTLSInsecure         bool
	AsynqQueueName           string
	AsynqConcurrency         int
	ReminderSweepCron        string
	PoolRoutingCron          string
	ReminderIdleThreshold    time.Duration
	ReminderSLAWarningWindow time.Duration
	ReminderSweepSecret      string
	ReminderLockTTL          time.Duration
	NotificationWorkers      int
	NotificationBufferSize   int
	NotificationSendTimeout  time.Duration
	EmailEnabled             bool
	SMTPHost                 string
	SMTPPort                 int
	SMTPUsername             string
	SMTPPassword             string
	EmailFromName            string
	EmailFromAddress         string
	AMQPURL                  string
	AMQPExchange             string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string          { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool    { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string    { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int     { return c.AsynqConcurrency }
func (c *Config) GetReminderSweepCron() string { return c.ReminderSweepCron }
func (c *Config) GetPoolRoutingCron() string   { return c.PoolRoutingCron }

// ReminderConfig implementation
func (c *Config) GetReminderIdleThreshold() time.Duration   { return c.ReminderIdleThreshold }
func (c *Config) GetReminderSLAWarningWindow() time.Duration { return c.ReminderSLAWarningWindow }
func (c *Config) GetReminderSweepSecret() string            { return c.ReminderSweepSecret }
func (c *Config) GetReminderLockTTL() time.Duration         { return c.ReminderLockTTL }

// NotificationConfig implementation
func (c *Config) GetNotificationWorkers() int                { return c.NotificationWorkers }
func (c *Config) GetNotificationBufferSize() int             { return c.NotificationBufferSize }
func (c *Config) GetNotificationSendTimeout() time.Duration { return c.NotificationSendTimeout }

// EmailConfig implementation
func (c *Config) IsEmailEnabled() bool        { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetAppBaseURL() string       { return c.AppBaseURL }

// AMQPConfig implementation
func (c *Config) IsAMQPEnabled() bool     { return c.AMQPURL != "" }
func (c *Config) GetAMQPURL() string      { return c.AMQPURL }
func (c *Config) GetAMQPExchange() string { return c.AMQPExchange }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		MigrationsEnabled:        strings.EqualFold(getEnv("MIGRATIONS_ENABLED", "true"), "true"),
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:               getEnv("APP_BASE_URL", "http://localhost:4200"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		ReminderSweepCron:        getEnv("REMINDER_SWEEP_CRON", "@every 1h"),
		PoolRoutingCron:          getEnv("POOL_ROUTING_CRON", "@every 15m"),
		ReminderIdleThreshold:    mustDuration(getEnv("REMINDER_IDLE_THRESHOLD", "120h")),
		ReminderSLAWarningWindow: mustDuration(getEnv("REMINDER_SLA_WARNING_WINDOW", "48h")),
		ReminderSweepSecret:      getEnv("REMINDER_SWEEP_SECRET", ""),
		ReminderLockTTL:          mustDuration(getEnv("REMINDER_LOCK_TTL", "10m")),
		NotificationWorkers:      mustInt(getEnv("NOTIFICATION_WORKERS", "4")),
		NotificationBufferSize:   mustInt(getEnv("NOTIFICATION_BUFFER_SIZE", "256")),
		NotificationSendTimeout:  mustDuration(getEnv("NOTIFICATION_SEND_TIMEOUT", "10s")),
		EmailEnabled:             strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true") && smtpHost != "",
		SMTPHost:                 smtpHost,
		SMTPPort:                 mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		EmailFromName:            getEnv("EMAIL_FROM_NAME", "Lead Pipeline"),
		EmailFromAddress:         getEnv("EMAIL_FROM_ADDRESS", ""),
		AMQPURL:                  getEnv("AMQP_URL", ""),
		AMQPExchange:             getEnv("AMQP_EXCHANGE", "leads.notifications"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.ReminderSweepSecret == "" {
		return fmt.Errorf("REMINDER_SWEEP_SECRET is required")
	}
	if c.ReminderIdleThreshold <= 0 {
		return fmt.Errorf("REMINDER_IDLE_THRESHOLD must be a positive duration")
	}
	if c.EmailEnabled && c.EmailFromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
