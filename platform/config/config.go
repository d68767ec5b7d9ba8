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

// SchedulerConfig provides settings for the asynq background worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetFollowUpSweepInterval() time.Duration
	GetNotificationDispatchInterval() time.Duration
}

// EmailConfig provides settings for the SMTP notification sender.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for the notification outbox pipeline.
type NotificationConfig interface {
	GetNotifyInboxAddress() string
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketFundingDossiers() string
	IsMinIOEnabled() bool
}

// ScoringConfig provides the signal weights and freshness bonus for the
// triage scorer. Organizations tune these per deployment; the scorer itself
// carries no hard-coded weights.
type ScoringConfig interface {
	GetSignalWeights() map[string]int
	GetFreshnessBonus() int
	GetFreshnessWindow() time.Duration
}

// PipelineConfig provides tunables for the lead state machine and the
// financing sub-workflow.
type PipelineConfig interface {
	GetFollowUpThreshold() int
	GetPlacementTestMinimum() int
	GetFollowUpStallAfter() time.Duration
}

// FundingSyncConfig provides settings for the funding-body polling client.
type FundingSyncConfig interface {
	GetFundingSyncBaseURL() string
	GetFundingSyncAPIKey() string
	GetFundingSyncInterval() time.Duration
	IsFundingSyncEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool

	RedisURL                     string
	RedisTLSInsecure             bool
	AsynqQueueName               string
	AsynqConcurrency             int
	FollowUpSweepInterval        time.Duration
	NotificationDispatchInterval time.Duration

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	NotifyInboxAddress string

	MinIOEndpoint        string
	MinIOAccessKey       string
	MinIOSecretKey       string
	MinIOUseSSL          bool
	MinIOMaxFileSize     int64
	BucketFundingDossier string

	SignalWeightPageView        int
	SignalWeightFormInteraction int
	SignalWeightEmailOpen       int
	SignalWeightEmailClick      int
	SignalWeightPricingPageView int
	FreshnessBonus              int
	FreshnessWindow             time.Duration

	FollowUpThreshold    int
	PlacementTestMinimum int
	FollowUpStallAfter   time.Duration

	FundingSyncBaseURL  string
	FundingSyncAPIKey   string
	FundingSyncInterval time.Duration
}

// Load reads configuration from environment variables, optionally seeded from
// a .env file in development.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTAccessSecret: os.Getenv("JWT_ACCESS_SECRET"),
		CORSAllowAll:    getEnvBool("CORS_ALLOW_ALL", false),
		CORSOrigins:     getEnvList("CORS_ORIGINS"),
		CORSAllowCreds:  getEnvBool("CORS_ALLOW_CREDENTIALS", true),

		RedisURL:         os.Getenv("REDIS_URL"),
		RedisTLSInsecure: getEnvBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),

		FollowUpSweepInterval:        getEnvDuration("FOLLOW_UP_SWEEP_INTERVAL", 15*time.Minute),
		NotificationDispatchInterval: getEnvDuration("NOTIFICATION_DISPATCH_INTERVAL", 30*time.Second),

		EmailEnabled:     getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getEnvInt("SMTP_PORT", 587),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "TrainHub"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@trainhub.local"),

		NotifyInboxAddress: getEnv("NOTIFY_INBOX_ADDRESS", "backoffice@trainhub.local"),

		MinIOEndpoint:        os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:       os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:       os.Getenv("MINIO_SECRET_KEY"),
		MinIOUseSSL:          getEnvBool("MINIO_USE_SSL", false),
		MinIOMaxFileSize:     getEnvInt64("MINIO_MAX_FILE_SIZE", 25<<20),
		BucketFundingDossier: getEnv("MINIO_BUCKET_FUNDING_DOSSIERS", "funding-dossiers"),

		SignalWeightPageView:        getEnvInt("SCORE_WEIGHT_PAGE_VIEW", 2),
		SignalWeightFormInteraction: getEnvInt("SCORE_WEIGHT_FORM_INTERACTION", 10),
		SignalWeightEmailOpen:       getEnvInt("SCORE_WEIGHT_EMAIL_OPEN", 3),
		SignalWeightEmailClick:      getEnvInt("SCORE_WEIGHT_EMAIL_CLICK", 5),
		SignalWeightPricingPageView: getEnvInt("SCORE_WEIGHT_PRICING_PAGE_VIEW", 15),
		FreshnessBonus:              getEnvInt("SCORE_FRESHNESS_BONUS", 10),
		FreshnessWindow:             getEnvDuration("SCORE_FRESHNESS_WINDOW", 30*24*time.Hour),

		FollowUpThreshold:    getEnvInt("FOLLOW_UP_THRESHOLD", 5),
		PlacementTestMinimum: getEnvInt("PLACEMENT_TEST_MINIMUM", 50),
		FollowUpStallAfter:   getEnvDuration("FOLLOW_UP_STALL_AFTER", 72*time.Hour),

		FundingSyncBaseURL:  os.Getenv("FUNDING_SYNC_BASE_URL"),
		FundingSyncAPIKey:   os.Getenv("FUNDING_SYNC_API_KEY"),
		FundingSyncInterval: getEnvDuration("FUNDING_SYNC_INTERVAL", 15*time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" && !strings.EqualFold(cfg.Env, "development") {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required outside development")
	}

	return cfg, nil
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetFollowUpSweepInterval() time.Duration        { return c.FollowUpSweepInterval }
func (c *Config) GetNotificationDispatchInterval() time.Duration { return c.NotificationDispatchInterval }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

func (c *Config) GetNotifyInboxAddress() string { return c.NotifyInboxAddress }

func (c *Config) GetMinIOEndpoint() string              { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string             { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string             { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                  { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64            { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketFundingDossiers() string { return c.BucketFundingDossier }
func (c *Config) IsMinIOEnabled() bool                  { return c.MinIOEndpoint != "" }

// GetSignalWeights returns the signal-type → weight mapping for the scorer.
// Keys match the signal type constants in internal/leads/scoring.
func (c *Config) GetSignalWeights() map[string]int {
	return map[string]int{
		"page_view":         c.SignalWeightPageView,
		"form_interaction":  c.SignalWeightFormInteraction,
		"email_open":        c.SignalWeightEmailOpen,
		"email_click":       c.SignalWeightEmailClick,
		"pricing_page_view": c.SignalWeightPricingPageView,
	}
}

func (c *Config) GetFreshnessBonus() int            { return c.FreshnessBonus }
func (c *Config) GetFreshnessWindow() time.Duration { return c.FreshnessWindow }

func (c *Config) GetFollowUpThreshold() int              { return c.FollowUpThreshold }
func (c *Config) GetPlacementTestMinimum() int           { return c.PlacementTestMinimum }
func (c *Config) GetFollowUpStallAfter() time.Duration   { return c.FollowUpStallAfter }

func (c *Config) GetFundingSyncBaseURL() string        { return c.FundingSyncBaseURL }
func (c *Config) GetFundingSyncAPIKey() string         { return c.FundingSyncAPIKey }
func (c *Config) GetFundingSyncInterval() time.Duration { return c.FundingSyncInterval }
func (c *Config) IsFundingSyncEnabled() bool           { return c.FundingSyncBaseURL != "" }

// =============================================================================
// Env Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
