// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"net/http"
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
	GetSessionCookieName() string
}

// SessionConfig provides settings needed to issue session cookies.
type SessionConfig interface {
	JWTConfig
	GetSessionTTL() time.Duration
	GetSessionCookieDomain() string
	GetSessionCookiePath() string
	GetSessionCookieSecure() bool
	GetSessionCookieSameSite() http.SameSite
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
}

// SyncConfig provides settings for the clinic CRM sync pipeline.
type SyncConfig interface {
	GetCRMBaseURL() string
	GetSyncCron() string
	GetSyncInterval() time.Duration
	GetSyncSelectedOnly() bool
	GetSyncConcurrency() int
	GetSyncClinicTimeout() time.Duration
	GetSyncMaxPages() int
	GetSyncFetchRetries() int
	GetSyncUpstreamRPS() float64
}

// FirebaseConfig provides settings for the Firebase admin SDK.
type FirebaseConfig interface {
	GetFirebaseCredentialsFile() string
	IsFirebaseEnabled() bool
}

// EmailConfig provides settings for SMTP email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// OnboardingConfig provides settings for user onboarding links.
type OnboardingConfig interface {
	GetAppBaseURL() string
}

// ReportConfig provides settings for KPI report generation.
type ReportConfig interface {
	GetReportTimezone() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	MetricsAddr           string
	DatabaseURL           string
	JWTAccessSecret       string
	SessionTTL            time.Duration
	SessionCookieName     string
	SessionCookieDomain   string
	SessionCookiePath     string
	SessionCookieSecure   bool
	SessionCookieSameSite http.SameSite
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	AppBaseURL            string
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	CRMBaseURL            string
	SyncCron              string
	SyncInterval          time.Duration
	SyncSelectedOnly      bool
	SyncConcurrency       int
	SyncClinicTimeout     time.Duration
	SyncMaxPages          int
	SyncFetchRetries      int
	SyncUpstreamRPS       float64
	FirebaseCredentials   string
	EmailEnabled          bool
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromName         string
	EmailFromAddress      string
	ReportTimezone        string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig / SessionConfig implementation
func (c *Config) GetJWTAccessSecret() string                { return c.JWTAccessSecret }
func (c *Config) GetSessionCookieName() string              { return c.SessionCookieName }
func (c *Config) GetSessionTTL() time.Duration              { return c.SessionTTL }
func (c *Config) GetSessionCookieDomain() string            { return c.SessionCookieDomain }
func (c *Config) GetSessionCookiePath() string              { return c.SessionCookiePath }
func (c *Config) GetSessionCookieSecure() bool              { return c.SessionCookieSecure }
func (c *Config) GetSessionCookieSameSite() http.SameSite   { return c.SessionCookieSameSite }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }

// SyncConfig implementation
func (c *Config) GetCRMBaseURL() string                { return c.CRMBaseURL }
func (c *Config) GetSyncCron() string                  { return c.SyncCron }
func (c *Config) GetSyncInterval() time.Duration       { return c.SyncInterval }
func (c *Config) GetSyncSelectedOnly() bool            { return c.SyncSelectedOnly }
func (c *Config) GetSyncConcurrency() int              { return c.SyncConcurrency }
func (c *Config) GetSyncClinicTimeout() time.Duration  { return c.SyncClinicTimeout }
func (c *Config) GetSyncMaxPages() int                 { return c.SyncMaxPages }
func (c *Config) GetSyncFetchRetries() int             { return c.SyncFetchRetries }
func (c *Config) GetSyncUpstreamRPS() float64          { return c.SyncUpstreamRPS }

// FirebaseConfig implementation
func (c *Config) GetFirebaseCredentialsFile() string { return c.FirebaseCredentials }
func (c *Config) IsFirebaseEnabled() bool            { return c.FirebaseCredentials != "" }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// OnboardingConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// ReportConfig implementation
func (c *Config) GetReportTimezone() string { return c.ReportTimezone }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:5174"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	sessionCookieSecure := strings.EqualFold(getEnv("SESSION_COOKIE_SECURE", ""), "true")
	if getEnv("SESSION_COOKIE_SECURE", "") == "" {
		sessionCookieSecure = strings.EqualFold(getEnv("APP_ENV", "development"), "production")
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":5000"),
		MetricsAddr:           getEnv("METRICS_ADDR", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTAccessSecret:       getEnv("JWT_ACCESS_SECRET", ""),
		SessionTTL:            mustDuration(getEnv("SESSION_TTL", "24h")),
		SessionCookieName:     getEnv("SESSION_COOKIE_NAME", "dim_session"),
		SessionCookieDomain:   getEnv("SESSION_COOKIE_DOMAIN", ""),
		SessionCookiePath:     getEnv("SESSION_COOKIE_PATH", "/"),
		SessionCookieSecure:   sessionCookieSecure,
		SessionCookieSameSite: parseSameSite(getEnv("SESSION_COOKIE_SAMESITE", "Lax")),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:            getEnv("APP_BASE_URL", "http://localhost:5173"),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "4")),
		CRMBaseURL:            getEnv("CRM_BASE_URL", "https://services.leadconnectorhq.com"),
		SyncCron:              getEnv("SYNC_CRON", "0 */3 * * *"),
		SyncInterval:          mustDuration(getEnv("SYNC_INTERVAL", "3h")),
		SyncSelectedOnly:      strings.EqualFold(getEnv("SYNC_SELECTED_ONLY", "true"), "true"),
		SyncConcurrency:       mustInt(getEnv("SYNC_CONCURRENCY", "3")),
		SyncClinicTimeout:     mustDuration(getEnv("SYNC_CLINIC_TIMEOUT", "10m")),
		SyncMaxPages:          mustInt(getEnv("SYNC_MAX_PAGES", "500")),
		SyncFetchRetries:      mustInt(getEnv("SYNC_FETCH_RETRIES", "2")),
		SyncUpstreamRPS:       mustFloat(getEnv("SYNC_UPSTREAM_RPS", "5")),
		FirebaseCredentials:   getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		EmailEnabled:          emailEnabled && smtpHost != "",
		SMTPHost:              smtpHost,
		SMTPPort:              mustInt(getEnv("SMTP_PORT", "465")),
		SMTPUsername:          getEnv("SMTP_USER", ""),
		SMTPPassword:          getEnv("SMTP_PASS", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "DIM Dashboard"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", "no-reply@dim.com"),
		ReportTimezone:        getEnv("REPORT_TIMEZONE", "UTC"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if _, err := time.LoadLocation(cfg.ReportTimezone); err != nil {
		return nil, fmt.Errorf("REPORT_TIMEZONE %q is not a valid IANA zone: %w", cfg.ReportTimezone, err)
	}

	return cfg, nil
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

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
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

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}
