// Package config defines the configuration of the CareWatch services.
// Configuration is loaded once at process start and is immutable afterwards.
//
// Values are resolved with the priority:
//
//	OS Environment (Highest) -> Dotenv File -> struct defaults (Lowest)
//
// A missing required value or invalid format fails startup.
package config

import (
	"time"

	"carewatch/internal/types"
)

// SecretString is an alias for types.SecretString.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the section they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"carewatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server   ServerConfig
	Database DatabaseConfig
	AWS      AWSConfig
	Email    EmailConfig
	TextGen  TextGenConfig
	Monitor  MonitorConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	CORSOrigins     []string      `envconfig:"CORS_ALLOWED_ORIGINS"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers. Both the alert event queue and
// metrics are optional; empty values disable them.
type AWSConfig struct {
	Region          string `envconfig:"AWS_REGION" default:"us-east-1"`
	AlertEventQueue string `envconfig:"SQS_ALERT_EVENTS" validate:"omitempty,url"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"CareWatch"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// EmailConfig holds the email transport settings. Without an API key the
// stub transport is used and messages are only logged.
type EmailConfig struct {
	SendGridAPIKey SecretString `envconfig:"SENDGRID_API_KEY"`
	BaseURL        string       `envconfig:"SENDGRID_BASE_URL" default:"https://api.sendgrid.com" validate:"url"`
	FromAddress    string       `envconfig:"EMAIL_FROM_ADDRESS" default:"alerts@carewatch.local" validate:"email"`
	FromName       string       `envconfig:"EMAIL_FROM_NAME" default:"CareWatch Alerts"`
}

// TextGenConfig holds the text-generation service settings used by the
// anomaly analyzer. Without an API key analysis runs against a stub that
// reports no anomalies.
type TextGenConfig struct {
	APIKey  SecretString  `envconfig:"TEXTGEN_API_KEY"`
	BaseURL string        `envconfig:"TEXTGEN_BASE_URL" default:"https://api.openai.com/v1" validate:"url"`
	Model   string        `envconfig:"TEXTGEN_MODEL" default:"gpt-4o-mini" validate:"required"`
	Timeout time.Duration `envconfig:"TEXTGEN_TIMEOUT" default:"60s"`
}

// MonitorConfig tunes evaluation and dispatch concurrency.
type MonitorConfig struct {
	FetchConcurrency    int `envconfig:"MONITOR_FETCH_CONCURRENCY" default:"8" validate:"min=1,max=64"`
	DispatchConcurrency int `envconfig:"MONITOR_DISPATCH_CONCURRENCY" default:"4" validate:"min=1,max=64"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates environment values could not be parsed into their
	// target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
