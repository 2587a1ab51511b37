// Package config provides centralized configuration management for the service.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
//
// The SendGrid API key is optional at startup. A missing key is reported
// when a submission is sent.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Submit   SubmitConfig
	Export   ExportConfig
	Mail     MailConfig
	CORS     CORSConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	// PORT is honoured for platforms that inject it.
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout must cover the provider call (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// ServiceName is reported by the root route (default: fineplay-apply)
	ServiceName string `env:"SERVICE_NAME" default:"fineplay-apply"`
}

// SubmitConfig holds application submission settings.
type SubmitConfig struct {
	// MaxBodyBytes caps the JSON request body (default: 1MiB)
	MaxBodyBytes int64 `env:"SUBMIT_MAX_BODY_BYTES" default:"1048576"`

	// MaxConcurrent caps submissions being exported and sent at once (default: 0, unlimited)
	MaxConcurrent int `env:"SUBMIT_MAX_CONCURRENT" default:"0"`

	// MaxWait is how long a submission waits for a free slot (default: 30s)
	MaxWait time.Duration `env:"SUBMIT_MAX_WAIT" default:"30s"`
}

// ExportConfig selects how submissions are serialized for the email.
type ExportConfig struct {
	// Format is "xlsx" (one workbook) or "csv" (summary and players files)
	Format string `env:"EXPORT_FORMAT" default:"xlsx"`

	// TempDir is the base directory for workbook scratch files (default: OS temp dir)
	TempDir string `env:"EXPORT_TEMP_DIR"`
}

// MailConfig holds SendGrid delivery settings.
type MailConfig struct {
	// APIKey authenticates against SendGrid. Checked at send time.
	APIKey string `env:"SENDGRID_API_KEY"`

	// From is the sender address (default: no-reply@fineplay.kr)
	From string `env:"SENDGRID_FROM_EMAIL" default:"no-reply@fineplay.kr"`

	// To is the operations inbox receiving submissions (default: official@fineplay.kr)
	To string `env:"OPS_EMAIL" default:"official@fineplay.kr"`

	// BaseURL is the SendGrid API host (default: https://api.sendgrid.com)
	BaseURL string `env:"SENDGRID_BASE_URL" default:"https://api.sendgrid.com"`

	// Timeout bounds a single send call (default: 20s)
	Timeout time.Duration `env:"SENDGRID_TIMEOUT" default:"20s"`
}

// CORSConfig holds cross-origin settings for the browser form.
type CORSConfig struct {
	// AllowedOrigins is a comma-separated origin list; "*" allows any origin
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// RateLimitConfig holds rate limiting settings for the submit route.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: false)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"false"`

	// SubmitPerMinute is submissions per minute per IP (default: 10)
	SubmitPerMinute int `env:"RATE_LIMIT_SUBMIT_PER_MINUTE" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MailConfigured reports whether a SendGrid API key is present.
func (c *MailConfig) MailConfigured() bool {
	return c.APIKey != ""
}
