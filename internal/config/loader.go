package config

import (
	"fmt"
	"net/mail"
	"net/netip"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration through getenv instead of the process
// environment. Tests pass a map lookup.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from getenv.
func loadStruct(v reflect.Value, getenv func(string) string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, getenv); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value := strings.TrimSpace(getenv(envName))
		if alt := field.Tag.Get("envAlt"); value == "" && alt != "" {
			value = strings.TrimSpace(getenv(alt))
		}

		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		field.Set(reflect.ValueOf(splitList(value)))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.WriteTimeout < 0 {
		errs = append(errs, "SERVER_WRITE_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "SERVER_REQUEST_TIMEOUT must be positive")
	}

	if c.Submit.MaxBodyBytes <= 0 {
		errs = append(errs, "SUBMIT_MAX_BODY_BYTES must be positive")
	}
	if c.Submit.MaxConcurrent < 0 {
		errs = append(errs, "SUBMIT_MAX_CONCURRENT must be non-negative")
	}
	if c.Submit.MaxConcurrent > 0 && c.Submit.MaxWait <= 0 {
		errs = append(errs, "SUBMIT_MAX_WAIT must be positive when SUBMIT_MAX_CONCURRENT is set")
	}

	// Export validation
	switch strings.ToLower(c.Export.Format) {
	case "xlsx", "csv":
	default:
		errs = append(errs, fmt.Sprintf("EXPORT_FORMAT (%q) must be one of: xlsx, csv", c.Export.Format))
	}

	// Mail validation
	if _, err := mail.ParseAddress(c.Mail.From); err != nil {
		errs = append(errs, fmt.Sprintf("SENDGRID_FROM_EMAIL (%q) is not a valid address", c.Mail.From))
	}
	if _, err := mail.ParseAddress(c.Mail.To); err != nil {
		errs = append(errs, fmt.Sprintf("OPS_EMAIL (%q) is not a valid address", c.Mail.To))
	}
	if u, err := url.Parse(c.Mail.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("SENDGRID_BASE_URL (%q) must be an absolute URL", c.Mail.BaseURL))
	}
	if c.Mail.Timeout <= 0 {
		errs = append(errs, "SENDGRID_TIMEOUT must be positive")
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		errs = append(errs, "CORS_ALLOWED_ORIGINS must list at least one origin")
	}

	for _, entry := range c.Security.TrustedProxies {
		if _, err := netip.ParsePrefix(entry); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(entry); err != nil {
			errs = append(errs, fmt.Sprintf("TRUSTED_PROXIES entry %q is not an IP or CIDR", entry))
		}
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.SubmitPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_SUBMIT_PER_MINUTE must be positive when rate limiting is enabled")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// The SendGrid API key is masked.
func (c *Config) String() string {
	key := "[EMPTY]"
	if c.Mail.APIKey != "" {
		key = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d, Service: %q}, ", c.Server.Host, c.Server.Port, c.Server.ServiceName)
	fmt.Fprintf(&b, "Submit: {MaxBodyBytes: %d, MaxConcurrent: %d}, ", c.Submit.MaxBodyBytes, c.Submit.MaxConcurrent)
	fmt.Fprintf(&b, "Export: {Format: %q}, ", c.Export.Format)
	fmt.Fprintf(&b, "Mail: {APIKey: %s, From: %q, To: %q, Timeout: %s}, ", key, c.Mail.From, c.Mail.To, c.Mail.Timeout)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, SubmitPerMinute: %d}, ", c.Rate.Enabled, c.Rate.SubmitPerMinute)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
