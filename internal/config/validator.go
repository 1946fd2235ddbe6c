package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateSession(cfg.Session); err != nil {
		errors = append(errors, err)
	}

	if err := validateModeration(cfg.Moderation); err != nil {
		errors = append(errors, err)
	}

	if err := validateSummary(cfg.Summary); err != nil {
		errors = append(errors, err)
	}

	if err := validateArchive(cfg.Archive); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if cfg.Type == "" {
		return &ValidationError{
			Field:   "broker.type",
			Message: "broker type is required",
		}
	}

	if cfg.Type != "kafka" {
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unsupported broker type %q", cfg.Type),
		}
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one broker address is required",
		}
	}

	if cfg.Kafka.MessageTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.message_topic",
			Message: "message topic is required",
		}
	}

	return nil
}

func validateSession(cfg SessionConfig) error {
	if cfg.PublicBaseURL != "" {
		u, err := url.Parse(cfg.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ValidationError{
				Field:   "session.public_base_url",
				Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.PublicBaseURL),
			}
		}
	}

	if cfg.JoinCodeLength != 0 && (cfg.JoinCodeLength < 4 || cfg.JoinCodeLength > 16) {
		return &ValidationError{
			Field:   "session.join_code_length",
			Message: fmt.Sprintf("join code length must be between 4 and 16, got %d", cfg.JoinCodeLength),
		}
	}

	return nil
}

func validateModeration(cfg ModerationConfig) error {
	switch cfg.Fallback.OnError {
	case "", "allow", "deny":
		return nil
	default:
		return &ValidationError{
			Field:   "moderation.fallback.on_error",
			Message: fmt.Sprintf("must be 'allow' or 'deny', got %q", cfg.Fallback.OnError),
		}
	}
}

func validateSummary(cfg SummaryConfig) error {
	if cfg.Endpoint == "" {
		return nil // summaries are optional
	}

	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		return &ValidationError{
			Field:   "summary.endpoint",
			Message: fmt.Sprintf("must be an http(s) URL, got %q", cfg.Endpoint),
		}
	}

	return nil
}

func validateArchive(cfg ArchiveConfig) error {
	switch cfg.OnRedisError {
	case "", "archive", "skip":
		return nil
	default:
		return &ValidationError{
			Field:   "archive.on_redis_error",
			Message: fmt.Sprintf("must be 'archive' or 'skip', got %q", cfg.OnRedisError),
		}
	}
}
