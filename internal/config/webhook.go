package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// WebhookConfig configures the webhook ingress service (§4.4).
type WebhookConfig struct {
	Kafka KafkaConfig

	Host             string `env:"WEBHOOK_HOST" envDefault:"0.0.0.0"`
	Port             int    `env:"WEBHOOK_PORT" envDefault:"8080"`
	VerifyToken      string `env:"WEBHOOK_VERIFY_TOKEN"`
	AccessToken      string `env:"WEBHOOK_ACCESS_TOKEN"`
	APIVersion       string `env:"WEBHOOK_API_VERSION" envDefault:"v23.0"`
	PhoneNumberID    string `env:"WEBHOOK_PHONE_NUMBER_ID"`
	MaxFileSizeMB    int    `env:"WEBHOOK_MAX_FILE_SIZE_MB" envDefault:"16"`
	MetricsPort      int    `env:"WEBHOOK_METRICS_PORT" envDefault:"9090"`
}

// LoadWebhookConfig parses WebhookConfig (and the embedded KafkaConfig) from
// the process environment.
func LoadWebhookConfig() (*WebhookConfig, error) {
	var cfg WebhookConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse webhook env: %w", err)
	}
	kafka, err := LoadKafkaConfig()
	if err != nil {
		return nil, err
	}
	cfg.Kafka = kafka
	return &cfg, cfg.Validate()
}

// Validate checks that the webhook service has everything it needs to bind
// and verify the platform handshake.
func (c WebhookConfig) Validate() error {
	var errs []error
	if c.VerifyToken == "" {
		errs = append(errs, errors.New("webhook: WEBHOOK_VERIFY_TOKEN is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("webhook: invalid WEBHOOK_PORT %d", c.Port))
	}
	if c.MaxFileSizeMB <= 0 {
		errs = append(errs, errors.New("webhook: WEBHOOK_MAX_FILE_SIZE_MB must be positive"))
	}
	errs = append(errs, c.Kafka.Validate())
	return errors.Join(errs...)
}

// String redacts secrets before the config is embedded in a log line,
// mirroring protoflow's Config.String redaction of broker credentials.
func (c WebhookConfig) String() string {
	redacted := c
	if redacted.VerifyToken != "" {
		redacted.VerifyToken = "***REDACTED***"
	}
	if redacted.AccessToken != "" {
		redacted.AccessToken = "***REDACTED***"
	}
	type alias WebhookConfig
	return fmt.Sprintf("%+v", alias(redacted))
}
