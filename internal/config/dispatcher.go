package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// DispatcherConfig configures the outbound dispatcher service (§4.5, §6.3).
type DispatcherConfig struct {
	Kafka KafkaConfig

	AccessToken   string `env:"WHATSAPP_ACCESS_TOKEN"`
	APIVersion    string `env:"WHATSAPP_API_VERSION" envDefault:"v23.0"`
	PhoneNumberID string `env:"WHATSAPP_PHONE_NUMBER_ID"`

	RateLimitPerSecond int `env:"DISPATCHER_RATE_LIMIT_PER_SECOND" envDefault:"80"`
	RateLimitBurst     int `env:"DISPATCHER_RATE_LIMIT_BURST" envDefault:"20"`
	Parallelism        int `env:"DISPATCHER_PARALLELISM" envDefault:"4"`
	MetricsPort        int `env:"DISPATCHER_METRICS_PORT" envDefault:"9091"`
}

// LoadDispatcherConfig parses DispatcherConfig from the process environment.
func LoadDispatcherConfig() (*DispatcherConfig, error) {
	var cfg DispatcherConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse dispatcher env: %w", err)
	}
	kafka, err := LoadKafkaConfig()
	if err != nil {
		return nil, err
	}
	cfg.Kafka = kafka
	return &cfg, cfg.Validate()
}

func (c DispatcherConfig) Validate() error {
	var errs []error
	if c.AccessToken == "" {
		errs = append(errs, errors.New("dispatcher: WHATSAPP_ACCESS_TOKEN is required"))
	}
	if c.PhoneNumberID == "" {
		errs = append(errs, errors.New("dispatcher: WHATSAPP_PHONE_NUMBER_ID is required"))
	}
	if c.RateLimitPerSecond <= 0 {
		errs = append(errs, errors.New("dispatcher: DISPATCHER_RATE_LIMIT_PER_SECOND must be positive"))
	}
	if c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("dispatcher: DISPATCHER_RATE_LIMIT_BURST must be positive"))
	}
	if c.Parallelism <= 0 {
		errs = append(errs, errors.New("dispatcher: DISPATCHER_PARALLELISM must be positive"))
	}
	errs = append(errs, c.Kafka.Validate())
	return errors.Join(errs...)
}

// String redacts the access token before the config is embedded in a log line.
func (c DispatcherConfig) String() string {
	redacted := c
	if redacted.AccessToken != "" {
		redacted.AccessToken = "***REDACTED***"
	}
	type alias DispatcherConfig
	return fmt.Sprintf("%+v", alias(redacted))
}
