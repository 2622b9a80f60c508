package client

import (
	"fmt"
	"time"

	"github.com/kbukum/brokerkit/config"
	"github.com/kbukum/brokerkit/credential"
	"github.com/kbukum/brokerkit/httpclient"
	"github.com/kbukum/brokerkit/observability"
	"github.com/kbukum/brokerkit/resilience"
	"github.com/kbukum/brokerkit/stream"
	"github.com/kbukum/brokerkit/validation"
)

// Config is the full client configuration, loadable with config.Load:
//
//	name: desk-a
//	environment: sandbox
//	http:
//	  base_url: https://api.broker.example.com
//	auth:
//	  token_url: https://signin.broker.example.com/oauth/token
//	  client_id: abc
//	  refresh_token: ${BROKERKIT_AUTH_REFRESH_TOKEN}
//	streams:
//	  max_concurrent: 10
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	HTTP      httpclient.Config         `yaml:"http" mapstructure:"http"`
	Auth      credential.Config         `yaml:"auth" mapstructure:"auth"`
	Throttle  resilience.ThrottleConfig `yaml:"throttle" mapstructure:"throttle"`
	Retry     resilience.RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Streams   stream.Config             `yaml:"streams" mapstructure:"streams"`
	Telemetry observability.Config      `yaml:"telemetry" mapstructure:"telemetry"`
}

// ApplyDefaults fills zero values in every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.HTTP.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Streams.ApplyDefaults()
	c.Telemetry.ApplyDefaults()

	defaults := resilience.DefaultThrottleConfig()
	if c.Throttle.DefaultLimit == 0 {
		c.Throttle.DefaultLimit = defaults.DefaultLimit
	}
	if c.Throttle.Window == 0 {
		c.Throttle.Window = defaults.Window
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialBackoff == 0 {
		c.Retry.InitialBackoff = 200 * time.Millisecond
	}
	if c.Retry.MaxBackoff == 0 {
		c.Retry.MaxBackoff = 5 * time.Second
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if c.HTTP.BaseURL == "" {
		return fmt.Errorf("config.http.base_url is required")
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("config.http: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("config.auth: %w", err)
	}
	if err := validation.Validate(&c.Throttle); err != nil {
		return fmt.Errorf("config.throttle: %w", err)
	}
	if err := validation.Validate(&c.Retry); err != nil {
		return fmt.Errorf("config.retry: %w", err)
	}
	if err := c.Streams.Validate(); err != nil {
		return fmt.Errorf("config.streams: %w", err)
	}
	if err := validation.Validate(&c.Telemetry); err != nil {
		return fmt.Errorf("config.telemetry: %w", err)
	}
	return nil
}
