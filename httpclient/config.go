package httpclient

import (
	"time"

	"github.com/kbukum/brokerkit/observability"
	"github.com/kbukum/brokerkit/resilience"
	"github.com/kbukum/brokerkit/validation"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultReadIdleTimeout = 30 * time.Second
)

// HTTP2Config configures the golang.org/x/net/http2 transport upgrade.
type HTTP2Config struct {
	// Enabled installs the x/net HTTP/2 transport on the client.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// ReadIdleTimeout sends a PING frame after this much silence so dead
	// long-lived stream connections are detected. Defaults to 30s.
	ReadIdleTimeout time.Duration `yaml:"read_idle_timeout" mapstructure:"read_idle_timeout" validate:"gte=0"`
	// PingTimeout closes the connection if a PING is not answered in time.
	PingTimeout time.Duration `yaml:"ping_timeout" mapstructure:"ping_timeout" validate:"gte=0"`
}

// Config configures the HTTP client.
type Config struct {
	// BaseURL is the base URL prepended to all request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout is the default request timeout. Defaults to 30s.
	// Streaming requests are bounded by their context only.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// TLS configures TLS settings for the HTTP transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// HTTP2 configures the optional HTTP/2 transport.
	HTTP2 HTTP2Config `yaml:"http2" mapstructure:"http2"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Auth configures default authentication applied to all requests.
	// Individual requests can override this.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`

	// Retry configures retry behavior. Nil disables retry.
	Retry *resilience.RetryConfig `yaml:"-" mapstructure:"-"`

	// Hooks run around every request, including streaming ones.
	Hooks Hooks `yaml:"-" mapstructure:"-"`

	// Metrics records request counts and durations. Nil records nothing.
	Metrics *observability.Metrics `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.HTTP2.Enabled && c.HTTP2.ReadIdleTimeout == 0 {
		c.HTTP2.ReadIdleTimeout = defaultReadIdleTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// DefaultRetryConfig returns a default retry config suitable for HTTP clients.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}
