package credential

import (
	"time"

	"github.com/kbukum/brokerkit/resilience"
	"github.com/kbukum/brokerkit/validation"
)

// Token endpoint client authentication methods.
const (
	AuthMethodPost  = "client_secret_post"
	AuthMethodBasic = "client_secret_basic"
)

// Store types.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
)

const (
	defaultRefreshAhead = 5 * time.Minute
	defaultTTL          = 20 * time.Minute
	defaultTimeout      = 15 * time.Second
)

// StoreConfig selects where rotated refresh tokens are persisted.
type StoreConfig struct {
	// Type is "memory" (default) or "file".
	Type string `yaml:"type" mapstructure:"type" validate:"omitempty,oneof=memory file"`
	// Path is the sealed token file (file store).
	Path string `yaml:"path" mapstructure:"path" validate:"required_if=Type file"`
	// Key is the passphrase the file is sealed with (file store).
	Key string `yaml:"key" mapstructure:"key" validate:"required_if=Type file"`
}

// Config configures credential acquisition and refresh.
type Config struct {
	// TokenURL is the token endpoint. Relative URLs are not allowed.
	TokenURL string `yaml:"token_url" mapstructure:"token_url" validate:"required,http_url"`
	// ClientID identifies the application to the token endpoint.
	ClientID string `yaml:"client_id" mapstructure:"client_id" validate:"required"`
	// ClientSecret authenticates the application.
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	// AuthMethod is how client credentials are sent: in the form body
	// (client_secret_post, default) or as HTTP Basic (client_secret_basic).
	AuthMethod string `yaml:"auth_method" mapstructure:"auth_method" validate:"omitempty,oneof=client_secret_post client_secret_basic"`
	// RefreshToken seeds the manager when no store holds one.
	RefreshToken string `yaml:"refresh_token" mapstructure:"refresh_token"`
	// RefreshAhead refreshes a token this long before it expires. Defaults to 5m.
	RefreshAhead time.Duration `yaml:"refresh_ahead" mapstructure:"refresh_ahead" validate:"gte=0"`
	// DefaultTTL is assumed when neither expires_in nor a JWT exp is available.
	DefaultTTL time.Duration `yaml:"default_ttl" mapstructure:"default_ttl" validate:"gte=0"`
	// Timeout bounds one token endpoint round trip.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	// Strict disables serving a still-unexpired token after a failed refresh.
	Strict bool `yaml:"strict" mapstructure:"strict"`
	// Retry governs retries of transport-level refresh failures.
	Retry resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
	// Store persists rotated refresh tokens.
	Store StoreConfig `yaml:"store" mapstructure:"store"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.AuthMethod == "" {
		c.AuthMethod = AuthMethodPost
	}
	if c.RefreshAhead == 0 {
		c.RefreshAhead = defaultRefreshAhead
	}
	if c.DefaultTTL == 0 {
		c.DefaultTTL = defaultTTL
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 2
	}
	if c.Retry.InitialBackoff == 0 {
		c.Retry.InitialBackoff = 250 * time.Millisecond
	}
	if c.Store.Type == "" {
		c.Store.Type = StoreMemory
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
