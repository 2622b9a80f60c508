package stream

import "github.com/kbukum/brokerkit/validation"

const (
	defaultMaxConcurrent  = 10
	defaultReadBufferSize = 32 * 1024
)

// Config configures a Multiplexer.
type Config struct {
	// MaxConcurrent is the ceiling on open streams. Defaults to 10.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
	// ReadBufferSize is the size of each read from the connection.
	ReadBufferSize int `yaml:"read_buffer_size" mapstructure:"read_buffer_size" validate:"gte=0"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = defaultMaxConcurrent
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = defaultReadBufferSize
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
