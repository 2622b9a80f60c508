package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/brokerkit/logger"
)

// ServiceConfig contains the fields every brokerkit client config carries.
// Client configs embed it:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Auth credential.Config `mapstructure:"auth"`
//	}
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults applies default values to the base configuration.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "brokerkit"
	}
	if c.Environment == "" {
		c.Environment = "production"
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the base configuration fields.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	validEnvs := []string{"sandbox", "development", "staging", "production"}
	if !slices.Contains(validEnvs, c.Environment) {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", validEnvs, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// IsSandbox reports whether the client targets the broker's simulated environment.
func (c *ServiceConfig) IsSandbox() bool {
	return c.Environment == "sandbox"
}
