// Package config loads brokerkit client configuration.
//
// Values come from, in increasing priority: a YAML file (config.yml), a
// .env file, and process environment variables prefixed with BROKERKIT_.
// Environment keys map onto nested config keys by splitting on underscores,
// so BROKERKIT_AUTH_CLIENT_ID sets auth.client_id.
//
// # Usage
//
//	var cfg client.Config
//	if err := config.Load("brokerkit", &cfg); err != nil { ... }
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil { ... }
package config
