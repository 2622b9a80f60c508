// Package validation validates brokerkit configuration structs with
// go-playground/validator struct tags and reports failures as
// INVALID_INPUT *errors.AppError values keyed by the mapstructure field name,
// so messages point at the same keys a user writes in config.yml.
//
//	type StreamConfig struct {
//	    MaxConcurrent int `mapstructure:"max_concurrent" validate:"gte=1"`
//	}
//	err := validation.Validate(cfg)
package validation
