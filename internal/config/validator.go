package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator validates configuration values.
type Validator interface {
	Validate(cfg *Config) error
}

type validatorImpl struct {
	validate *validator.Validate
}

// NewValidator creates a struct-tag based validator.
func NewValidator() Validator {
	return &validatorImpl{validate: validator.New()}
}

// Validate checks struct tags plus cross-field rules the tags cannot
// express.
func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := v.validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("validation error: %w", err)
		}
		messages := make([]string, 0, len(validationErrs))
		for _, e := range validationErrs {
			messages = append(messages, fmt.Sprintf("%s: failed %q constraint", e.Namespace(), e.Tag()))
		}
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(messages, "\n  - "))
	}

	if cfg.Storage.Isolated && cfg.Storage.DataRoot == "" {
		return fmt.Errorf("storage.data_root is required when storage.isolated is true")
	}
	if cfg.API.AuthEnabled && cfg.API.JWTSecret == "" {
		return fmt.Errorf("api.jwt_secret is required when api.auth_enabled is true")
	}
	if cfg.Embedder.Dimensions <= 0 {
		return fmt.Errorf("embedder.dimensions must be positive")
	}
	return nil
}
