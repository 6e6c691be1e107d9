package domain

import "fmt"

// ConfigError is a fatal configuration failure. Configuration errors abort
// the entire run before any patient is processed; the message always names
// the invalid parameter.
type ConfigError struct {
	Parameter string
	Value     string
	Err       error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid configuration: %s=%q: %v", e.Parameter, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid configuration: %s: %v", e.Parameter, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is checks against the
// domain sentinels.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError naming the offending parameter.
func NewConfigError(parameter, value string, err error) *ConfigError {
	return &ConfigError{Parameter: parameter, Value: value, Err: err}
}
