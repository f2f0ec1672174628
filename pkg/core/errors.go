package core

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks failures caused by missing or unreadable input
// configuration. They are fatal to a run and never retried.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError describes a configuration failure for a specific field.
type ConfigurationError struct {
	Field string
	Path  string
	Err   error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	msg := e.Field
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrConfiguration, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrConfiguration, msg)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrConfiguration) match any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
