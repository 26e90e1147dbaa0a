package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is matched by every ConfigurationError via errors.Is.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrMalformedSnapshot is wrapped by every ParseSubjectSnapshot failure.
var ErrMalformedSnapshot = errors.New("malformed subject snapshot")

// ConfigurationError reports a construction-time validation failure.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
