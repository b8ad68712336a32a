package motion

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks a fatal setup problem: a missing joint or segment,
// a malformed table, or a data array whose shape breaks the frame contract.
// A run that hits one of these must stop.
var ErrConfiguration = errors.New("configuration error")

// ConfigError names the resource that is missing or malformed.
type ConfigError struct {
	Resource string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("configuration error: %s", e.Resource)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Resource, e.Err)
}

// Is reports ErrConfiguration so callers can test with errors.Is.
func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(resource, format string, args ...interface{}) error {
	return &ConfigError{Resource: resource, Err: fmt.Errorf(format, args...)}
}
