package slot

import (
	"errors"
	"fmt"
)

// ErrConfig matches every ConfigError via errors.Is.
var ErrConfig = errors.New("invalid game config")

// ConfigError reports a malformed or inconsistent game configuration.
// It is always returned before any spin is evaluated.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func configErr(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
